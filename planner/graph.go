package planner

import (
	"container/heap"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/cambium/cambium"
)

// candidateRegistry is the minimal surface the graph search needs from a
// registry, so the planner package doesn't import the registry package
// (avoiding a dependency cycle: registry imports cambium, planner imports
// cambium and takes this narrow interface instead of registry directly).
type candidateRegistry interface {
	CandidatesFrom(props cambium.Properties) []cambium.Converter
}

// searchState is a node in the planner's graph: a property bag paired
// with a cardinality.
type searchState struct {
	props cambium.Properties
	card  cambium.Cardinality
}

// hash returns a canonical key for a state, used to de-duplicate visits.
// Keys are sorted before hashing so insertion order never affects the
// hash.
func (s searchState) hash() string {
	keys := s.props.Keys()
	sort.Strings(keys)
	h := sha256.New()
	if s.card == cambium.Many {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	for _, k := range keys {
		v, _ := s.props.Get(k)
		h.Write([]byte(k))
		h.Write([]byte{byte(v.Kind())})
		h.Write([]byte(v.String()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// searchNode is a priority-queue entry: a state reachable via path at the
// given score and hop count.
type searchNode struct {
	state  searchState
	score  float64
	hops   int
	path   []string      // converter ids, in order
	states []searchState // state reached after each path entry, parallel to path
	index  int           // heap index, maintained by container/heap
}

// less implements the search's tie-breaking discipline: lower score wins;
// equal score prefers fewer hops; equal score and hops prefers the
// lexicographically smaller id sequence.
func (n *searchNode) less(other *searchNode) bool {
	if n.score != other.score {
		return n.score < other.score
	}
	if n.hops != other.hops {
		return n.hops < other.hops
	}
	return comparePaths(n.path, other.path) < 0
}

func comparePaths(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return strings.Compare(a[i], b[i])
		}
	}
	return len(a) - len(b)
}

// nodeHeap is a container/heap.Interface over *searchNode, ordered by
// less(), giving Dijkstra exploration a deterministic tie-break.
type nodeHeap []*searchNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].less(h[j]) }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *nodeHeap) Push(x interface{}) {
	n := x.(*searchNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// defaultScore charges 1 per hop; it is the default edge weight when no
// CostFunc is supplied.
func defaultScore(cambium.Properties) float64 { return 1 }

// score evaluates a converter's edge weight under opts.
func score(decl cambium.ConverterDecl, opts PlannerOptions) float64 {
	fn := opts.Cost
	if fn == nil {
		fn = defaultScore
	}
	v := fn(decl.Costs)
	if v < 0 {
		return 0
	}
	return v
}

// eligibleTransition reports whether a converter with the given
// cardinalities may be applied from a state of cardinality `from`, and if
// so, the cardinality of the resulting state.
func eligibleTransition(from cambium.Cardinality, decl cambium.ConverterDecl) (to cambium.Cardinality, ok bool) {
	switch from {
	case cambium.One:
		if decl.InputCardinality != cambium.One {
			return 0, false
		}
		return decl.OutputCardinality, true
	case cambium.Many:
		switch decl.InputCardinality {
		case cambium.Many:
			// Many->One or Many->Many: a direct aggregation/batch-map.
			return decl.OutputCardinality, true
		case cambium.One:
			// Only a (One,One) converter may apply element-wise under a
			// Many context; outputs remain Many. A (One,Many) converter
			// applied per-item would produce nested batches, which this
			// search never attempts.
			if decl.OutputCardinality == cambium.One {
				return cambium.Many, true
			}
			return 0, false
		}
	}
	return 0, false
}

// goalReached reports whether state satisfies target at the wanted
// output cardinality. When outCard is Many, a reached state of
// cardinality One also satisfies the goal: a single item is a valid
// batch of one. See DESIGN.md for the reasoning behind this reading.
func goalReached(state searchState, target cambium.PropertyPattern, outCard cambium.Cardinality) bool {
	if !target.Matches(state.props) {
		return false
	}
	if state.card == outCard {
		return true
	}
	return outCard == cambium.Many && state.card == cambium.One
}

// search runs a uniform-cost search over the converter graph and returns
// the optimal path of converter ids plus the final state, or ok=false if
// no path was found within the configured bounds.
func search(
	reg candidateRegistry,
	source cambium.Properties,
	target cambium.PropertyPattern,
	inCard, outCard cambium.Cardinality,
	opts PlannerOptions,
) (path []string, states []searchState, final searchState, totalScore float64, ok bool) {
	opts = opts.withDefaults()

	start := searchState{props: source, card: inCard}
	startNode := &searchNode{state: start, score: 0, hops: 0, path: nil}

	if goalReached(start, target, outCard) {
		return nil, nil, start, 0, true
	}

	h := &nodeHeap{}
	heap.Init(h)
	heap.Push(h, startNode)

	closed := make(map[string]bool)

	for h.Len() > 0 {
		node := heap.Pop(h).(*searchNode)
		key := node.state.hash()
		if closed[key] {
			continue
		}
		closed[key] = true

		if goalReached(node.state, target, outCard) {
			return node.path, node.states, node.state, node.score, true
		}

		if node.hops >= opts.MaxHops {
			continue
		}
		if node.state.props.Len() > opts.MaxBagSize {
			// Sink state: reachable, but never expanded further.
			continue
		}

		for _, conv := range reg.CandidatesFrom(node.state.props) {
			decl := conv.Decl()
			nextCard, eligible := eligibleTransition(node.state.card, decl)
			if !eligible {
				continue
			}
			nextProps := decl.Produces.Apply(node.state.props)
			nextState := searchState{props: nextProps, card: nextCard}
			if closed[nextState.hash()] {
				continue
			}

			nextPath := make([]string, len(node.path)+1)
			copy(nextPath, node.path)
			nextPath[len(node.path)] = decl.ID

			nextStates := make([]searchState, len(node.states)+1)
			copy(nextStates, node.states)
			nextStates[len(node.states)] = nextState

			heap.Push(h, &searchNode{
				state:  nextState,
				score:  node.score + score(decl, opts),
				hops:   node.hops + 1,
				path:   nextPath,
				states: nextStates,
			})
		}
	}

	return nil, nil, searchState{}, 0, false
}
