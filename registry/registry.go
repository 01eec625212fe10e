// Package registry holds a keyed collection of converters and lends
// candidate iteration to the planner. The registry is populated before
// planning begins and is treated as read-only thereafter.
package registry

import (
	"sort"
	"sync"

	"github.com/cambium/cambium"
)

// Registry is a thread-safe, read-mostly collection of converters keyed
// by ConverterDecl.ID.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]cambium.Converter
	order      []string // insertion order, for deterministic iteration
	hits       map[string]int64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		converters: make(map[string]cambium.Converter),
		hits:       make(map[string]int64),
	}
}

// Register adds conv to the registry. It fails with DuplicateIDError if a
// converter with the same id is already registered.
func (r *Registry) Register(conv cambium.Converter) error {
	id := conv.Decl().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.converters[id]; exists {
		return &cambium.DuplicateIDError{ID: id}
	}
	r.converters[id] = conv
	r.order = append(r.order, id)
	return nil
}

// Get returns the converter registered under id.
func (r *Registry) Get(id string) (cambium.Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.converters[id]
	return c, ok
}

// Iter returns all registered converters in registration order.
func (r *Registry) Iter() []cambium.Converter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]cambium.Converter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.converters[id])
	}
	return out
}

// Len reports the number of registered converters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// CandidatesFrom returns every converter whose Requires pattern matches
// props, sorted lexicographically by id so callers that iterate directly
// (bypassing the planner's own tie-break discipline) still see a
// deterministic order.
func (r *Registry) CandidatesFrom(props cambium.Properties) []cambium.Converter {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []cambium.Converter
	for _, id := range r.order {
		conv := r.converters[id]
		if conv.Decl().Requires.Matches(props) {
			out = append(out, conv)
			r.hits[id]++
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Decl().ID < out[j].Decl().ID
	})
	return out
}

// Stats returns, per converter id, how many times CandidatesFrom has
// returned it as a candidate. This is purely observational: it is never
// fed back into planning, since the scoring function is supplied by the
// caller and fixed for the lifetime of a Planner.
func (r *Registry) Stats() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.hits))
	for k, v := range r.hits {
		out[k] = v
	}
	return out
}
