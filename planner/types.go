// Package planner performs a multi-objective shortest-path search over a
// registry of converters, producing a Plan that carries source properties
// to a target pattern.
package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/cambium/cambium"
)

// PlanStep is one converter application within a Plan.
type PlanStep struct {
	ConverterID      string
	InputProjection  cambium.Properties
	OutputProjection cambium.Properties
}

// Plan is a non-empty ordered sequence of PlanSteps plus the residual
// properties the final output bag will carry. Every two adjacent steps
// satisfy: step i's output pattern satisfies step i+1's requires. A Plan
// is immutable once returned by Planner.Plan.
type Plan struct {
	Steps           []PlanStep
	FinalProperties cambium.Properties
	Score           float64
}

// Explain renders a step-by-step human-readable trace of the chosen path
// and its score, letting a caller audit why a particular path won over
// the alternatives the search considered.
func (p *Plan) Explain() string {
	var b strings.Builder
	fmt.Fprintf(&b, "plan (%d step(s), score %g):\n", len(p.Steps), p.Score)
	for i, step := range p.Steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step.ConverterID)
	}
	return b.String()
}

// ConverterIDs returns the ordered sequence of converter ids in the plan.
// This is the sequence compared lexicographically for tie-breaking and
// hashed by Fingerprint.
func (p *Plan) ConverterIDs() []string {
	out := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		out[i] = step.ConverterID
	}
	return out
}

// Fingerprint returns a stable hash of the plan's ordered converter-id
// sequence. Neither the plan Cache (which keys on the planning inputs) nor
// overlay/planstore (which takes a caller-supplied key) calls it.
func (p *Plan) Fingerprint() string {
	h := sha256.New()
	for _, id := range p.ConverterIDs() {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CostFunc evaluates a converter's declared costs bag to a score. The
// expression language itself is a concern for the caller to own; the
// core only consumes the evaluated number. A nil CostFunc selects the
// default scoring of 1 per hop.
type CostFunc func(costs cambium.Properties) float64

// PlannerOptions configures search bounds and scoring. The zero value is
// usable: New fills in the documented defaults.
type PlannerOptions struct {
	// MaxHops bounds exploration depth. Default 16.
	MaxHops int
	// MaxBagSize bounds property-bag growth; bags beyond this are treated
	// as sink states with no further expansion. Default 256.
	MaxBagSize int
	// Cost scores a converter from its declared costs bag. Nil selects
	// the default: 1 per hop.
	Cost CostFunc
	// Cache, if set, memoizes Plan results for identical (source, target,
	// cardinalities, options) tuples.
	Cache *Cache
}

const (
	defaultMaxHops    = 16
	defaultMaxBagSize = 256
)

func (o PlannerOptions) withDefaults() PlannerOptions {
	if o.MaxHops <= 0 {
		o.MaxHops = defaultMaxHops
	}
	if o.MaxBagSize <= 0 {
		o.MaxBagSize = defaultMaxBagSize
	}
	return o
}

// cacheTTLDefault is how long a cached plan remains eligible for reuse
// before Cache.Get treats it as stale.
const cacheTTLDefault = 5 * time.Minute
