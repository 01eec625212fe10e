package planner

import (
	"time"

	"github.com/cambium/cambium"
	"github.com/cambium/cambium/observe"
)

// Planner searches a candidateRegistry for minimum-cost conversion plans.
type Planner struct {
	registry  candidateRegistry
	options   PlannerOptions
	collector *observe.Collector
}

// New builds a Planner over reg with the given options. A nil handler
// installs observe.NoopHandler, the zero-overhead default.
func New(reg candidateRegistry, options PlannerOptions, handler observe.Handler) *Planner {
	return &Planner{
		registry:  reg,
		options:   options.withDefaults(),
		collector: observe.NewCollector(handler),
	}
}

// Options returns the planner's effective options.
func (p *Planner) Options() PlannerOptions { return p.options }

// Plan searches for a minimum-cost path from source (at cardinality
// inCard) to a state matching target (at cardinality outCard). It returns
// *cambium.NoPathError wrapped as a plain error when no plan exists within
// the configured bounds: the planner never returns a partial plan.
func (p *Planner) Plan(source cambium.Properties, target cambium.PropertyPattern, inCard, outCard cambium.Cardinality) (*Plan, error) {
	if p.options.Cache != nil {
		if cached, ok := p.options.Cache.Get(source, target, inCard, outCard, p.options); ok {
			return cached, nil
		}
	}

	sourceFormat, _ := source.Format()
	p.collector.PlanStartedEvent(sourceFormat)
	start := time.Now()

	path, states, final, totalScore, ok := search(p.registry, source, target, inCard, outCard, p.options)
	if !ok {
		err := &cambium.NoPathError{Source: source, Hops: p.options.MaxHops}
		p.collector.PlanFailedEvent(time.Since(start), err)
		return nil, err
	}

	plan := &Plan{Score: totalScore, FinalProperties: final.props}
	prev := source
	for i, id := range path {
		out := states[i].props
		plan.Steps = append(plan.Steps, PlanStep{
			ConverterID:      id,
			InputProjection:  prev,
			OutputProjection: out,
		})
		prev = out
	}
	if len(plan.Steps) == 0 {
		// source already satisfies target: a zero-step plan is not a
		// valid non-empty Plan, so this is reported as NoPath rather
		// than silently returned, keeping "a Plan is a non-empty
		// ordered sequence" an invariant callers can rely on.
		err := &cambium.NoPathError{Source: source, Hops: 0}
		p.collector.PlanFailedEvent(time.Since(start), err)
		return nil, err
	}

	p.collector.PlanCompletedEvent(time.Since(start), len(plan.Steps), plan.Score)

	if p.options.Cache != nil {
		p.options.Cache.Set(source, target, inCard, outCard, p.options, plan)
	}

	return plan, nil
}
