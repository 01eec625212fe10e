package executor

import (
	"context"
	"time"

	"github.com/cambium/cambium"
	"github.com/cambium/cambium/budget"
	"github.com/cambium/cambium/observe"
	"github.com/cambium/cambium/planner"
	"github.com/cambium/cambium/registry"
)

// BoundedExecutor runs a plan sequentially, reserving a permit for each
// converter's output against a MemoryBudget before accepting it. On
// denial, the remaining plan is aborted with BudgetExceededError.
type BoundedExecutor struct {
	collector *observe.Collector
}

// NewBounded builds a BoundedExecutor. A nil handler installs
// observe.NoopHandler.
func NewBounded(handler observe.Handler) *BoundedExecutor {
	return &BoundedExecutor{collector: observe.NewCollector(handler)}
}

// Execute runs plan against reg starting from input, admitting every
// intermediate output through mb. Only the permit for the output
// currently in flight is ever held: once a step has consumed the
// previous step's output to produce its own, the previous permit is
// released before the new one is reserved, so outstanding reservations
// never grow with plan length — a deferred release covers the final
// live permit on every return path (success, converter failure, or
// budget denial).
func (e *BoundedExecutor) Execute(ctx context.Context, plan *planner.Plan, reg *registry.Registry, input cambium.ConvertOutput, mb *budget.MemoryBudget) (cambium.ConvertOutput, error) {
	var live *budget.Permit
	defer func() { live.Release() }()

	current := input
	for i, step := range plan.Steps {
		conv, err := resolve(reg, step, i)
		if err != nil {
			e.collector.StepFailedEvent(i, step.ConverterID, err)
			return cambium.ConvertOutput{}, err
		}

		props := observedProps(current)
		e.collector.StepStartedEvent(i, step.ConverterID)
		started := time.Now()

		out, err := runStep(ctx, conv, props, current, i)
		if err != nil {
			e.collector.StepFailedEvent(i, step.ConverterID, err)
			return cambium.ConvertOutput{}, err
		}

		// current has been consumed by runStep; its permit can be
		// freed before admitting the new output.
		live.Release()
		live = nil

		permit, err := reserve(mb, byteLen(out), i, e.collector)
		if err != nil {
			e.collector.StepFailedEvent(i, step.ConverterID, err)
			return cambium.ConvertOutput{}, err
		}
		live = permit

		e.collector.StepCompletedEvent(i, step.ConverterID, time.Since(started), int(byteLen(out)))
		current = out
	}
	return current, nil
}
