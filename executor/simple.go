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

// SimpleExecutor runs a plan sequentially with no admission checks and no
// parallelism — the mode used when no memory bound is desired.
type SimpleExecutor struct {
	collector *observe.Collector
}

// NewSimple builds a SimpleExecutor. A nil handler installs
// observe.NoopHandler.
func NewSimple(handler observe.Handler) *SimpleExecutor {
	return &SimpleExecutor{collector: observe.NewCollector(handler)}
}

// Execute runs plan against reg starting from input. The budget parameter
// is accepted for interface symmetry with BoundedExecutor/ParallelExecutor
// but is never consulted (Simple performs no admission checks).
func (e *SimpleExecutor) Execute(ctx context.Context, plan *planner.Plan, reg *registry.Registry, input cambium.ConvertOutput, _ *budget.MemoryBudget) (cambium.ConvertOutput, error) {
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
		e.collector.StepCompletedEvent(i, step.ConverterID, time.Since(started), int(byteLen(out)))
		current = out
	}
	return current, nil
}

// observedProps returns the properties the executor actually observed at
// runtime for the current payload: the item's own properties for a
// single item, or the first batch item's properties as the representative
// bag for a Many payload.
func observedProps(out cambium.ConvertOutput) cambium.Properties {
	if item, ok := out.AsSingle(); ok {
		return item.Properties
	}
	if items, ok := out.AsMulti(); ok && len(items) > 0 {
		return items[0].Properties
	}
	return cambium.NewProperties()
}
