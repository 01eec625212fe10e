package executor

import (
	"context"
	"sync"
	"time"

	"github.com/cambium/cambium"
	"github.com/cambium/cambium/budget"
	"github.com/cambium/cambium/observe"
	"github.com/cambium/cambium/planner"
	"github.com/cambium/cambium/registry"
)

// ParallelExecutor runs a plan's element-level (One,One) steps of a Many
// context across a worker pool, subject to per-item budget admission.
// Aggregation (Many->One) and expansion (One->Many) points are
// synchronization barriers: every step still waits for all of the
// previous step's work before starting.
type ParallelExecutor struct {
	pool      *WorkerPool
	collector *observe.Collector
}

// NewParallel builds a ParallelExecutor with workerCount worker goroutines
// (<=0 selects runtime.NumCPU()). A nil handler installs
// observe.NoopHandler.
func NewParallel(workerCount int, handler observe.Handler) *ParallelExecutor {
	return &ParallelExecutor{
		pool:      NewWorkerPool(workerCount),
		collector: observe.NewCollector(handler),
	}
}

// Execute runs plan against reg starting from input, admitting every
// intermediate output (or, for elementwise steps, every item) through mb.
// At most two generations of permits are held: the previous step's
// permits stay live while the step runs and its own output is admitted
// (item-by-item across the pool, or as a single unit), and are released
// only once that admission has succeeded, so outstanding reservations
// never grow with plan length. A deferred release covers the final live
// permits on every return path.
func (e *ParallelExecutor) Execute(ctx context.Context, plan *planner.Plan, reg *registry.Registry, input cambium.ConvertOutput, mb *budget.MemoryBudget) (cambium.ConvertOutput, error) {
	var live []*budget.Permit
	releaseLive := func() {
		for _, p := range live {
			p.Release()
		}
		live = nil
	}
	defer releaseLive()

	current := input
	for i, step := range plan.Steps {
		conv, err := resolve(reg, step, i)
		if err != nil {
			e.collector.StepFailedEvent(i, step.ConverterID, err)
			return cambium.ConvertOutput{}, err
		}

		decl := conv.Decl()
		items, isBatch := current.AsMulti()
		started := time.Now()
		e.collector.StepStartedEvent(i, step.ConverterID)

		// newPermits collects this step's own output permits, kept
		// distinct from `live` (the previous step's permits) so the two
		// generations are never confused on an error path.
		var mu sync.Mutex
		var newPermits []*budget.Permit
		addPermit := func(p *budget.Permit) {
			if p == nil {
				return
			}
			mu.Lock()
			newPermits = append(newPermits, p)
			mu.Unlock()
		}

		if isBatch && decl.InputCardinality == cambium.One {
			// Element-level (One,One) work: fan out across the pool.
			out, err := e.runElementwise(ctx, conv, items, i, mb, addPermit)
			if err != nil {
				e.collector.StepFailedEvent(i, step.ConverterID, err)
				for _, p := range newPermits {
					p.Release()
				}
				return cambium.ConvertOutput{}, err
			}
			releaseLive()
			live = newPermits
			e.collector.StepCompletedEvent(i, step.ConverterID, time.Since(started), int(byteLen(out)))
			current = out
			continue
		}

		// Aggregation (Many->One), expansion (One->Many), or a plain
		// (One,One)/(Many,Many) step: a barrier, run as a single unit.
		props := observedProps(current)
		out, err := runStep(ctx, conv, props, current, i)
		if err != nil {
			e.collector.StepFailedEvent(i, step.ConverterID, err)
			return cambium.ConvertOutput{}, err
		}
		permit, err := reserve(mb, byteLen(out), i, e.collector)
		if err != nil {
			e.collector.StepFailedEvent(i, step.ConverterID, err)
			return cambium.ConvertOutput{}, err
		}
		releaseLive()
		if permit != nil {
			live = []*budget.Permit{permit}
		}
		e.collector.StepCompletedEvent(i, step.ConverterID, time.Since(started), int(byteLen(out)))
		current = out
	}
	return current, nil
}

// runElementwise applies conv.Convert to every item in items across the
// worker pool, preserving input order in the result regardless of
// completion order, and admitting each item's output individually
// through mb.
func (e *ParallelExecutor) runElementwise(
	ctx context.Context,
	conv cambium.Converter,
	items []cambium.Item,
	index int,
	mb *budget.MemoryBudget,
	addPermit func(*budget.Permit),
) (cambium.ConvertOutput, error) {
	decl := conv.Decl()
	if decl.OutputCardinality != cambium.One {
		return cambium.ConvertOutput{}, planMismatch(index, decl.ID, cambium.NewProperties())
	}

	results := make([]cambium.Item, len(items))
	err := e.pool.Run(len(items), func(i int) error {
		if err := checkCancelled(ctx, index); err != nil {
			return err
		}
		if err := checkRequires(conv, items[i].Properties, index); err != nil {
			return err
		}
		out, err := conv.Convert(ctx, items[i].Bytes, items[i].Properties)
		if err != nil {
			return converterFailed(index, decl.ID, err)
		}
		single, err := singleOf(out, decl.ID, index)
		if err != nil {
			return err
		}
		permit, err := reserve(mb, int64(len(single.Bytes)), index, e.collector)
		if err != nil {
			return err
		}
		addPermit(permit)
		results[i] = single
		return nil
	})
	if err != nil {
		return cambium.ConvertOutput{}, err
	}

	if err := checkHomogeneous(results, decl.ID, index); err != nil {
		return cambium.ConvertOutput{}, err
	}
	return cambium.Multi(results), nil
}
