// Package executor walks a Plan, honoring memory admission, fan-out/fan-in
// expansion, and deterministic batch ordering. Three modes are provided:
// SimpleExecutor (sequential, unbounded), BoundedExecutor (sequential,
// budget-admitted), and ParallelExecutor (a worker pool over element-level
// (One,One) steps within a Many context).
package executor

import (
	"context"

	"github.com/cambium/cambium"
	"github.com/cambium/cambium/budget"
	"github.com/cambium/cambium/observe"
	"github.com/cambium/cambium/planner"
	"github.com/cambium/cambium/registry"
)

// State names a point in the per-execution state machine:
// Pending -> Running -> (Success | Failed | Aborted).
type State int

const (
	Pending State = iota
	Running
	Success
	Failed
	Aborted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Executor runs a Plan against a Registry, starting from input (a single
// Item or a batch, expressed via cambium.ConvertOutput's Single/Multi
// shape) and honoring budget admission.
type Executor interface {
	Execute(ctx context.Context, plan *planner.Plan, reg *registry.Registry, input cambium.ConvertOutput, mb *budget.MemoryBudget) (cambium.ConvertOutput, error)
}

// resolve looks up a plan step's converter, or reports plan/registry
// drift: plans hold converter ids, not converter references, so the
// executor resolves ids against the registry on demand.
func resolve(reg *registry.Registry, step planner.PlanStep, index int) (cambium.Converter, error) {
	conv, ok := reg.Get(step.ConverterID)
	if !ok {
		return nil, &cambium.ExecutionError{StepIndex: index, Cause: &cambium.PlanMismatchError{
			StepIndex:   index,
			ConverterID: step.ConverterID,
		}}
	}
	return conv, nil
}

// checkRequires is the matching guard run before invoking a converter:
// the executor verifies its Requires pattern is satisfied by the
// properties actually observed at runtime. A mismatch never silently
// succeeds.
func checkRequires(conv cambium.Converter, props cambium.Properties, index int) error {
	if !conv.Decl().Requires.Matches(props) {
		return &cambium.ExecutionError{StepIndex: index, Cause: &cambium.PlanMismatchError{
			StepIndex:   index,
			ConverterID: conv.Decl().ID,
			Properties:  props,
		}}
	}
	return nil
}

// checkCancelled implements cooperative cancellation: a cancellation
// flag (here, ctx.Err()) is checked before each converter invocation (per
// item for elementwise steps). Permit reservations are not preceded by a
// separate check. Cancellation after a converter has started does not
// interrupt it.
func checkCancelled(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return &cambium.ExecutionError{StepIndex: index, Cause: &cambium.CancelledError{StepIndex: index}}
	}
	return nil
}

// reserve admits n bytes against mb, or returns the budget-exceeded error
// wrapped with the failing step index. mb may be nil, modeling an
// unbounded budget (e.g. a ParallelExecutor run without a budget).
func reserve(mb *budget.MemoryBudget, n int64, index int, collector *observe.Collector) (*budget.Permit, error) {
	if mb == nil {
		return nil, nil
	}
	permit, err := mb.Reserve(n)
	if err != nil {
		if be, ok := err.(*cambium.BudgetExceededError); ok && collector != nil {
			collector.PermitDeniedEvent(be.Requested, be.Available)
		}
		return nil, &cambium.ExecutionError{StepIndex: index, Cause: err}
	}
	if collector != nil {
		collector.PermitReservedEvent(permit.ID, permit.Size())
	}
	return permit, nil
}

// singleOf adapts a One-output ConvertOutput to an Item, enforcing that a
// converter declared to produce One actually returned a Single result.
func singleOf(out cambium.ConvertOutput, convID string, index int) (cambium.Item, error) {
	item, ok := out.AsSingle()
	if !ok {
		return cambium.Item{}, &cambium.ExecutionError{StepIndex: index, Cause: &cambium.ConverterError{
			ID: convID, Cause: errMismatchedOutput{expected: "Single", got: out.Kind()},
		}}
	}
	return item, nil
}

// multiOf adapts a Many-output ConvertOutput to a batch, enforcing that a
// converter declared to produce Many actually returned a Multi result.
func multiOf(out cambium.ConvertOutput, convID string, index int) ([]cambium.Item, error) {
	items, ok := out.AsMulti()
	if !ok {
		return nil, &cambium.ExecutionError{StepIndex: index, Cause: &cambium.ConverterError{
			ID: convID, Cause: errMismatchedOutput{expected: "Multi", got: out.Kind()},
		}}
	}
	return items, nil
}

type errMismatchedOutput struct {
	expected string
	got      cambium.OutputKind
}

func (e errMismatchedOutput) Error() string {
	return "converter returned the wrong output shape, expected " + e.expected
}

// byteLen returns the number of bytes an Item or batch of Items occupies,
// for budget accounting.
func byteLen(out cambium.ConvertOutput) int64 {
	if item, ok := out.AsSingle(); ok {
		return int64(len(item.Bytes))
	}
	if items, ok := out.AsMulti(); ok {
		var total int64
		for _, it := range items {
			total += int64(len(it.Bytes))
		}
		return total
	}
	return 0
}
