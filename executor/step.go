package executor

import (
	"context"

	"github.com/cambium/cambium"
)

// runStep performs one plan step sequentially: dispatch to Convert or
// ConvertBatch depending on the converter's declared input cardinality
// and the shape of input, enforcing the matching guard first. Elementwise
// (One,One)-under-Many steps are processed in input order, one item at a
// time; ParallelExecutor reuses checkRequires/singleOf/checkHomogeneous
// but fans the per-item Convert calls across a worker pool instead of
// calling runStep directly (see parallel.go).
func runStep(ctx context.Context, conv cambium.Converter, currentProps cambium.Properties, input cambium.ConvertOutput, index int) (cambium.ConvertOutput, error) {
	decl := conv.Decl()

	if err := checkRequires(conv, currentProps, index); err != nil {
		return cambium.ConvertOutput{}, err
	}
	if err := checkCancelled(ctx, index); err != nil {
		return cambium.ConvertOutput{}, err
	}

	if item, ok := input.AsSingle(); ok {
		if decl.InputCardinality != cambium.One {
			return cambium.ConvertOutput{}, planMismatch(index, decl.ID, currentProps)
		}
		out, err := conv.Convert(ctx, item.Bytes, item.Properties)
		if err != nil {
			return cambium.ConvertOutput{}, converterFailed(index, decl.ID, err)
		}
		if err := validateShape(out, decl.OutputCardinality, decl.ID, index); err != nil {
			return cambium.ConvertOutput{}, err
		}
		return out, nil
	}

	items, ok := input.AsMulti()
	if !ok {
		return cambium.ConvertOutput{}, planMismatch(index, decl.ID, currentProps)
	}

	switch decl.InputCardinality {
	case cambium.Many:
		out, err := conv.ConvertBatch(ctx, items, currentProps)
		if err != nil {
			return cambium.ConvertOutput{}, converterFailed(index, decl.ID, err)
		}
		if err := validateShape(out, decl.OutputCardinality, decl.ID, index); err != nil {
			return cambium.ConvertOutput{}, err
		}
		return out, nil

	case cambium.One:
		if decl.OutputCardinality != cambium.One {
			return cambium.ConvertOutput{}, planMismatch(index, decl.ID, currentProps)
		}
		outItems := make([]cambium.Item, len(items))
		for i, it := range items {
			if err := checkCancelled(ctx, index); err != nil {
				return cambium.ConvertOutput{}, err
			}
			single, err := conv.Convert(ctx, it.Bytes, it.Properties)
			if err != nil {
				return cambium.ConvertOutput{}, converterFailed(index, decl.ID, err)
			}
			outItem, err := singleOf(single, decl.ID, index)
			if err != nil {
				return cambium.ConvertOutput{}, err
			}
			outItems[i] = outItem
		}
		if err := checkHomogeneous(outItems, decl.ID, index); err != nil {
			return cambium.ConvertOutput{}, err
		}
		return cambium.Multi(outItems), nil

	default:
		return cambium.ConvertOutput{}, planMismatch(index, decl.ID, currentProps)
	}
}

// validateShape confirms a converter's raw output matches its declared
// output cardinality: a One-output converter must return Single, a
// Many-output converter must return Multi.
func validateShape(out cambium.ConvertOutput, wantCard cambium.Cardinality, convID string, index int) error {
	if wantCard == cambium.One {
		_, err := singleOf(out, convID, index)
		return err
	}
	_, err := multiOf(out, convID, index)
	return err
}

func planMismatch(index int, convID string, props cambium.Properties) error {
	return &cambium.ExecutionError{StepIndex: index, Cause: &cambium.PlanMismatchError{
		StepIndex: index, ConverterID: convID, Properties: props,
	}}
}

func converterFailed(index int, convID string, cause error) error {
	return &cambium.ExecutionError{StepIndex: index, Cause: &cambium.ConverterError{ID: convID, Cause: cause}}
}

// checkHomogeneous enforces an intra-batch property check: the planner
// assumes a single representative bag for planning purposes, but real
// converters may disagree item-to-item, so the executor verifies every
// item's properties agree with the first before trusting the batch as a
// unit going forward.
func checkHomogeneous(items []cambium.Item, convID string, index int) error {
	if len(items) < 2 {
		return nil
	}
	first := items[0].Properties
	for i := 1; i < len(items); i++ {
		if !items[i].Properties.Equal(first) {
			return &cambium.ExecutionError{StepIndex: index, Cause: &cambium.HeterogeneousBatchError{
				ConverterID: convID, Index: i, Key: firstDifferingKey(first, items[i].Properties),
			}}
		}
	}
	return nil
}

func firstDifferingKey(a, b cambium.Properties) string {
	for _, k := range a.Keys() {
		va, _ := a.Get(k)
		vb, ok := b.Get(k)
		if !ok || !va.Equal(vb) {
			return k
		}
	}
	for _, k := range b.Keys() {
		if !a.Has(k) {
			return k
		}
	}
	return ""
}
