package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cambium/cambium"
	"github.com/cambium/cambium/planner"
)

func TestSimpleExecutorSingleStep(t *testing.T) {
	r := buildRegistry(t, upperConverter())
	plan := onePlan("text.upper")
	input := cambium.Single([]byte("hello"), cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("text/plain"))))

	exec := NewSimple(nil)
	out, err := exec.Execute(context.Background(), plan, r, input, nil)
	require.NoError(t, err)

	item, ok := out.AsSingle()
	require.True(t, ok)
	assert.Equal(t, []byte("HELLO"), item.Bytes)
	format, _ := item.Properties.Format()
	assert.Equal(t, "text/upper", format)
}

func TestSimpleExecutorPropagatesConverterError(t *testing.T) {
	cause := errors.New("boom")
	r := buildRegistry(t, failingConverter("broken", cause))
	plan := onePlan("broken")
	input := cambium.Single([]byte("x"), cambium.NewProperties())

	exec := NewSimple(nil)
	_, err := exec.Execute(context.Background(), plan, r, input, nil)
	require.Error(t, err)

	var execErr *cambium.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 0, execErr.StepIndex)

	var convErr *cambium.ConverterError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "broken", convErr.ID)
	assert.ErrorIs(t, err, cause)
}

func TestSimpleExecutorDetectsPlanRegistryDrift(t *testing.T) {
	r := buildRegistry(t) // empty registry
	plan := onePlan("nonexistent")
	input := cambium.Single([]byte("x"), cambium.NewProperties())

	exec := NewSimple(nil)
	_, err := exec.Execute(context.Background(), plan, r, input, nil)
	require.Error(t, err)

	var mismatch *cambium.PlanMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestSimpleExecutorDetectsRequiresMismatch(t *testing.T) {
	r := buildRegistry(t, upperConverter())
	plan := onePlan("text.upper")
	// Wrong input format: upperConverter requires "text/plain".
	input := cambium.Single([]byte("x"), cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("text/csv"))))

	exec := NewSimple(nil)
	_, err := exec.Execute(context.Background(), plan, r, input, nil)
	require.Error(t, err)

	var mismatch *cambium.PlanMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestSimpleExecutorRespectsCancellation(t *testing.T) {
	r := buildRegistry(t, upperConverter())
	plan := onePlan("text.upper")
	input := cambium.Single([]byte("x"), cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("text/plain"))))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := NewSimple(nil)
	_, err := exec.Execute(ctx, plan, r, input, nil)
	require.Error(t, err)

	var cancelled *cambium.CancelledError
	require.ErrorAs(t, err, &cancelled)
}

func TestSimpleExecutorMultiStepChain(t *testing.T) {
	toCSV := fakeConverter{
		decl: cambium.ConverterDecl{
			ID:                "plain.to-csv",
			Requires:          upperPattern("text/plain"),
			Produces:          upperPattern("text/csv"),
			InputCardinality:  cambium.One,
			OutputCardinality: cambium.One,
		},
	}
	toCSV.convertFn = func(_ context.Context, data []byte, props cambium.Properties) (cambium.ConvertOutput, error) {
		return cambium.Single(data, toCSV.decl.Produces.Apply(props)), nil
	}
	csvToRow := fakeConverter{
		decl: cambium.ConverterDecl{
			ID:                "csv.to-row",
			Requires:          upperPattern("text/csv"),
			Produces:          upperPattern("text/row"),
			InputCardinality:  cambium.One,
			OutputCardinality: cambium.One,
		},
	}
	csvToRow.convertFn = func(_ context.Context, data []byte, props cambium.Properties) (cambium.ConvertOutput, error) {
		return cambium.Single(data, csvToRow.decl.Produces.Apply(props)), nil
	}

	r := buildRegistry(t, toCSV, csvToRow)
	plan := &planner.Plan{Steps: []planner.PlanStep{
		{ConverterID: "plain.to-csv"},
		{ConverterID: "csv.to-row"},
	}}
	input := cambium.Single([]byte("a,b"), cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("text/plain"))))

	exec := NewSimple(nil)
	out, err := exec.Execute(context.Background(), plan, r, input, nil)
	require.NoError(t, err)

	item, _ := out.AsSingle()
	format, _ := item.Properties.Format()
	assert.Equal(t, "text/row", format)
}
