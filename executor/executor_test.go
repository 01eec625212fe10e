package executor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cambium/cambium"
	"github.com/cambium/cambium/planner"
	"github.com/cambium/cambium/registry"
)

// fakeConverter is a configurable test double: convertFn and batchFn
// control its behavior per test, so a single type covers success, error,
// and malformed-output cases.
type fakeConverter struct {
	decl      cambium.ConverterDecl
	convertFn func(ctx context.Context, data []byte, props cambium.Properties) (cambium.ConvertOutput, error)
	batchFn   func(ctx context.Context, items []cambium.Item, shared cambium.Properties) (cambium.ConvertOutput, error)
}

func (f fakeConverter) Decl() cambium.ConverterDecl { return f.decl }

func (f fakeConverter) Convert(ctx context.Context, data []byte, props cambium.Properties) (cambium.ConvertOutput, error) {
	if f.convertFn != nil {
		return f.convertFn(ctx, data, props)
	}
	return cambium.ConvertOutput{}, errors.New("Convert not implemented for this fake")
}

func (f fakeConverter) ConvertBatch(ctx context.Context, items []cambium.Item, shared cambium.Properties) (cambium.ConvertOutput, error) {
	if f.batchFn != nil {
		return f.batchFn(ctx, items, shared)
	}
	return cambium.ConvertOutput{}, errors.New("ConvertBatch not implemented for this fake")
}

func upperPattern(format string) cambium.PropertyPattern {
	return cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String(format)))
}

// upperConverter uppercases bytes and advances format "text/plain" ->
// "text/upper", a (One,One) step.
func upperConverter() fakeConverter {
	decl := cambium.ConverterDecl{
		ID:                "text.upper",
		Requires:          upperPattern("text/plain"),
		Produces:          upperPattern("text/upper"),
		InputCardinality:  cambium.One,
		OutputCardinality: cambium.One,
	}
	return fakeConverter{
		decl: decl,
		convertFn: func(_ context.Context, data []byte, props cambium.Properties) (cambium.ConvertOutput, error) {
			return cambium.Single([]byte(strings.ToUpper(string(data))), decl.Produces.Apply(props)), nil
		},
	}
}

// failingConverter always returns an error from Convert.
func failingConverter(id string, cause error) fakeConverter {
	return fakeConverter{
		decl: cambium.ConverterDecl{ID: id, Requires: cambium.Any(), Produces: cambium.Any(), InputCardinality: cambium.One, OutputCardinality: cambium.One},
		convertFn: func(context.Context, []byte, cambium.Properties) (cambium.ConvertOutput, error) {
			return cambium.ConvertOutput{}, cause
		},
	}
}

func buildRegistry(t *testing.T, converters ...cambium.Converter) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, c := range converters {
		require.NoError(t, r.Register(c))
	}
	return r
}

func onePlan(converterID string) *planner.Plan {
	return &planner.Plan{Steps: []planner.PlanStep{{ConverterID: converterID}}}
}
