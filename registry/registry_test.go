package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cambium/cambium"
)

type stubConverter struct {
	decl cambium.ConverterDecl
}

func (s stubConverter) Decl() cambium.ConverterDecl { return s.decl }
func (s stubConverter) Convert(context.Context, []byte, cambium.Properties) (cambium.ConvertOutput, error) {
	return cambium.ConvertOutput{}, nil
}
func (s stubConverter) ConvertBatch(context.Context, []cambium.Item, cambium.Properties) (cambium.ConvertOutput, error) {
	return cambium.ConvertOutput{}, nil
}

func converter(id string, requires cambium.PropertyPattern) stubConverter {
	return stubConverter{decl: cambium.ConverterDecl{
		ID:                id,
		Requires:          requires,
		Produces:          cambium.Any(),
		InputCardinality:  cambium.One,
		OutputCardinality: cambium.One,
	}}
}

func TestRegisterRejectsDuplicateIDs(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(converter("a", cambium.Any())))

	err := r.Register(converter("a", cambium.Any()))
	require.Error(t, err)
	var dup *cambium.DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.ID)
}

func TestGetAndIterOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(converter("b", cambium.Any())))
	require.NoError(t, r.Register(converter("a", cambium.Any())))

	_, ok := r.Get("missing")
	assert.False(t, ok)

	c, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", c.Decl().ID)

	var order []string
	for _, conv := range r.Iter() {
		order = append(order, conv.Decl().ID)
	}
	assert.Equal(t, []string{"b", "a"}, order, "Iter must preserve registration order, not sort")
	assert.Equal(t, 2, r.Len())
}

func TestCandidatesFromFiltersAndSorts(t *testing.T) {
	r := New()
	jsonOnly := cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("json")))
	require.NoError(t, r.Register(converter("z.json", jsonOnly)))
	require.NoError(t, r.Register(converter("a.json", jsonOnly)))
	require.NoError(t, r.Register(converter("a.csv", cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("csv"))))))

	candidates := r.CandidatesFrom(cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("json"))))
	require.Len(t, candidates, 2)
	assert.Equal(t, "a.json", candidates[0].Decl().ID, "candidates must be sorted lexicographically by id")
	assert.Equal(t, "z.json", candidates[1].Decl().ID)

	stats := r.Stats()
	assert.Equal(t, int64(1), stats["a.json"])
	assert.Equal(t, int64(1), stats["z.json"])
	assert.Equal(t, int64(0), stats["a.csv"], "a.csv never matched, so it accrues no hits")
}
