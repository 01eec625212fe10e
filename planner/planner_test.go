package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cambium/cambium"
	"github.com/cambium/cambium/registry"
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

func sameFormat(format string) cambium.PropertyPattern {
	return cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String(format)))
}

func hop(id, from, to string, cost float64) stubConverter {
	return stubConverter{decl: cambium.ConverterDecl{
		ID:                id,
		Requires:          sameFormat(from),
		Produces:          sameFormat(to),
		InputCardinality:  cambium.One,
		OutputCardinality: cambium.One,
		Costs:             cambium.PropertiesOf(cambium.Kv("weight", cambium.Float(cost))),
	}}
}

func buildRegistry(t *testing.T, converters ...stubConverter) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, c := range converters {
		require.NoError(t, r.Register(c))
	}
	return r
}

func TestPlanDirectOneHop(t *testing.T) {
	r := buildRegistry(t, hop("json.to-yaml", "json", "yaml", 1))
	p := New(r, PlannerOptions{}, nil)

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("json")))
	plan, err := p.Plan(source, sameFormat("yaml"), cambium.One, cambium.One)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "json.to-yaml", plan.Steps[0].ConverterID)
	assert.Equal(t, float64(1), plan.Score)
}

func TestPlanTwoHopTransitive(t *testing.T) {
	r := buildRegistry(t,
		hop("json.to-yaml", "json", "yaml", 1),
		hop("yaml.to-toml", "yaml", "toml", 1),
	)
	p := New(r, PlannerOptions{}, nil)

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("json")))
	plan, err := p.Plan(source, sameFormat("toml"), cambium.One, cambium.One)
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, []string{"json.to-yaml", "yaml.to-toml"}, plan.ConverterIDs())
}

func TestPlanPrefersLowerCostPath(t *testing.T) {
	r := buildRegistry(t,
		hop("json.to-toml.direct", "json", "toml", 5),
		hop("json.to-yaml", "json", "yaml", 1),
		hop("yaml.to-toml", "yaml", "toml", 1),
	)
	// Score each hop by its declared weight; the default (1 per hop) would
	// pick the direct route.
	weight := func(costs cambium.Properties) float64 {
		v, _ := costs.Get("weight")
		w, _ := v.AsFloat()
		return w
	}
	p := New(r, PlannerOptions{Cost: weight}, nil)

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("json")))
	plan, err := p.Plan(source, sameFormat("toml"), cambium.One, cambium.One)
	require.NoError(t, err)

	assert.Equal(t, []string{"json.to-yaml", "yaml.to-toml"}, plan.ConverterIDs(),
		"the two-hop path costs 2 total, cheaper than the direct hop's cost of 5")
	assert.Equal(t, float64(2), plan.Score)
}

func TestPlanTieBreaksLexicographically(t *testing.T) {
	r := buildRegistry(t,
		hop("json.to-yaml-b", "json", "yaml", 1),
		hop("json.to-yaml-a", "json", "yaml", 1),
	)
	p := New(r, PlannerOptions{}, nil)

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("json")))
	plan, err := p.Plan(source, sameFormat("yaml"), cambium.One, cambium.One)
	require.NoError(t, err)

	assert.Equal(t, "json.to-yaml-a", plan.Steps[0].ConverterID,
		"equal-cost, equal-hop paths must break ties on the lexicographically smaller id")
}

func TestPlanReturnsNoPathWhenUnreachable(t *testing.T) {
	r := buildRegistry(t, hop("json.to-yaml", "json", "yaml", 1))
	p := New(r, PlannerOptions{}, nil)

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("json")))
	_, err := p.Plan(source, sameFormat("xml"), cambium.One, cambium.One)
	require.Error(t, err)

	var noPath *cambium.NoPathError
	require.ErrorAs(t, err, &noPath)
}

func TestPlanRejectsAlreadySatisfiedSourceAsZeroStepPlan(t *testing.T) {
	r := buildRegistry(t, hop("json.to-yaml", "json", "yaml", 1))
	p := New(r, PlannerOptions{}, nil)

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("json")))
	_, err := p.Plan(source, sameFormat("json"), cambium.One, cambium.One)
	require.Error(t, err, "a Plan is a non-empty sequence; a source that already satisfies target has no valid Plan")

	var noPath *cambium.NoPathError
	require.ErrorAs(t, err, &noPath)
}

func TestPlanHonorsMaxHops(t *testing.T) {
	r := buildRegistry(t,
		hop("a-to-b", "a", "b", 1),
		hop("b-to-c", "b", "c", 1),
		hop("c-to-d", "c", "d", 1),
	)
	p := New(r, PlannerOptions{MaxHops: 2}, nil)

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("a")))
	_, err := p.Plan(source, sameFormat("d"), cambium.One, cambium.One)
	require.Error(t, err, "reaching format d takes 3 hops, exceeding the configured bound of 2")
}

func TestPlanCustomCostFunc(t *testing.T) {
	r := buildRegistry(t,
		hop("json.to-toml.direct", "json", "toml", 5),
		hop("json.to-yaml", "json", "yaml", 1),
		hop("yaml.to-toml", "yaml", "toml", 1),
	)
	// A cost function that charges a large fixed penalty per hop makes the
	// direct route cheaper than the two-hop route, flipping the outcome of
	// the weight-only scoring in TestPlanPrefersLowerCostPath.
	cost := func(costs cambium.Properties) float64 {
		v, _ := costs.Get("weight")
		w, _ := v.AsFloat()
		return w + 10
	}
	p := New(r, PlannerOptions{Cost: cost}, nil)

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("json")))
	plan, err := p.Plan(source, sameFormat("toml"), cambium.One, cambium.One)
	require.NoError(t, err)

	assert.Equal(t, []string{"json.to-toml.direct"}, plan.ConverterIDs())
}

func TestPlanUsesCache(t *testing.T) {
	r := buildRegistry(t, hop("json.to-yaml", "json", "yaml", 1))
	cache := NewCache(10, 0)
	p := New(r, PlannerOptions{Cache: cache}, nil)

	source := cambium.PropertiesOf(cambium.Kv(cambium.KeyFormat, cambium.String("json")))
	first, err := p.Plan(source, sameFormat("yaml"), cambium.One, cambium.One)
	require.NoError(t, err)

	second, err := p.Plan(source, sameFormat("yaml"), cambium.One, cambium.One)
	require.NoError(t, err)

	assert.Same(t, first, second, "an identical request must be served from cache")
	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}
