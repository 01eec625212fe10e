package cambium

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertOutputSingle(t *testing.T) {
	props := PropertiesOf(Kv(KeyFormat, String("json")))
	out := Single([]byte("{}"), props)

	assert.Equal(t, OutputSingle, out.Kind())
	item, ok := out.AsSingle()
	require.True(t, ok)
	assert.Equal(t, []byte("{}"), item.Bytes)

	_, ok = out.AsMulti()
	assert.False(t, ok, "a Single output must not answer AsMulti")
}

func TestConvertOutputMultiPreservesOrder(t *testing.T) {
	items := []Item{
		{Bytes: []byte("a"), Properties: NewProperties()},
		{Bytes: []byte("b"), Properties: NewProperties()},
	}
	out := Multi(items)
	items = append(items, Item{Bytes: []byte("c")}) // mutate caller's slice header after handing it to Multi

	got, ok := out.AsMulti()
	require.True(t, ok)
	require.Len(t, got, 2, "Multi must copy the slice header, so appending to the caller's slice must not grow the stored batch")
	assert.Equal(t, []byte("a"), got[0].Bytes)
	assert.Equal(t, []byte("b"), got[1].Bytes)

	_, ok = out.AsSingle()
	assert.False(t, ok, "a Multi output must not answer AsSingle")
}
