package cambium

import "context"

// ConverterDecl is an immutable declarative I/O contract. Id is unique
// within a registry; Requires never references output-only keys; Costs
// values are non-negative finite numbers. Converter id format is
// documentary: "{group}.{from}-to-{to}", lowercase, dash-separated.
type ConverterDecl struct {
	ID                string
	Description       string
	Requires          PropertyPattern
	Produces          PropertyPattern
	InputCardinality  Cardinality
	OutputCardinality Cardinality
	Costs             Properties
}

// Item is a single (bytes, properties) pair flowing through the executor.
type Item struct {
	Bytes      []byte
	Properties Properties
}

// OutputKind tags the variant held by a ConvertOutput.
type OutputKind int

const (
	OutputSingle OutputKind = iota
	OutputMulti
)

// ConvertOutput is the result of a converter invocation: either a Single
// item or a Multi batch of items.
type ConvertOutput struct {
	kind  OutputKind
	item  Item
	items []Item
}

// Single wraps a single-item conversion result.
func Single(bytes []byte, props Properties) ConvertOutput {
	return ConvertOutput{kind: OutputSingle, item: Item{Bytes: bytes, Properties: props}}
}

// Multi wraps a batch conversion result. Insertion order is preserved;
// the executor never reorders a Multi result.
func Multi(items []Item) ConvertOutput {
	cp := make([]Item, len(items))
	copy(cp, items)
	return ConvertOutput{kind: OutputMulti, items: cp}
}

// Kind reports which variant is held.
func (o ConvertOutput) Kind() OutputKind { return o.kind }

// AsSingle returns the single item and whether o holds OutputSingle.
func (o ConvertOutput) AsSingle() (Item, bool) { return o.item, o.kind == OutputSingle }

// AsMulti returns the batch and whether o holds OutputMulti.
func (o ConvertOutput) AsMulti() ([]Item, bool) {
	if o.kind != OutputMulti {
		return nil, false
	}
	out := make([]Item, len(o.items))
	copy(out, o.items)
	return out, true
}

// Converter is the capability set the core requires from a concrete
// transformation: its declarative contract plus one or both conversion
// entry points, selected by its declared cardinalities. Converters must
// not mutate shared state and must be safe to invoke concurrently;
// converters own the bytes they return, and the executor takes ownership
// of them by move (never mutating or retaining the input bytes after
// returning).
type Converter interface {
	// Decl returns the converter's immutable declaration.
	Decl() ConverterDecl

	// Convert runs a One-input conversion. Used when InputCardinality is
	// One; for OutputCardinality Many it returns a Multi ConvertOutput.
	Convert(ctx context.Context, bytes []byte, props Properties) (ConvertOutput, error)

	// ConvertBatch runs a Many-input conversion over an ordered batch,
	// given the batch's shared planning-relevant properties. Used when
	// InputCardinality is Many.
	ConvertBatch(ctx context.Context, items []Item, shared Properties) (ConvertOutput, error)
}
