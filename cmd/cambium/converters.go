package main

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/cambium/cambium"
)

// sampleConverters returns a small, self-contained set of converters
// exercising three cardinality combinations: (One,One), (One,Many), and
// (Many,One) (there is no (Many,Many) sample), enough to drive "list", "plan", and "convert" end to end
// without any external format libraries.
func sampleConverters() []cambium.Converter {
	return []cambium.Converter{
		upperConverter{},
		csvToRowsConverter{},
		rowsToCSVConverter{},
		rowToJSONConverter{},
	}
}

// upperConverter turns "text/plain" bytes into "text/upper" bytes.
type upperConverter struct{}

func (upperConverter) Decl() cambium.ConverterDecl {
	return cambium.ConverterDecl{
		ID:                "text.upper",
		Description:       "uppercases plain text",
		Requires:          cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("text/plain"))),
		Produces:          cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("text/upper"))),
		InputCardinality:  cambium.One,
		OutputCardinality: cambium.One,
		Costs:             cambium.PropertiesOf(cambium.Kv("weight", cambium.Float(1))),
	}
}

func (c upperConverter) Convert(_ context.Context, data []byte, props cambium.Properties) (cambium.ConvertOutput, error) {
	out := c.Decl().Produces.Apply(props)
	return cambium.Single([]byte(strings.ToUpper(string(data))), out), nil
}

func (upperConverter) ConvertBatch(context.Context, []cambium.Item, cambium.Properties) (cambium.ConvertOutput, error) {
	return cambium.ConvertOutput{}, errors.New("text.upper is a (One,One) converter; ConvertBatch is never called for it")
}

// csvToRowsConverter fans a "text/csv" document out into one "text/csv-row"
// item per line, demonstrating an (One,Many) plan step.
type csvToRowsConverter struct{}

func (csvToRowsConverter) Decl() cambium.ConverterDecl {
	return cambium.ConverterDecl{
		ID:                "csv.to-rows",
		Description:       "splits a CSV document into per-line row items",
		Requires:          cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("text/csv"))),
		Produces:          cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("text/csv-row"))),
		InputCardinality:  cambium.One,
		OutputCardinality: cambium.Many,
		Costs:             cambium.PropertiesOf(cambium.Kv("weight", cambium.Float(1))),
	}
}

func (c csvToRowsConverter) Convert(_ context.Context, data []byte, props cambium.Properties) (cambium.ConvertOutput, error) {
	rowProps := c.Decl().Produces.Apply(props)
	lines := bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n"))
	items := make([]cambium.Item, 0, len(lines))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		items = append(items, cambium.Item{Bytes: line, Properties: rowProps})
	}
	return cambium.Multi(items), nil
}

func (csvToRowsConverter) ConvertBatch(context.Context, []cambium.Item, cambium.Properties) (cambium.ConvertOutput, error) {
	return cambium.ConvertOutput{}, errors.New("csv.to-rows is a (One,Many) converter; ConvertBatch is never called for it")
}

// rowsToCSVConverter fans a batch of "text/csv-row" items back in to a
// single "text/csv" document, demonstrating a (Many,One) plan step.
type rowsToCSVConverter struct{}

func (rowsToCSVConverter) Decl() cambium.ConverterDecl {
	return cambium.ConverterDecl{
		ID:                "rows.to-csv",
		Description:       "joins row items back into a CSV document",
		Requires:          cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("text/csv-row"))),
		Produces:          cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("text/csv"))),
		InputCardinality:  cambium.Many,
		OutputCardinality: cambium.One,
		Costs:             cambium.PropertiesOf(cambium.Kv("weight", cambium.Float(1))),
	}
}

func (c rowsToCSVConverter) Convert(context.Context, []byte, cambium.Properties) (cambium.ConvertOutput, error) {
	return cambium.ConvertOutput{}, errors.New("rows.to-csv is a (Many,One) converter; Convert is never called for it")
}

func (c rowsToCSVConverter) ConvertBatch(_ context.Context, items []cambium.Item, shared cambium.Properties) (cambium.ConvertOutput, error) {
	out := c.Decl().Produces.Apply(shared)
	var buf bytes.Buffer
	for i, it := range items {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(it.Bytes)
	}
	return cambium.Single(buf.Bytes(), out), nil
}

// rowToJSONConverter converts a single "text/csv-row" item into a
// "application/json" item, elementwise under a Many context.
type rowToJSONConverter struct{}

func (rowToJSONConverter) Decl() cambium.ConverterDecl {
	return cambium.ConverterDecl{
		ID:                "csv-row.to-json",
		Description:       "wraps one CSV row as a JSON array literal",
		Requires:          cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("text/csv-row"))),
		Produces:          cambium.NewPattern(cambium.Eq(cambium.KeyFormat, cambium.String("application/json"))),
		InputCardinality:  cambium.One,
		OutputCardinality: cambium.One,
		Costs:             cambium.PropertiesOf(cambium.Kv("weight", cambium.Float(2))),
	}
}

func (c rowToJSONConverter) Convert(_ context.Context, data []byte, props cambium.Properties) (cambium.ConvertOutput, error) {
	out := c.Decl().Produces.Apply(props)
	fields := bytes.Split(data, []byte(","))
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.Write(bytes.ReplaceAll(f, []byte(`"`), []byte(`\"`)))
		buf.WriteByte('"')
	}
	buf.WriteByte(']')
	return cambium.Single(buf.Bytes(), out), nil
}

func (rowToJSONConverter) ConvertBatch(context.Context, []cambium.Item, cambium.Properties) (cambium.ConvertOutput, error) {
	return cambium.ConvertOutput{}, errors.New("csv-row.to-json is a (One,One) converter; ConvertBatch is never called for it")
}
