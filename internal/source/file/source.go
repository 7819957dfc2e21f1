// Package file reads snapshots from a YAML document on disk.
//
// The document looks like:
//
//	name: Q1
//	columns:
//	  - field: Region
//	    type: string
//	  - field: Sales
//	    type: float
//	rows:
//	  - [East, 1500]
//	  - [West, 900]
package file

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/tablemirror/internal/core"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type document struct {
	Name    string        `yaml:"name"`
	Columns []core.Column `yaml:"columns"`
	Rows    [][]any       `yaml:"rows"`
}

// Source loads the whole file on every fetch.
type Source struct {
	path string
	name string
}

// NewSource creates a source for path. A non-empty name overrides the name
// stored in the file.
func NewSource(path, name string) *Source {
	return &Source{path: path, name: name}
}

// FetchSnapshot reads and decodes the file.
func (s *Source) FetchSnapshot(ctx context.Context) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	snap, err := Decode(data)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if s.name != "" {
		snap.Name = s.name
	}
	return snap, nil
}

// Decode parses a YAML snapshot document.
func Decode(data []byte) (core.Snapshot, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.Snapshot{}, err
	}

	columns := make([]core.Column, len(doc.Columns))
	for i, c := range doc.Columns {
		if c.FieldName == "" {
			return core.Snapshot{}, fmt.Errorf("column %d: missing field name", i+1)
		}
		columns[i] = core.Column{FieldName: c.FieldName, DataType: core.ParseDataType(string(c.DataType))}
	}

	rows := make([]core.Row, 0, len(doc.Rows))
	for r, values := range doc.Rows {
		if len(values) != len(columns) {
			return core.Snapshot{}, fmt.Errorf("row %d: got %d values, want %d", r+1, len(values), len(columns))
		}
		row := make(core.Row, len(columns))
		for c, v := range values {
			row[c] = core.NewCell(columns[c].DataType, coerce(columns[c].DataType, v))
		}
		rows = append(rows, row)
	}

	return core.Snapshot{Name: doc.Name, Columns: columns, Rows: rows}, nil
}

// coerce adapts YAML scalars to the declared column type.
func coerce(t core.DataType, v any) any {
	switch t {
	case core.TypeInt:
		if x, ok := v.(int); ok {
			return int64(x)
		}
	case core.TypeFloat:
		switch x := v.(type) {
		case int:
			return float64(x)
		case string:
			if n, ok := core.NumericValue(x); ok {
				return coerce(t, n)
			}
		case int64:
			return float64(x)
		}
	case core.TypeDate, core.TypeDateTime:
		if s, ok := v.(string); ok {
			for _, layout := range timeLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts
				}
			}
		}
	}
	return v
}
