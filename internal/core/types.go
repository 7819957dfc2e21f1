package core

import (
	"context"
	"strings"

	"github.com/JonMunkholm/tablemirror/internal/layout"
)

// DataType is the declared type of a column as reported by the data source.
type DataType string

const (
	TypeString   DataType = "string"
	TypeInt      DataType = "int"
	TypeFloat    DataType = "float"
	TypeDate     DataType = "date"
	TypeDateTime DataType = "date-time"
	TypeBool     DataType = "bool"
	TypeSpatial  DataType = "spatial"
	TypeUnknown  DataType = "unknown"
)

// ParseDataType maps a source type name onto a DataType.
// Unrecognized names map to TypeUnknown.
func ParseDataType(s string) DataType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return TypeString
	case "int", "integer":
		return TypeInt
	case "float", "real", "double", "number":
		return TypeFloat
	case "date":
		return TypeDate
	case "date-time", "datetime", "timestamp":
		return TypeDateTime
	case "bool", "boolean":
		return TypeBool
	case "spatial":
		return TypeSpatial
	default:
		return TypeUnknown
	}
}

// IsNumeric reports whether values of this type are exported as numbers.
func (t DataType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// Column describes one field of a snapshot. Its identity is its position.
type Column struct {
	FieldName string   `json:"fieldName" yaml:"field"`
	DataType  DataType `json:"dataType" yaml:"type"`
}

// Cell holds a raw value and its on-screen representation.
// Raw is one of float64, int64, string, time.Time, bool or nil.
type Cell struct {
	Raw     any    `json:"raw"`
	Display string `json:"display"`
}

// Row is one record, with one Cell per Column.
type Row []Cell

// Snapshot is one complete fetch of columns and rows from the source.
type Snapshot struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// Source delivers snapshots of the external dataset.
type Source interface {
	FetchSnapshot(ctx context.Context) (Snapshot, error)
}

// Renderer receives fully resolved tables to paint.
// Implementations must return promptly; the orchestrator waits for them.
type Renderer interface {
	RenderTable(columns []Column, displayName func(int) string, rows []Row, l layout.Layout)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(columns []Column, displayName func(int) string, rows []Row, l layout.Layout)

// RenderTable calls f.
func (f RendererFunc) RenderTable(columns []Column, displayName func(int) string, rows []Row, l layout.Layout) {
	f(columns, displayName, rows, l)
}

// Notifier accepts change signals from a signal producer.
type Notifier interface {
	Notify(ctx context.Context, sig ChangeSignal) error
}
