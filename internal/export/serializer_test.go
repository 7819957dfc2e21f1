package export

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/tablemirror/internal/core"
)

func salesModel() *core.Model {
	m := core.NewModel()
	m.Replace(core.Snapshot{
		Name: "Q1",
		Columns: []core.Column{
			{FieldName: "Region", DataType: core.TypeString},
			{FieldName: "Sales", DataType: core.TypeFloat},
		},
		Rows: []core.Row{
			{core.NewCell(core.TypeString, "East"), core.NewCell(core.TypeFloat, 1500.0)},
		},
	})
	return m
}

func openDoc(t *testing.T, doc *Document) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func rawRows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

func TestSerialize_QuarterExample(t *testing.T) {
	m := salesModel()
	m.Rename(1, "Revenue")

	doc, err := NewSerializer(DefaultOptions(), nil).Serialize(m, "Q1", "")
	require.NoError(t, err)

	assert.Equal(t, "Q1.xlsx", doc.FileName)
	assert.Equal(t, "Q1", doc.SheetName)
	assert.Equal(t, ContentTypeXLSX, doc.ContentType)

	f := openDoc(t, doc)
	assert.Equal(t, []string{"Q1"}, f.GetSheetList())

	rows := rawRows(t, f, "Q1")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Row Index", "Region", "Revenue"}, rows[0])
	assert.Equal(t, []string{"1", "East", "1500"}, rows[1])

	// The numeric cell is a number, not text.
	typ, err := f.GetCellType("Q1", "C2")
	require.NoError(t, err)
	assert.NotContains(t, []excelize.CellType{excelize.CellTypeSharedString, excelize.CellTypeInlineString}, typ)

	// Displayed with the thousands format.
	shown, err := f.GetCellValue("Q1", "C2")
	require.NoError(t, err)
	assert.Equal(t, "1,500", shown)

	// Row index is text and hidden.
	typ, err = f.GetCellType("Q1", "A2")
	require.NoError(t, err)
	assert.Contains(t, []excelize.CellType{excelize.CellTypeSharedString, excelize.CellTypeInlineString}, typ)
	visible, err := f.GetColVisible("Q1", "A")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestSerialize_Styles(t *testing.T) {
	doc, err := NewSerializer(DefaultOptions(), nil).Serialize(salesModel(), "Q1", ".xlsx")
	require.NoError(t, err)
	f := openDoc(t, doc)

	styleOf := func(cell string) *excelize.Style {
		id, err := f.GetCellStyle("Q1", cell)
		require.NoError(t, err)
		st, err := f.GetStyle(id)
		require.NoError(t, err)
		return st
	}

	header := styleOf("B1")
	require.NotNil(t, header.Font)
	assert.True(t, header.Font.Bold)
	assert.True(t, strings.HasSuffix(strings.ToUpper(header.Font.Color), headerFont))
	require.NotEmpty(t, header.Fill.Color)
	assert.True(t, strings.HasSuffix(strings.ToUpper(header.Fill.Color[0]), headerFill))
	require.NotNil(t, header.Alignment)
	assert.Equal(t, "center", header.Alignment.Horizontal)

	text := styleOf("B2")
	require.NotEmpty(t, text.Fill.Color)
	assert.True(t, strings.HasSuffix(strings.ToUpper(text.Fill.Color[0]), dataFill))
	assert.Zero(t, text.NumFmt)

	numeric := styleOf("C2")
	assert.Equal(t, builtInThousands, numeric.NumFmt)

	for _, col := range []string{"B", "C"} {
		width, err := f.GetColWidth("Q1", col)
		require.NoError(t, err)
		assert.Equal(t, DefaultColumnWidth, width, "column %s", col)
	}
}

func TestSerialize_Banded(t *testing.T) {
	m := core.NewModel()
	m.Replace(core.Snapshot{
		Columns: []core.Column{{FieldName: "Units", DataType: core.TypeInt}},
		Rows: []core.Row{
			{core.NewCell(core.TypeInt, int64(1))},
			{core.NewCell(core.TypeInt, int64(2))},
			{core.NewCell(core.TypeInt, int64(3))},
		},
	})

	opts := DefaultOptions()
	opts.Banded = true
	doc, err := NewSerializer(opts, nil).Serialize(m, "Units", "")
	require.NoError(t, err)
	f := openDoc(t, doc)

	fill := func(cell string) string {
		id, err := f.GetCellStyle("Units", cell)
		require.NoError(t, err)
		st, err := f.GetStyle(id)
		require.NoError(t, err)
		require.NotEmpty(t, st.Fill.Color)
		assert.Equal(t, builtInThousands, st.NumFmt)
		return strings.ToUpper(st.Fill.Color[0])
	}

	assert.True(t, strings.HasSuffix(fill("B2"), dataFill))
	assert.True(t, strings.HasSuffix(fill("B3"), bandFill))
	assert.True(t, strings.HasSuffix(fill("B4"), dataFill))
}

func TestSerialize_NumericEdgeCases(t *testing.T) {
	m := core.NewModel()
	m.Replace(core.Snapshot{
		Columns: []core.Column{{FieldName: "Amount", DataType: core.TypeFloat}},
		Rows: []core.Row{
			{{Raw: nil, Display: "Null"}},
			{{Raw: "2500", Display: "2,500"}},
			{{Raw: "n/a", Display: "n/a"}},
			{{Raw: math.NaN(), Display: "NaN"}},
		},
	})

	opts := DefaultOptions()
	opts.IncludeRowIndex = false
	doc, err := NewSerializer(opts, nil).Serialize(m, "Amounts", "")
	require.NoError(t, err)
	f := openDoc(t, doc)

	rows := rawRows(t, f, "Amounts")
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Amount"}, rows[0])
	assert.Empty(t, rows[1])
	assert.Equal(t, []string{"2500"}, rows[2])
	assert.Equal(t, []string{"n/a"}, rows[3])
	assert.Equal(t, []string{"NaN"}, rows[4])

	// Non-finite numbers fall back to their display text.
	typ, err := f.GetCellType("Amounts", "A5")
	require.NoError(t, err)
	assert.Contains(t, []excelize.CellType{excelize.CellTypeSharedString, excelize.CellTypeInlineString}, typ)

	// The empty cell still carries the data style.
	id, err := f.GetCellStyle("Amounts", "A2")
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestSerialize_EmptyRowsIsValid(t *testing.T) {
	m := core.NewModel()
	m.Replace(core.Snapshot{Columns: []core.Column{{FieldName: "Region", DataType: core.TypeString}}})

	doc, err := NewSerializer(DefaultOptions(), nil).Serialize(m, "Empty", "")
	require.NoError(t, err)

	rows := rawRows(t, openDoc(t, doc), "Empty")
	assert.Equal(t, [][]string{{"Row Index", "Region"}}, rows)
}

func TestSerialize_EmptyTable(t *testing.T) {
	_, err := NewSerializer(DefaultOptions(), nil).Serialize(core.NewModel(), "Q1", "")
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestSerialize_InvalidSheetName(t *testing.T) {
	_, err := NewSerializer(DefaultOptions(), nil).Serialize(salesModel(), "[]:*", "")

	var invalid *InvalidSheetNameError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, "[]:*", invalid.Name)
}

func TestSerialize_IsDeterministic(t *testing.T) {
	s := NewSerializer(DefaultOptions(), nil)
	m := salesModel()
	m.Rename(0, "Area")

	first, err := s.Serialize(m, "Q1", "")
	require.NoError(t, err)
	second, err := s.Serialize(m, "Q1", "")
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first.Data, second.Data), "repeated export produced different bytes")
	assert.Equal(t, "Area", m.DisplayName(0), "export must not modify the model")
}

func TestSerialize_Extension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"", "Q1.xlsx"},
		{"xlsx", "Q1.xlsx"},
		{".xlsm", "Q1.xlsm"},
	}

	s := NewSerializer(DefaultOptions(), nil)
	for _, tt := range tests {
		doc, err := s.Serialize(salesModel(), "Q1", tt.ext)
		require.NoError(t, err)
		assert.Equal(t, tt.want, doc.FileName, "ext %q", tt.ext)
	}
}

func TestDocument_WriteTo(t *testing.T) {
	doc := &Document{Data: []byte("abc")}
	var buf bytes.Buffer
	n, err := doc.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "abc", buf.String())
}

func TestSerialize_ControlCharactersInName(t *testing.T) {
	doc, err := NewSerializer(DefaultOptions(), nil).Serialize(salesModel(), "Q1\x00 Plan", "")
	require.NoError(t, err)
	assert.Equal(t, "Q1 Plan", doc.SheetName)
	assert.Equal(t, "Q1 Plan.xlsx", doc.FileName)

	f := openDoc(t, doc)
	assert.Equal(t, []string{"Q1 Plan"}, f.GetSheetList())
}
