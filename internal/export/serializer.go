// Package export turns the table model into a styled spreadsheet document.
package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/tablemirror/internal/core"
)

const (
	DefaultExtension   = ".xlsx"
	DefaultColumnWidth = 15.0

	// ContentTypeXLSX is the media type of the generated workbook.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// RowIndexHeader labels the hidden leading column.
	RowIndexHeader = "Row Index"

	headerFill = "003087"
	headerFont = "FFFFFF"
	dataFill   = "FFFFFF"
	bandFill   = "F5F6F5"

	// builtInThousands is the built-in number format "#,##0".
	builtInThousands = 3

	// Fixed document timestamps keep repeated exports of the same model identical.
	docTimestamp = "2000-01-01T00:00:00Z"
	docCreator   = "tablemirror"

	defaultSheet = "Sheet1"
)

// Options controls the layout of the exported sheet.
type Options struct {
	IncludeRowIndex  bool
	ColumnWidth      float64
	DefaultExtension string

	// Banded fills every second data row with a light grey.
	Banded bool
}

// DefaultOptions returns the canonical export options.
func DefaultOptions() Options {
	return Options{
		IncludeRowIndex:  true,
		ColumnWidth:      DefaultColumnWidth,
		DefaultExtension: DefaultExtension,
	}
}

// Document is a serialized workbook ready for download.
type Document struct {
	FileName    string
	SheetName   string
	ContentType string
	Data        []byte
}

// WriteTo writes the document bytes to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.Data)
	return int64(n), err
}

// Serializer converts a table model into a Document. It holds no state
// between calls.
type Serializer struct {
	opts   Options
	logger *slog.Logger
}

// NewSerializer creates a serializer. Zero option fields take defaults.
func NewSerializer(opts Options, logger *slog.Logger) *Serializer {
	if opts.ColumnWidth <= 0 {
		opts.ColumnWidth = DefaultColumnWidth
	}
	if opts.DefaultExtension == "" {
		opts.DefaultExtension = DefaultExtension
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Serializer{opts: opts, logger: logger}
}

// Options returns the effective options.
func (s *Serializer) Options() Options {
	return s.opts
}

// Serialize builds a single-sheet workbook from the model. Headers carry the
// display names; numeric columns keep raw numbers with a thousands format and
// every other column is written as its display text.
func (s *Serializer) Serialize(model *core.Model, sheetName, ext string) (*Document, error) {
	columns := model.Columns()
	if len(columns) == 0 {
		return nil, ErrEmptyTable
	}

	sheet, err := SanitizeSheetName(sheetName)
	if err != nil {
		return nil, err
	}
	ext = NormalizeExtension(ext, s.opts.DefaultExtension)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	st, err := newStyles(f, s.opts.Banded)
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f, sheet: sheet, styles: st, opts: s.opts}
	if err := w.write(model); err != nil {
		return nil, err
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Created:  docTimestamp,
		Modified: docTimestamp,
		Creator:  docCreator,
		Title:    sheet,
	}); err != nil {
		return nil, fmt.Errorf("set document properties: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("table exported",
		"sheet", sheet,
		"columns", len(columns),
		"rows", model.RowCount(),
		"bytes", buf.Len(),
	)

	return &Document{
		FileName:    sheet + ext,
		SheetName:   sheet,
		ContentType: ContentTypeXLSX,
		Data:        bytes.Clone(buf.Bytes()),
	}, nil
}

type styles struct {
	header      int
	text        int
	numeric     int
	bandText    int
	bandNumeric int
}

func newStyles(f *excelize.File, banded bool) (styles, error) {
	var st styles
	var err error

	solid := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}

	st.header, err = f.NewStyle(&excelize.Style{
		Fill:      solid(headerFill),
		Font:      &excelize.Font{Bold: true, Color: headerFont},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.text, err = f.NewStyle(&excelize.Style{Fill: solid(dataFill)}); err != nil {
		return st, fmt.Errorf("data style: %w", err)
	}
	if st.numeric, err = f.NewStyle(&excelize.Style{Fill: solid(dataFill), NumFmt: builtInThousands}); err != nil {
		return st, fmt.Errorf("numeric style: %w", err)
	}

	if !banded {
		st.bandText, st.bandNumeric = st.text, st.numeric
		return st, nil
	}
	if st.bandText, err = f.NewStyle(&excelize.Style{Fill: solid(bandFill)}); err != nil {
		return st, fmt.Errorf("band style: %w", err)
	}
	if st.bandNumeric, err = f.NewStyle(&excelize.Style{Fill: solid(bandFill), NumFmt: builtInThousands}); err != nil {
		return st, fmt.Errorf("band numeric style: %w", err)
	}
	return st, nil
}

type sheetWriter struct {
	f      *excelize.File
	sheet  string
	styles styles
	opts   Options
}

// offset is the number of columns in front of the first data column.
func (w *sheetWriter) offset() int {
	if w.opts.IncludeRowIndex {
		return 1
	}
	return 0
}

func (w *sheetWriter) write(model *core.Model) error {
	columns := model.Columns()
	rows := model.Rows()
	off := w.offset()
	last := len(columns) + off

	header := make([]any, 0, last)
	if off == 1 {
		header = append(header, RowIndexHeader)
	}
	for i := range columns {
		header = append(header, model.DisplayName(i))
	}
	if err := w.f.SetSheetRow(w.sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.styleRange(1, 1, last, 1, w.styles.header); err != nil {
		return err
	}

	for r, row := range rows {
		excelRow := r + 2
		values := make([]any, 0, last)
		if off == 1 {
			values = append(values, fmt.Sprint(r+1))
		}
		for c, col := range columns {
			values = append(values, cellValue(col, cellAt(row, c)))
		}
		start, _ := excelize.CoordinatesToCellName(1, excelRow)
		if err := w.f.SetSheetRow(w.sheet, start, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
		if err := w.styleRow(columns, excelRow, r%2 == 1); err != nil {
			return err
		}
	}

	return w.formatColumns(len(columns))
}

func (w *sheetWriter) styleRow(columns []core.Column, excelRow int, band bool) error {
	text, numeric := w.styles.text, w.styles.numeric
	if band {
		text, numeric = w.styles.bandText, w.styles.bandNumeric
	}

	off := w.offset()
	if off == 1 {
		if err := w.styleRange(1, excelRow, 1, excelRow, text); err != nil {
			return err
		}
	}
	for c, col := range columns {
		id := text
		if col.DataType.IsNumeric() {
			id = numeric
		}
		if err := w.styleRange(c+1+off, excelRow, c+1+off, excelRow, id); err != nil {
			return err
		}
	}
	return nil
}

func (w *sheetWriter) styleRange(col1, row1, col2, row2, style int) error {
	from, err := excelize.CoordinatesToCellName(col1, row1)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(col2, row2)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(w.sheet, from, to, style); err != nil {
		return fmt.Errorf("style %s:%s: %w", from, to, err)
	}
	return nil
}

func (w *sheetWriter) formatColumns(n int) error {
	off := w.offset()
	first, err := excelize.ColumnNumberToName(1 + off)
	if err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(n + off)
	if err != nil {
		return err
	}
	if err := w.f.SetColWidth(w.sheet, first, last, w.opts.ColumnWidth); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	if off == 1 {
		if err := w.f.SetColVisible(w.sheet, "A", false); err != nil {
			return fmt.Errorf("hide row index: %w", err)
		}
	}
	return nil
}

// cellValue picks what goes into the sheet for one cell.
func cellValue(col core.Column, cell core.Cell) any {
	if !col.DataType.IsNumeric() {
		return cell.Display
	}
	if cell.Raw == nil {
		return nil
	}
	if v, ok := core.NumericValue(cell.Raw); ok {
		return v
	}
	return cell.Display
}

func cellAt(row core.Row, i int) core.Cell {
	if i < len(row) {
		return row[i]
	}
	return core.Cell{}
}
