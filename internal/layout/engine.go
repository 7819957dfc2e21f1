// Package layout assigns pixel widths to table columns.
//
// Header and body cells of a column always share one width. Columns fill the
// container when their content fits; when the content is wider the table takes
// the sum of the column widths and overflows, so the browser scrolls it
// horizontally.
//
// A user drag on a header pins that column's width. Pinned widths survive
// re-renders of the same snapshot and are discarded by the next Compute.
package layout

import (
	"math"
	"strconv"

	"github.com/mattn/go-runewidth"
)

// Defaults used when an Engine field is zero.
const (
	DefaultMinColumnWidth = 80
	DefaultCharWidth      = 8.0
	DefaultCellPadding    = 16
)

// Engine computes column layouts from text content.
type Engine struct {
	MinColumnWidth int     // Smallest width any column gets, in px
	CharWidth      float64 // Width of one terminal cell of text at the current font, in px
	CellPadding    int     // Horizontal padding of a cell, in px
}

// Layout is the derived width assignment for one rendered table.
type Layout struct {
	ContainerWidth int    `json:"containerWidth"`
	Widths         []int  `json:"widths"`
	Measured       []int  `json:"measured"`
	Manual         []bool `json:"manual"`
	TableWidth     int    `json:"tableWidth"`
	Overflow       bool   `json:"overflow"`
}

// Columns returns the number of sized columns.
func (l Layout) Columns() int { return len(l.Widths) }

// TableStyleWidth returns the CSS width of the table element: the total width
// in px when it overflows the container, otherwise "100%".
func (l Layout) TableStyleWidth() string {
	if l.Overflow {
		return strconv.Itoa(l.TableWidth) + "px"
	}
	return "100%"
}

// Width returns the width of column i, or 0 if i is out of range.
func (l Layout) Width(i int) int {
	if i < 0 || i >= len(l.Widths) {
		return 0
	}
	return l.Widths[i]
}

func (e Engine) minWidth() int {
	if e.MinColumnWidth <= 0 {
		return DefaultMinColumnWidth
	}
	return e.MinColumnWidth
}

func (e Engine) charWidth() float64 {
	if e.CharWidth <= 0 {
		return DefaultCharWidth
	}
	return e.CharWidth
}

func (e Engine) padding() int {
	if e.CellPadding < 0 {
		return 0
	}
	return e.CellPadding
}

// Measure returns the natural width of a column holding the header and cells.
func (e Engine) Measure(header string, cells []string) int {
	cols := runewidth.StringWidth(header)
	for _, c := range cells {
		if w := runewidth.StringWidth(c); w > cols {
			cols = w
		}
	}
	return int(math.Ceil(float64(cols)*e.charWidth())) + e.padding()
}

// baseWidth is the share of the container each column gets before content is
// considered.
func (e Engine) baseWidth(containerWidth, n int) int {
	base := 0
	if n > 0 && containerWidth > 0 {
		base = containerWidth / n
	}
	if base < e.minWidth() {
		base = e.minWidth()
	}
	return base
}

// Compute sizes every column from scratch. cells is row-major: cells[r][c].
// With no headers the zero Layout is returned.
func (e Engine) Compute(containerWidth int, headers []string, cells [][]string) Layout {
	n := len(headers)
	if n == 0 {
		return Layout{ContainerWidth: containerWidth}
	}

	l := Layout{
		ContainerWidth: containerWidth,
		Widths:         make([]int, n),
		Measured:       make([]int, n),
		Manual:         make([]bool, n),
	}
	base := e.baseWidth(containerWidth, n)
	for i, h := range headers {
		l.Measured[i] = e.Measure(h, column(cells, i))
		l.Widths[i] = max(base, l.Measured[i])
	}
	l.total()
	return l
}

// Resize pins column index to width (never below the minimum column width)
// and recomputes the table width without re-measuring other columns.
// ok is false if index is out of range.
func (e Engine) Resize(l Layout, index, width int) (out Layout, ok bool) {
	if index < 0 || index >= len(l.Widths) {
		return l, false
	}
	out = l.clone()
	out.Widths[index] = max(width, e.minWidth())
	out.Manual[index] = true
	out.total()
	return out, true
}

// Refit re-measures one column after its header text changed. Pinned columns
// keep their width.
func (e Engine) Refit(l Layout, index int, header string, cells [][]string) Layout {
	if index < 0 || index >= len(l.Widths) {
		return l
	}
	out := l.clone()
	out.Measured[index] = e.Measure(header, column(cells, index))
	if !out.Manual[index] {
		out.Widths[index] = max(e.baseWidth(out.ContainerWidth, len(out.Widths)), out.Measured[index])
	}
	out.total()
	return out
}

// Relayout adapts the layout to a new container width. Measured and pinned
// widths are reused.
func (e Engine) Relayout(l Layout, containerWidth int) Layout {
	out := l.clone()
	out.ContainerWidth = containerWidth
	if len(out.Widths) == 0 {
		return out
	}
	base := e.baseWidth(containerWidth, len(out.Widths))
	for i := range out.Widths {
		if !out.Manual[i] {
			out.Widths[i] = max(base, out.Measured[i])
		}
	}
	out.total()
	return out
}

func (l *Layout) total() {
	sum := 0
	for _, w := range l.Widths {
		sum += w
	}
	l.TableWidth = sum
	l.Overflow = sum > l.ContainerWidth
}

func (l Layout) clone() Layout {
	l.Widths = append([]int(nil), l.Widths...)
	l.Measured = append([]int(nil), l.Measured...)
	l.Manual = append([]bool(nil), l.Manual...)
	return l
}

// column extracts column i from row-major cells. Short rows are skipped.
func column(cells [][]string, i int) []string {
	out := make([]string, 0, len(cells))
	for _, row := range cells {
		if i < len(row) {
			out = append(out, row[i])
		}
	}
	return out
}
