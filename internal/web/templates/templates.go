// Package templates holds the HTML components of the table mirror UI.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// Column is one rendered column header.
type Column struct {
	Index       int    `json:"index"`
	FieldName   string `json:"fieldName"`
	DisplayName string `json:"displayName"`
	DataType    string `json:"dataType"`
	Width       int    `json:"width"`
	Renamed     bool   `json:"renamed"`
	Manual      bool   `json:"manual"`
}

// Table is the table as last painted.
type Table struct {
	Generation     string     `json:"generation"`
	Name           string     `json:"name,omitempty"`
	RenderedAt     time.Time  `json:"renderedAt"`
	ContainerWidth int        `json:"containerWidth"`
	TableWidth     string     `json:"tableWidth"`
	Overflow       bool       `json:"overflow"`
	Columns        []Column   `json:"columns"`
	Rows           [][]string `json:"rows"`
}

// Ready reports whether a table has been painted yet.
func (t Table) Ready() bool {
	return t.Generation != ""
}

// htmlWriter writes escaped fragments and keeps the first error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

// Page renders the full document.
func Page(t Table) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		title := t.Name
		if title == "" {
			title = "Table"
		}

		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title><link rel="stylesheet" href="/static/app.css"></head><body>`)

		h.raw(`<header class="toolbar"><h1>`)
		h.text(title)
		h.raw(`</h1><form id="export-form" action="/api/export" method="get">`)
		h.raw(`<input type="text" name="name" placeholder="Sheet name" value="`)
		h.text(t.Name)
		h.raw(`"><button type="submit">Export</button></form>`)
		h.raw(`<button id="refresh-button" type="button">Refresh</button></header>`)
		h.raw(`<div id="alerts"></div>`)
		h.raw(`<main id="table-container">`)
		if h.err != nil {
			return h.err
		}
		if err := TablePartial(t).Render(ctx, w); err != nil {
			return err
		}
		h.raw(`</main><script src="/static/app.js"></script></body></html>`)
		return h.err
	})
}

// TablePartial renders the table element alone. Header and body cells of a
// column share the width set on its col element.
func TablePartial(t Table) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}

		if !t.Ready() {
			h.raw(`<p class="placeholder">Loading table…</p>`)
			return h.err
		}

		h.rawf(`<table id="mirror" data-generation="%s" style="width: %s">`,
			templ.EscapeString(t.Generation), templ.EscapeString(t.TableWidth))

		h.raw(`<colgroup>`)
		for _, c := range t.Columns {
			h.rawf(`<col style="width: %dpx">`, c.Width)
		}
		h.raw(`</colgroup><thead><tr>`)
		for _, c := range t.Columns {
			class := "col-" + templ.EscapeString(c.DataType)
			if c.Renamed {
				class += " renamed"
			}
			if c.Manual {
				class += " manual"
			}
			h.rawf(`<th class="%s" data-index="%s" title="`, class, strconv.Itoa(c.Index))
			h.text(c.FieldName)
			h.raw(`"><span class="label">`)
			h.text(c.DisplayName)
			h.raw(`</span><span class="grip"></span></th>`)
		}
		h.raw(`</tr></thead><tbody>`)

		for _, row := range t.Rows {
			h.raw(`<tr>`)
			for i, cell := range row {
				if i < len(t.Columns) {
					h.rawf(`<td class="col-%s">`, templ.EscapeString(t.Columns[i].DataType))
				} else {
					h.raw(`<td>`)
				}
				h.text(cell)
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

// ErrorAlert renders an error message fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert alert-error" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<span class="action">`)
			h.text(action)
			h.raw(`</span>`)
		}
		h.raw(`<code>`)
		h.text(code)
		h.raw(`</code></div>`)
		return h.err
	})
}
