package core

import "strings"

// Model is the table currently shown to the user: the last snapshot plus the
// column renames the user applied. Renames are keyed by position and survive
// snapshot replacement.
//
// Model is not safe for concurrent use. It is owned by the Orchestrator loop.
type Model struct {
	name    string
	columns []Column
	rows    []Row
	renames map[int]string
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{renames: make(map[int]string)}
}

// Replace installs a new snapshot. Rename overrides are kept as they are;
// overrides for positions that no longer exist are ignored at display time.
func (m *Model) Replace(s Snapshot) {
	m.name = s.Name
	m.columns = s.Columns
	m.rows = s.Rows
}

// Rename sets the display name for the column at index. A name that is empty
// after trimming clears the override. Returns false without changing anything
// if index is out of range for the current columns.
func (m *Model) Rename(index int, name string) bool {
	if index < 0 || index >= len(m.columns) {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		delete(m.renames, index)
		return true
	}
	m.renames[index] = name
	return true
}

// DisplayName returns the rename override for index if one exists, otherwise
// the column's field name. Returns "" for an out-of-range index.
func (m *Model) DisplayName(index int) string {
	if index < 0 || index >= len(m.columns) {
		return ""
	}
	if name, ok := m.renames[index]; ok {
		return name
	}
	return m.columns[index].FieldName
}

// DisplayNames returns the display name of every column in order.
func (m *Model) DisplayNames() []string {
	names := make([]string, len(m.columns))
	for i := range m.columns {
		names[i] = m.DisplayName(i)
	}
	return names
}

// IsRenamed reports whether the column at index currently shows an override.
func (m *Model) IsRenamed(index int) bool {
	if index < 0 || index >= len(m.columns) {
		return false
	}
	_, ok := m.renames[index]
	return ok
}

// Name returns the dataset display name of the current snapshot.
func (m *Model) Name() string { return m.name }

// Columns returns the current columns. Callers must not modify the slice.
func (m *Model) Columns() []Column { return m.columns }

// Rows returns the current rows. Callers must not modify the slice.
func (m *Model) Rows() []Row { return m.rows }

// RowCount returns the number of rows in the current snapshot.
func (m *Model) RowCount() int { return len(m.rows) }

// Overrides returns a copy of all stored overrides, stale ones included.
func (m *Model) Overrides() map[int]string {
	out := make(map[int]string, len(m.renames))
	for k, v := range m.renames {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	c := &Model{
		name:    m.name,
		columns: append([]Column(nil), m.columns...),
		rows:    make([]Row, len(m.rows)),
		renames: m.Overrides(),
	}
	for i, row := range m.rows {
		c.rows[i] = append(Row(nil), row...)
	}
	return c
}

// DisplayCells returns the display strings of every row; result[r][c] mirrors
// rows[r][c].
func (m *Model) DisplayCells() [][]string {
	out := make([][]string, len(m.rows))
	for r, row := range m.rows {
		cells := make([]string, len(row))
		for c, cell := range row {
			cells[c] = cell.Display
		}
		out[r] = cells
	}
	return out
}
