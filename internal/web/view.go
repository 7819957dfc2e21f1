package web

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/JonMunkholm/tablemirror/internal/core"
	"github.com/JonMunkholm/tablemirror/internal/layout"
	"github.com/JonMunkholm/tablemirror/internal/web/templates"
)

// RenderEvent is pushed to subscribers after every paint.
type RenderEvent struct {
	Generation string `json:"generation"`
	Rows       int    `json:"rows"`
	Columns    int    `json:"columns"`
}

// View implements core.Renderer. It keeps the latest painted table and
// fans out a RenderEvent to every subscribed browser.
type View struct {
	clock clockwork.Clock

	mu          sync.RWMutex
	current     templates.Table
	subscribers map[string]chan RenderEvent
}

// NewView creates an empty view. clock may be nil.
func NewView(clock clockwork.Clock) *View {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &View{clock: clock, subscribers: make(map[string]chan RenderEvent)}
}

// RenderTable copies the table into a new generation and notifies subscribers.
func (v *View) RenderTable(columns []core.Column, displayName func(int) string, rows []core.Row, l layout.Layout) {
	tv := templates.Table{
		Generation:     uuid.NewString(),
		RenderedAt:     v.clock.Now(),
		ContainerWidth: l.ContainerWidth,
		TableWidth:     l.TableStyleWidth(),
		Overflow:       l.Overflow,
		Columns:        make([]templates.Column, len(columns)),
		Rows:           make([][]string, len(rows)),
	}

	for i, c := range columns {
		name := displayName(i)
		tv.Columns[i] = templates.Column{
			Index:       i,
			FieldName:   c.FieldName,
			DisplayName: name,
			DataType:    string(c.DataType),
			Width:       l.Width(i),
			Renamed:     name != c.FieldName,
			Manual:      i < len(l.Manual) && l.Manual[i],
		}
	}
	for r, row := range rows {
		cells := make([]string, len(columns))
		for c := range columns {
			if c < len(row) {
				cells[c] = row[c].Display
			}
		}
		tv.Rows[r] = cells
	}

	ev := RenderEvent{Generation: tv.Generation, Rows: len(rows), Columns: len(columns)}

	v.mu.Lock()
	v.current = tv
	for _, ch := range v.subscribers {
		// Keep only the newest event for slow readers.
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
	v.mu.Unlock()
}

// Current returns the latest painted table.
func (v *View) Current() templates.Table {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Subscribe registers a listener for render events. The channel holds at
// most one pending event.
func (v *View) Subscribe() (string, <-chan RenderEvent) {
	id := uuid.NewString()
	ch := make(chan RenderEvent, 1)

	v.mu.Lock()
	v.subscribers[id] = ch
	v.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a listener.
func (v *View) Unsubscribe(id string) {
	v.mu.Lock()
	delete(v.subscribers, id)
	v.mu.Unlock()
}

// Subscribers returns the number of connected listeners.
func (v *View) Subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subscribers)
}
