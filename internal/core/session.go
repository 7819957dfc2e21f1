package core

import "github.com/JonMunkholm/tablemirror/internal/layout"

// Session is the process-wide UI state: the table model with its renames, the
// row count of the last render and the current column layout. It is created
// once at startup and lives until the process exits. Only the orchestrator
// loop touches it.
type Session struct {
	Model          *Model
	LastRowCount   int
	Layout         layout.Layout
	ContainerWidth int

	// Rendered is false until the first successful render.
	Rendered bool
}

// NewSession creates an empty session for a container of the given width.
func NewSession(containerWidth int) *Session {
	return &Session{
		Model:          NewModel(),
		ContainerWidth: containerWidth,
	}
}
