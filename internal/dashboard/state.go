// Package dashboard recomputes the country ranking view from an explicit
// session state. Every event produces a new state and a fresh Outcome.
package dashboard

import (
	"countrydash/internal/engine"
)

// Upload is the raw file the user supplied.
type Upload struct {
	Name string
	Data []byte
}

// State is everything a dashboard session carries between events.
type State struct {
	Upload   *Upload
	Selected string
}

// Event is a user interaction that triggers a recomputation.
type Event interface {
	Kind() string
}

// UploadEvent replaces the current file. Category, when set, is tried as the
// initial selection.
type UploadEvent struct {
	Name     string
	Data     []byte
	Category string
}

// SelectEvent changes the selected category.
type SelectEvent struct {
	Category string
}

// ClearEvent drops the upload and selection.
type ClearEvent struct{}

func (UploadEvent) Kind() string { return "upload" }
func (SelectEvent) Kind() string { return "select" }
func (ClearEvent) Kind() string  { return "clear" }

type Status string

const (
	StatusNoInput       Status = "no_input"
	StatusSchemaError   Status = "schema_error"
	StatusNoCategories  Status = "no_categories"
	StatusInvalidValues Status = "invalid_values"
	StatusReady         Status = "ready"
)

// Halted reports whether the run stopped before producing a ranking.
func (s Status) Halted() bool { return s != StatusReady }

// Outcome is the result of one pipeline run.
type Outcome struct {
	Status     Status
	Message    string
	Categories []string
	Selected   string
	Ranking    []engine.Entry
}
