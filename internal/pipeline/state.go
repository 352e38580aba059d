package pipeline

import (
	"errors"
	"time"
)

// State is a step in the orchestrator lifecycle. Transitions only move
// forward: Uninitialized -> Building -> Ready or Failed.
type State int

const (
	Uninitialized State = iota
	Building
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Building:
		return "building"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrNotReady is returned by Query and Search outside the Ready state.
	ErrNotReady = errors.New("pipeline not ready")

	// ErrNoUsableChunks means ingestion produced nothing to index.
	ErrNoUsableChunks = errors.New("no usable chunks in corpus")

	// ErrAlreadyStarted is returned by a second ProcessDocuments call.
	ErrAlreadyStarted = errors.New("documents already processed")

	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("question is empty")
)

// SkippedDocument is a document left out of the corpus.
type SkippedDocument struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State         State             `json:"state"`
	Documents     []string          `json:"documents"`
	Skipped       []SkippedDocument `json:"skipped"`
	Chunks        int               `json:"chunks"`
	BuildDuration time.Duration     `json:"build_duration"`
	// Dimensions and BuiltAt describe the published index; zero until Ready.
	Dimensions int       `json:"dimensions"`
	BuiltAt    time.Time `json:"built_at"`
	Error      string    `json:"error,omitempty"`
}
