package harness

import "github.com/roach88/causeway/internal/graph"

// ChunkOutcome is what feeding one chunk produced.
type ChunkOutcome struct {
	Seq      int64    `json:"seq"`
	Bytes    int      `json:"bytes"`
	Entities []uint64 `json:"entities"`

	// Error and Code describe a decode failure.
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`

	// Notified reports whether controllers heard about the chunk.
	Notified bool `json:"notified"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	Session string         `json:"session"`
	Chunks  []ChunkOutcome `json:"chunks"`
	Graph   graph.Snapshot `json:"graph"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Chunks: []ChunkOutcome{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
