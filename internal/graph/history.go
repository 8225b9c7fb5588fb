package graph

import (
	"sync"

	"github.com/roach88/causeway/internal/trace"
)

var _ trace.Sink = (*Model)(nil)

// History guards a Model with a single mutex so one goroutine can decode
// while others query.
//
// Queries take the same exclusive lock as updates: resolving nodes may
// materialize a GroupNode, which mutates the registry.
//
// Nodes and links returned by Nodes and Links point into live state. Use
// them only from the goroutine that also feeds the History, or take a
// Snapshot.
type History struct {
	mu    sync.Mutex
	model *Model
}

// NewHistory creates a History around an empty Model.
func NewHistory(opts ...Option) *History {
	return &History{model: NewModel(opts...)}
}

// Sink returns the model as a trace.Sink for constructing a decoder. The
// decoder must only run inside Update.
func (h *History) Sink() trace.Sink {
	return h.model
}

// Update runs fn with exclusive access to the model.
func (h *History) Update(fn func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn()
}

// Read runs fn with exclusive access to the model.
func (h *History) Read(fn func(m *Model)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.model)
}

// Links recomputes all links.
func (h *History) Links() []Link {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.model.Links()
}

// Nodes returns every node in first-seen order.
func (h *History) Nodes() []Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.model.Nodes()
}

// MaxMessageSends returns the largest raw sender/receiver count.
func (h *History) MaxMessageSends() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.model.MaxMessageSends()
}

// Snapshot copies the current graph into plain values.
func (h *History) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.model.Snapshot()
}
