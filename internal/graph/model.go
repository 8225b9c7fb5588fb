package graph

import (
	"io"
	"log/slog"

	"github.com/roach88/causeway/internal/ir"
)

// Option configures a Model.
type Option func(*options)

type options struct {
	threshold int
	logger    *slog.Logger
}

// WithGroupThreshold overrides DefaultGroupThreshold.
func WithGroupThreshold(n int) Option {
	return func(o *options) {
		o.threshold = n
	}
}

// WithLogger sets the logger for registry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Model is the incremental graph state fed by the decoder: the entity
// registry, the raw message tally and every message record. It implements
// trace.Sink.
//
// Model is not safe for concurrent use; see History.
type Model struct {
	registry *Registry
	tally    *tally
	messages map[ir.MessageID]ir.MessageRecord
	maxSends int
}

// NewModel creates an empty model.
func NewModel(opts ...Option) *Model {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return &Model{
		registry: NewRegistry(o.threshold, o.logger),
		tally:    newTally(),
		messages: make(map[ir.MessageID]ir.MessageRecord),
	}
}

// AddEntity registers a newly decoded entity.
func (m *Model) AddEntity(e *ir.Entity) {
	m.registry.Register(e)
}

// AddMessage records a decoded send. Self-sends are kept for causal
// resolution but never counted in the tally.
func (m *Model) AddMessage(msg ir.MessageRecord) {
	if !msg.SelfSend() {
		if n := m.tally.inc(msg.Sender, msg.Receiver); n > m.maxSends {
			m.maxSends = n
		}
	}
	m.messages[msg.ID] = msg
}

// Registry exposes the entity registry.
func (m *Model) Registry() *Registry {
	return m.registry
}

// Nodes returns every node in first-seen order.
func (m *Model) Nodes() []Node {
	return m.registry.Nodes()
}

// Resolve returns the node currently representing an entity.
func (m *Model) Resolve(id ir.ActivityID) (Node, bool) {
	return m.registry.Resolve(id)
}

// Message returns the record of a decoded send.
func (m *Model) Message(id ir.MessageID) (ir.MessageRecord, bool) {
	msg, ok := m.messages[id]
	return msg, ok
}

// MessageCount returns the number of message records kept.
func (m *Model) MessageCount() int {
	return len(m.messages)
}

// SendCount returns the tallied number of sends from sender to receiver.
func (m *Model) SendCount(sender, receiver ir.ActivityID) int {
	return m.tally.count(sender, receiver)
}

// MaxMessageSends returns the largest raw count of any single
// sender/receiver pair, for normalizing link weights.
func (m *Model) MaxMessageSends() int {
	return m.maxSends
}

// tally is the sender -> receiver -> count mapping, iterated in first-seen
// order so that link output is deterministic.
type tally struct {
	rows  map[ir.ActivityID]*tallyRow
	order []ir.ActivityID
}

type tallyRow struct {
	counts map[ir.ActivityID]int
	order  []ir.ActivityID
}

func newTally() *tally {
	return &tally{rows: make(map[ir.ActivityID]*tallyRow)}
}

func (t *tally) inc(sender, receiver ir.ActivityID) int {
	row, ok := t.rows[sender]
	if !ok {
		row = &tallyRow{counts: make(map[ir.ActivityID]int)}
		t.rows[sender] = row
		t.order = append(t.order, sender)
	}
	if _, seen := row.counts[receiver]; !seen {
		row.order = append(row.order, receiver)
	}
	row.counts[receiver]++
	return row.counts[receiver]
}

func (t *tally) count(sender, receiver ir.ActivityID) int {
	row, ok := t.rows[sender]
	if !ok {
		return 0
	}
	return row.counts[receiver]
}

func (t *tally) each(fn func(sender, receiver ir.ActivityID, count int)) {
	for _, s := range t.order {
		row := t.rows[s]
		for _, r := range row.order {
			fn(s, r, row.counts[r])
		}
	}
}
