package ir

import "fmt"

// ActivityID identifies an actor, process or task for the lifetime of a trace.
type ActivityID uint64

// MessageID identifies a message send. Ids are assigned by mailbox records
// and advance by one per decoded send.
type MessageID uint64

// Kind is the flavour of an execution entity.
type Kind string

const (
	KindActor   Kind = "Actor"
	KindProcess Kind = "Process"
	KindTask    Kind = "Task"
)

// ValidKinds defines allowed entity kinds.
var ValidKinds = map[Kind]bool{
	KindActor:   true,
	KindProcess: true,
	KindTask:    true,
}

// Origin is the source location that created an entity.
type Origin struct {
	URI         string `json:"uri"`
	FileID      uint16 `json:"file_id"`
	StartLine   uint16 `json:"start_line"`
	StartColumn uint16 `json:"start_column"`
	CharLength  uint16 `json:"char_length"`
}

// Entity is a decoded execution unit (formerly "activity").
//
// Created exactly once from a creation record. X and Y are a placement hint
// assigned by the graph registry when the entity is registered.
type Entity struct {
	ID            ActivityID `json:"id"`
	Kind          Kind       `json:"kind"`
	Name          string     `json:"name"`
	NameID        uint16     `json:"name_id"`
	CausalMessage MessageID  `json:"causal_message"`
	Running       bool       `json:"running"`
	Origin        Origin     `json:"origin"`
	X             int        `json:"x"`
	Y             int        `json:"y"`
}

// String returns a short human-readable form, e.g. "Actor Worker#42".
func (e Entity) String() string {
	return fmt.Sprintf("%s %s#%d", e.Kind, e.Name, e.ID)
}

// MessageRecord is a single decoded send, kept for causal resolution.
type MessageRecord struct {
	ID       MessageID  `json:"id"`
	Sender   ActivityID `json:"sender"`
	Receiver ActivityID `json:"receiver"`
}

// SelfSend reports whether the message was sent to its own sender.
func (m MessageRecord) SelfSend() bool {
	return m.Sender == m.Receiver
}
