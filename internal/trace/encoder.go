package trace

import (
	"encoding/binary"
	"fmt"

	"github.com/roach88/causeway/internal/ir"
)

// Param is a message parameter to encode. Value is written big-endian into
// however many payload bytes the type occupies.
type Param struct {
	Type  ParamType
	Value uint64
}

// OriginSpec is the source location written into a creation record.
type OriginSpec struct {
	FileID      uint16
	StartLine   uint16
	StartColumn uint16
	CharLength  uint16
}

// Send describes a message send record.
type Send struct {
	Sender     ir.ActivityID
	Prefix     bool
	Timestamps bool
	Params     []Param
}

// Encoder builds well-formed trace records. It produces fixtures for tests
// and scenarios and demo traces for the CLI.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the encoded records.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset discards all encoded records.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Creation appends an actor, process or task creation record together with
// its nested origin record.
func (e *Encoder) Creation(kind ir.Kind, id ir.ActivityID, causal ir.MessageID, nameID uint16, origin OriginSpec) *Encoder {
	tag := TagActorCreation
	switch kind {
	case ir.KindProcess:
		tag = TagProcessCreation
	case ir.KindTask:
		tag = TagTaskSpawn
	}

	e.buf = append(e.buf, byte(tag))
	e.id(uint64(id))
	e.id(uint64(causal))
	e.buf = binary.BigEndian.AppendUint16(e.buf, nameID)

	e.buf = append(e.buf, byte(TagActivityOrigin))
	e.buf = binary.BigEndian.AppendUint16(e.buf, origin.FileID)
	e.buf = binary.BigEndian.AppendUint16(e.buf, origin.StartLine)
	e.buf = binary.BigEndian.AppendUint16(e.buf, origin.StartColumn)
	e.buf = binary.BigEndian.AppendUint16(e.buf, origin.CharLength)
	return e
}

// Actor appends an actor creation record.
func (e *Encoder) Actor(id ir.ActivityID, causal ir.MessageID, nameID uint16, origin OriginSpec) *Encoder {
	return e.Creation(ir.KindActor, id, causal, nameID, origin)
}

// Mailbox appends a mailbox start record.
func (e *Encoder) Mailbox(msgID ir.MessageID, receiver ir.ActivityID) *Encoder {
	e.buf = append(e.buf, byte(TagMailbox))
	e.id(uint64(msgID))
	e.pad(4)
	e.id(uint64(receiver))
	return e
}

// MailboxContd appends a mailbox continuation record.
func (e *Encoder) MailboxContd(msgID ir.MessageID, receiver ir.ActivityID) *Encoder {
	e.buf = append(e.buf, byte(TagMailboxContd))
	e.id(uint64(msgID))
	e.pad(4)
	e.id(uint64(receiver))
	e.pad(4)
	return e
}

// Send appends a message send record.
func (e *Encoder) Send(s Send) *Encoder {
	tag := FlagSend
	if s.Prefix {
		tag |= FlagPrefix
	}
	if s.Timestamps {
		tag |= FlagTimestamps
	}
	if len(s.Params) > 0 {
		tag |= FlagParams
	}

	e.buf = append(e.buf, byte(tag))
	if s.Prefix {
		e.pad(sizePrefix)
	}
	if s.Timestamps {
		e.pad(sizeTimestamps)
	}
	if len(s.Params) > 0 {
		e.buf = append(e.buf, byte(len(s.Params)))
		for _, p := range s.Params {
			e.param(p)
		}
	}
	e.id(uint64(s.Sender))
	e.pad(sizeSendTail - 8)
	return e
}

// PromiseResolution appends a promise resolution record carrying p.
func (e *Encoder) PromiseResolution(p Param) *Encoder {
	e.buf = append(e.buf, byte(TagPromiseResolution))
	e.pad(SizePromiseResolution - 1)
	e.param(p)
	return e
}

// Lifecycle appends a zero-filled fixed-size record for tag. It panics for
// tags whose layout is not fixed; use the dedicated methods for those.
func (e *Encoder) Lifecycle(tag Tag) *Encoder {
	size, ok := fixedSizes[tag]
	if !ok || tag.IsCreation() {
		panic(fmt.Sprintf("Encoder.Lifecycle: %s has no fixed layout", tag))
	}
	e.buf = append(e.buf, byte(tag))
	e.pad(size - 1)
	return e
}

// Raw appends bytes verbatim.
func (e *Encoder) Raw(b ...byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) param(p Param) {
	n := ParamLength(byte(p.Type))
	e.buf = append(e.buf, byte(p.Type))
	if n == 1 {
		return
	}
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], p.Value)
	e.buf = append(e.buf, v[8-(n-1):]...)
}

// id writes a 64-bit id as two big-endian halves, high half first.
func (e *Encoder) id(v uint64) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(v>>32))
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(v))
}

func (e *Encoder) pad(n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}
