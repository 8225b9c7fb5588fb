package trace

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/causeway/internal/ir"
)

// Sink receives what the decoder reconstructs from a trace.
type Sink interface {
	AddEntity(e *ir.Entity)
	AddMessage(msg ir.MessageRecord)
}

// Strings resolves interned string ids. *StringTable implements it.
type Strings interface {
	Lookup(id uint32) (string, bool)
}

// Stats counts what a decoder has consumed so far.
type Stats struct {
	Chunks      int         `json:"chunks"`
	Bytes       int         `json:"bytes"`
	Records     int         `json:"records"`
	Entities    int         `json:"entities"`
	Sends       int         `json:"sends"`
	OrphanSends int         `json:"orphan_sends"`
	Unknown     int         `json:"unknown"`
	Failed      int         `json:"failed"`
	ByTag       map[Tag]int `json:"-"`
}

// Decoder consumes trace chunks for one trace stream.
//
// NOT reentrant: the active receiver and active message id carry over from
// one chunk to the next, so chunks must be fed one at a time, in arrival
// order, by a single owner.
type Decoder struct {
	sink    Sink
	strings Strings
	logger  *slog.Logger

	receiver  ir.ActivityID
	msgID     ir.MessageID
	inMailbox bool

	stats Stats
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for soft failures (unresolved strings,
// sends outside a mailbox).
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		d.logger = l
	}
}

// NewDecoder creates a decoder that reports into sink and resolves names
// through strings.
func NewDecoder(sink Sink, strings Strings, opts ...Option) *Decoder {
	d := &Decoder{
		sink:    sink,
		strings: strings,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		stats:   Stats{ByTag: make(map[Tag]int)},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode consumes one chunk and returns the entities it created.
//
// On a *FormatError the returned entities are those created before the
// failure; they are already registered with the sink. Continuation state
// is left as the last good record set it.
func (d *Decoder) Decode(chunk []byte) ([]ir.Entity, error) {
	var created []ir.Entity
	d.stats.Chunks++

	off := 0
	for off < len(chunk) {
		tag := Tag(chunk[off])

		n, err := d.decodeRecord(chunk, off, tag, &created)
		if err != nil {
			d.stats.Failed++
			return created, err
		}

		d.stats.Records++
		d.stats.ByTag[tag]++
		d.stats.Bytes += n
		off += n
	}
	return created, nil
}

// Active returns the continuation state: the receiver and the message id
// the next send will be attributed to. ok is false before the first
// mailbox record.
func (d *Decoder) Active() (receiver ir.ActivityID, next ir.MessageID, ok bool) {
	return d.receiver, d.msgID, d.inMailbox
}

// Stats returns a copy of the decoder counters.
func (d *Decoder) Stats() Stats {
	s := d.stats
	s.ByTag = make(map[Tag]int, len(d.stats.ByTag))
	for k, v := range d.stats.ByTag {
		s.ByTag[k] = v
	}
	return s
}

func (d *Decoder) decodeRecord(chunk []byte, off int, tag Tag, created *[]ir.Entity) (int, error) {
	switch {
	case tag.IsSend():
		return d.readSend(chunk, off)

	case tag == TagActorCreation:
		return d.readEntity(chunk, off, ir.KindActor, created)
	case tag == TagProcessCreation:
		return d.readEntity(chunk, off, ir.KindProcess, created)
	case tag == TagTaskSpawn:
		return d.readEntity(chunk, off, ir.KindTask, created)

	case tag == TagMailbox, tag == TagMailboxContd:
		return d.readMailbox(chunk, off, tag)
	}

	if !tag.Known() {
		d.stats.Unknown++
	}
	// Promise, thread, completion and join records carry nothing the graph
	// needs; RecordLength sizes them (and unknown tags as one byte).
	return RecordLength(chunk, off)
}

func (d *Decoder) readEntity(chunk []byte, off int, kind ir.Kind, created *[]ir.Entity) (int, error) {
	if err := fits(chunk, off, SizeCreationWithOrigin); err != nil {
		return 0, err
	}

	i := off + 1
	nameID := binary.BigEndian.Uint16(chunk[i+16:])
	e := &ir.Entity{
		ID:            ir.ActivityID(ReadID(chunk, i)),
		Kind:          kind,
		NameID:        nameID,
		Name:          d.lookup(uint32(nameID), "name"),
		CausalMessage: ir.MessageID(ReadID(chunk, i+8)),
		Running:       true,
	}

	originOff := off + SizeActorCreation
	origin, err := d.readOrigin(chunk, off, originOff)
	if err != nil {
		return 0, err
	}
	e.Origin = origin

	d.sink.AddEntity(e)
	d.stats.Entities++
	*created = append(*created, *e)
	return SizeCreationWithOrigin, nil
}

func (d *Decoder) readOrigin(chunk []byte, recordOff, i int) (ir.Origin, error) {
	if Tag(chunk[i]) != TagActivityOrigin {
		return ir.Origin{}, badOrigin(chunk, recordOff, i)
	}
	fileID := binary.BigEndian.Uint16(chunk[i+1:])
	return ir.Origin{
		FileID:      fileID,
		URI:         d.lookup(uint32(fileID), "file"),
		StartLine:   binary.BigEndian.Uint16(chunk[i+3:]),
		StartColumn: binary.BigEndian.Uint16(chunk[i+5:]),
		CharLength:  binary.BigEndian.Uint16(chunk[i+7:]),
	}, nil
}

func (d *Decoder) readMailbox(chunk []byte, off int, tag Tag) (int, error) {
	size := SizeMailbox
	if tag == TagMailboxContd {
		size = SizeMailboxContd
	}
	if err := fits(chunk, off, size); err != nil {
		return 0, err
	}

	d.msgID = ir.MessageID(ReadID(chunk, off+1))
	d.receiver = ir.ActivityID(ReadID(chunk, off+1+12))
	d.inMailbox = true
	return size, nil
}

func (d *Decoder) readSend(chunk []byte, off int) (int, error) {
	n, err := sendLength(chunk, off)
	if err != nil {
		return 0, err
	}

	// The sender sits right after the optional fields, at the start of the
	// fixed tail.
	sender := ir.ActivityID(ReadID(chunk, off+n-sizeSendTail))
	d.stats.Sends++

	if !d.inMailbox {
		d.stats.OrphanSends++
		d.logger.Debug("send outside mailbox dropped", "sender", uint64(sender), "offset", off)
		return n, nil
	}

	d.sink.AddMessage(ir.MessageRecord{
		ID:       d.msgID,
		Sender:   sender,
		Receiver: d.receiver,
	})
	d.msgID++
	return n, nil
}

// lookup resolves a string id, substituting a placeholder for ids the
// table does not know yet.
func (d *Decoder) lookup(id uint32, field string) string {
	if d.strings != nil {
		if s, ok := d.strings.Lookup(id); ok {
			return s
		}
	}
	d.logger.Warn("unresolved string id", "id", id, "field", field)
	return Placeholder(id)
}

// Placeholder is the display string used for an unresolved string id.
func Placeholder(id uint32) string {
	return fmt.Sprintf("<sym:%d>", id)
}

// ReadID decodes a 64-bit id stored as two big-endian 32-bit halves,
// high half first.
func ReadID(b []byte, off int) uint64 {
	high := binary.BigEndian.Uint32(b[off:])
	low := binary.BigEndian.Uint32(b[off+4:])
	return uint64(high)<<32 | uint64(low)
}
