package harness

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/trace"
)

var lifecycleTags = map[string]trace.Tag{
	"promise_creation":   trace.TagPromiseCreation,
	"promise_chained":    trace.TagPromiseChained,
	"thread":             trace.TagThread,
	"activity_origin":    trace.TagActivityOrigin,
	"promise_message":    trace.TagPromiseMessage,
	"process_completion": trace.TagProcessCompletion,
	"task_join":          trace.TagTaskJoin,
}

// EncodeChunk builds the bytes of a chunk description.
func EncodeChunk(c ChunkSpec) ([]byte, error) {
	if c.Hex != "" {
		return decodeHex(c.Hex)
	}

	enc := trace.NewEncoder()
	for i, r := range c.Records {
		if err := encodeRecord(enc, r); err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
	}
	return enc.Bytes(), nil
}

func encodeRecord(enc *trace.Encoder, r RecordSpec) error {
	switch {
	case r.Actor != nil:
		creation(enc, ir.KindActor, r.Actor)
	case r.Process != nil:
		creation(enc, ir.KindProcess, r.Process)
	case r.Task != nil:
		creation(enc, ir.KindTask, r.Task)

	case r.Mailbox != nil:
		enc.Mailbox(ir.MessageID(r.Mailbox.Msg), ir.ActivityID(r.Mailbox.Receiver))
	case r.MailboxContd != nil:
		enc.MailboxContd(ir.MessageID(r.MailboxContd.Msg), ir.ActivityID(r.MailboxContd.Receiver))

	case r.Send != nil:
		s := trace.Send{
			Sender:     ir.ActivityID(r.Send.Sender),
			Prefix:     r.Send.Prefix,
			Timestamps: r.Send.Timestamps,
		}
		for _, p := range r.Send.Params {
			s.Params = append(s.Params, trace.Param{Type: trace.ParamType(p.Type), Value: p.Value})
		}
		n := r.Send.Repeat
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			enc.Send(s)
		}

	case r.PromiseResolution != nil:
		enc.PromiseResolution(trace.Param{
			Type:  trace.ParamType(r.PromiseResolution.Type),
			Value: r.PromiseResolution.Value,
		})

	case r.Lifecycle != "":
		tag, ok := lifecycleTags[r.Lifecycle]
		if !ok {
			return fmt.Errorf("unknown lifecycle record %q", r.Lifecycle)
		}
		enc.Lifecycle(tag)

	case r.Raw != "":
		b, err := decodeHex(r.Raw)
		if err != nil {
			return err
		}
		enc.Raw(b...)

	default:
		return fmt.Errorf("empty record")
	}
	return nil
}

func creation(enc *trace.Encoder, kind ir.Kind, c *CreationSpec) {
	enc.Creation(kind, ir.ActivityID(c.ID), ir.MessageID(c.Causal), c.Name, trace.OriginSpec{
		FileID:      c.File,
		StartLine:   c.Line,
		StartColumn: c.Column,
		CharLength:  c.Length,
	})
}

func decodeHex(s string) ([]byte, error) {
	clean := strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// sortedStrings flattens a string map in id order.
func sortedStrings(m map[uint32]string) ([]uint32, []string) {
	ids := make([]uint32, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = m[id]
	}
	return ids, values
}
