package testutil

import (
	"github.com/roach88/causeway/internal/ir"
	"github.com/roach88/causeway/internal/trace"
)

// Symbol ids used by the canned chunks.
const (
	SymMain   uint16 = 1
	SymWorker uint16 = 2
	SymFile   uint16 = 3
)

// Symbols returns the string table entries the canned chunks refer to.
func Symbols() ([]uint32, []string) {
	return []uint32{uint32(SymMain), uint32(SymWorker), uint32(SymFile)},
		[]string{"Main", "Worker", "main.som"}
}

// StringTable returns a table preloaded with Symbols.
func StringTable() *trace.StringTable {
	st := trace.NewStringTable()
	ids, values := Symbols()
	if err := st.AddStrings(ids, values); err != nil {
		panic(err)
	}
	return st
}

// Origin is the source location attached to every canned creation.
func Origin(line uint16) trace.OriginSpec {
	return trace.OriginSpec{FileID: SymFile, StartLine: line, StartColumn: 1, CharLength: 4}
}

// MainChunk creates actor 1 named Main.
func MainChunk() []byte {
	return trace.NewEncoder().Actor(1, 0, SymMain, Origin(1)).Bytes()
}

// WorkersChunk creates n Worker actors with ids 100..100+n-1, each caused
// by a distinct message sent by actor 1 to itself.
//
// The chunk opens with a mailbox for actor 1 so the causal messages have a
// sender on record.
func WorkersChunk(n int) []byte {
	enc := trace.NewEncoder()
	enc.Mailbox(1000, 1)
	for i := 0; i < n; i++ {
		enc.Send(trace.Send{Sender: 1})
	}
	for i := 0; i < n; i++ {
		enc.Actor(ir.ActivityID(100+i), ir.MessageID(1000+i), SymWorker, Origin(uint16(10+i)))
	}
	return enc.Bytes()
}

// PingChunk records count sends from sender into receiver's mailbox,
// starting at message id first.
func PingChunk(first ir.MessageID, sender, receiver ir.ActivityID, count int) []byte {
	enc := trace.NewEncoder()
	enc.Mailbox(first, receiver)
	for i := 0; i < count; i++ {
		enc.Send(trace.Send{Sender: sender})
	}
	return enc.Bytes()
}

// TruncatedChunk is an actor creation missing its last three bytes.
func TruncatedChunk() []byte {
	b := trace.NewEncoder().Actor(7, 0, SymMain, Origin(1)).Bytes()
	return b[:len(b)-3]
}
