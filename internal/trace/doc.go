// Package trace decodes the binary execution trace emitted by an
// instrumented concurrent runtime.
//
// A trace arrives as a sequence of chunks. Each chunk is a run of
// self-describing records with no length prefix; every record starts with a
// one-byte tag. All multi-byte fields are big-endian.
//
// # Record kinds
//
// Tags 1..13 are lifecycle records with a fixed size (see format.go).
// Creation records (actor, process, task) embed a nested origin record
// (tag 8) that carries the source location of the creating expression.
//
// Tags with the high bit set are message sends. The low flag bits of the tag
// select optional fields:
//
//	0x40  8-byte prefix (promise message)
//	0x20  16-byte timestamp pair
//	0x10  u8 parameter count followed by encoded parameters
//
// followed by the sender id (8 bytes) and 10 reserved bytes.
//
// Any other tag below 0x80 is a zero-length record so that newer producers
// can add record kinds without breaking older decoders.
//
// # Continuation state
//
// Mailbox records set the active receiver and active message id; every
// later send is attributed to that receiver and consumes one message id.
// This state spans chunk boundaries, so a Decoder must be created once per
// trace stream and fed its chunks in arrival order by a single owner.
package trace
