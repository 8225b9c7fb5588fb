// Package engine runs the single-writer ingest loop of causeway.
//
// An Engine owns everything that belongs to one trace stream: the string
// table, the trace decoder with its continuation state, and the graph
// History the decoder feeds. Chunks reach the decoder strictly one at a
// time, in arrival order.
//
// # Ingest flow
//
//  1. A chunk arrives through Feed (synchronous) or Enqueue (queued, drained
//     by Run in a single goroutine).
//  2. The chunk is stamped with the next logical seq from the Clock.
//  3. It is decoded under the History lock, so queries never observe a
//     half-applied chunk.
//  4. The Recorder, if any, stores the raw chunk, the decode outcome and the
//     entities it created.
//  5. On success the Controllers are handed the chunk's new entities. This is
//     a one-shot notification per chunk, not a subscription.
//
// A malformed chunk aborts only its own decode. Records before the failure
// stay applied, the error is returned (Feed) or logged (Run), and the next
// chunk decodes normally.
//
// Seq numbers are logical. Wall-clock time is never used for ordering, so
// replaying a stored session reproduces the same graph.
package engine
