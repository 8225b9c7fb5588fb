// Package store provides SQLite-backed durable storage for causeway trace
// sessions.
//
// A session is the append-only log of one trace stream:
//   - Strings: interned string registrations, in arrival order
//   - Chunks: raw trace chunks with their decode outcome
//   - Entities: the entities each chunk created
//
// # Critical Patterns
//
// Logical time:
//   - All ordering uses the engine's seq (logical clock), never timestamps
//   - A string registration remembers the seq of the last chunk before it,
//     so replay interleaves strings and chunks exactly as they arrived
//
// Deterministic query results:
//   - Every read orders by seq, then by a stable tiebreaker
//
// Append-only:
//   - Rows are never updated; a duplicate entity keeps the first row, which
//     matches the registry's first-wins rule
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
