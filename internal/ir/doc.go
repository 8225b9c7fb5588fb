// Package ir provides the shared value types decoded from a causeway trace.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the trace decoder, the
// graph model, the store and the HTTP surface agreeing on one vocabulary
// without circular dependencies.
//
// Key design constraints:
//   - Identities and message ids are uint64, decoded exactly (no float detour)
//   - Entities are immutable once decoded; the graph owns the only mutable state
//   - All JSON tags use snake_case
//   - Ordering uses logical chunk seq numbers, never wall-clock time
package ir
