// Package graph reconstructs the causality graph of a decoded trace.
//
// The Model receives entities and messages from the trace decoder and
// answers the queries of the rendering layer:
//
//   - Registry indexes entities by id and groups them by name. Once a name
//     group grows past the group threshold (4) a single GroupNode stands in
//     for all of its members, permanently.
//   - Links recomputes the directed edges on every call: message links from
//     the raw sender/receiver tally and creation links from causal message
//     ids. Either end may not be known yet; such links are left out until a
//     later call, never reported as errors.
//
// Model is not synchronized. History wraps it behind a single mutex so that
// one goroutine can decode while others query; Snapshot copies the graph
// into plain values that are safe to hold after the lock is released.
package graph
