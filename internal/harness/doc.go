// Package harness runs YAML trace scenarios against the real ingest
// pipeline.
//
// A scenario lists string registrations and chunks, each chunk given as
// record descriptions or as a hex payload. Run feeds them through an
// engine.Engine that records into an in-memory store, then evaluates the
// scenario's assertions against the per-chunk outcomes and the final graph.
//
// Every run also replays the recorded session into a fresh engine and fails
// if the replayed graph differs, so each scenario doubles as a replay
// determinism check.
//
// Golden files under testdata/golden hold the JSON of a run (chunk outcomes
// plus graph snapshot). Regenerate them with:
//
//	go test ./internal/harness -update
package harness
