// Package server exposes an Engine over HTTP and WebSocket.
//
// The REST routes under /api/v1 read the graph (nodes, links, stats,
// snapshot) and ingest chunks and strings. The /ws endpoint streams a
// "new_entities" message for every decoded chunk; Hub is the engine
// Controller behind it.
package server
