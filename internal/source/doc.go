// Package source reads trace streams from disk.
//
// A trace file (".trace") is the concatenation of the runtime's buffers,
// each of which holds whole records. Its symbol side file (".sym", same
// base name) holds one "id:string" string table entry per line.
//
// ReadFile and ReadSymbols load a finished trace. A Follower tails a trace
// that is still being written and hands each appended range of whole
// records to a Consumer, after any symbols that appeared with it.
package source
