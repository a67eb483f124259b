// Package respserver serves the RESP2 protocol over TCP or TLS.
//
// Each connection runs two goroutines. The reader decodes frames as fast
// as bytes arrive and pushes requests onto a bounded queue; the executor
// pops them one at a time, runs each through the command engine and
// writes the reply. Replies therefore leave in request order while
// decoding overlaps execution. A full queue blocks the reader, which
// stops reading from the socket until the executor catches up.
//
// Pub/sub frames pushed by other connections share the executor's
// write lock, so they are never interleaved with a partially written
// reply.
package respserver
