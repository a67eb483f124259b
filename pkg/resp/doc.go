// Package resp implements the RESP2 wire codec used by sider-mem.
//
// Decoder is an incremental parser: bytes are appended with Write as they
// arrive from the socket and complete frames are pulled with Next. A frame
// split across reads is retained until the rest arrives, so callers never
// see partial values.
//
// Replies are a closed set of types implementing Reply. Encode turns any
// Reply into its wire bytes. FromValue maps loosely typed Go values onto
// that set for handlers that build replies dynamically.
package resp
