// Package domain defines the value types held in the sider-mem keyspace
// and the canonical RESP errors reported to clients.
//
// Domain values are plain data structures without IO dependencies:
//
//   - Type: the tag carried by every stored entry
//   - Hash: field to value mapping that remembers insertion order
//   - List: ordered sequence with tail-relative indexing helpers
//   - DomainError: "<CODE> <message>" errors surfaced as error replies
//
// Values are not safe for concurrent mutation; the store serializes
// access.
package domain
