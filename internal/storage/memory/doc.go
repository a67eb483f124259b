// Package memory provides the expiring keyspace of sider-mem.
//
// The keyspace is two cmap-backed tables: the main table maps keys to
// type-tagged entries and the expiry table maps keys to absolute expiry
// instants in Unix milliseconds. A key present in the expiry table is
// always present in the main table.
//
// Expired keys are removed lazily, when Has or Get observes them, and
// actively by a background sweep that walks a snapshot of the expiry
// table. The sweep takes the store lock once per key and yields between
// keys, so foreground commands are never held off for a whole pass.
//
// Thread Safety:
//
// Store embeds the command lock. Callers that need multi-step atomicity
// (the command engine, the sweep) hold Lock for the duration of one
// command. The tables themselves are safe for concurrent readers such
// as INFO and DBSIZE that do not take the lock.
package memory
