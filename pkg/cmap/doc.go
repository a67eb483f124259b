// Package cmap provides a string-keyed concurrent map sharded by murmur3
// hash.
//
// Each shard carries its own RWMutex, so readers on different keys do
// not contend. The keyspace of sider-mem and the client registry are
// both built on it.
//
// Usage:
//
//	m := cmap.New[*Entry]()
//	m.Set("key", entry)
//	val, ok := m.Get("key")
//
// Iteration with Range holds one shard read lock at a time, so the view
// across shards is not a consistent snapshot.
package cmap
