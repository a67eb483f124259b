// Package main provides the entry point for sidermem-server.
//
// The server is a single-node in-memory key-value store that provides:
//
//   - A RESP2 listener compatible with Redis clients, optionally over TLS
//   - Durability through an append-only command log replayed at startup
//   - An optional admin HTTP server with health, status and metrics
//
// Usage:
//
//	sidermem-server [flags]
//	sidermem-server --config /path/to/sidermem.yaml
//	sidermem-server --addr 0.0.0.0:6379 --db-dir /var/lib/sidermem
//
// Settings are resolved from defaults, then the configuration file, then
// SIDER_ environment variables, then flags.
package main
