// Package main provides the entry point for sidermem-cli.
//
// The CLI talks RESP2 to a sider-mem server and, for the system
// commands, to its admin HTTP API:
//
//   - One-shot commands (sidermem-cli set greeting hello)
//   - Interactive REPL with history (the default)
//   - INFO as a table, load testing with bench
//   - Saved connection profiles in ~/.sidermem/cli.yaml
//
// Usage:
//
//	sidermem-cli [global options] [command [arguments...]]
//	sidermem-cli -p 7379 -a secret info keyspace
//	sidermem-cli --output json lrange queue 0 -1
//	sidermem-cli bench -n 100000 -c 50 -P 16 -t set
package main
