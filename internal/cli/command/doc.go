// Package command provides CLI command definitions for sidermem-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, profile resolution
//   - exec.go: One-shot commands and pub/sub streaming
//   - repl.go: Interactive mode, the default action
//   - info.go: INFO parsed into a table
//   - bench.go: Pooled load generator
//   - system.go: Admin HTTP API (status, health, gc)
//   - config.go: Local CLI configuration and profiles
//
// Arguments that do not name a subcommand are sent to the server as a
// command, so "sidermem-cli get greeting" works like "exec get greeting".
package command
