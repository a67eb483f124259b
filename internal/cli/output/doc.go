// Package output provides output formatting for sider-mem CLI.
//
// This package handles all CLI output formatting:
//
//   - formatter.go: Formatter interface and factory
//   - text.go: interactive reply rendering ("(integer) 1", numbered arrays)
//   - raw.go: bare payloads for scripting
//   - json.go, yaml.go: structured encoders over ToNative
//   - table.go: aligned tables for structs, maps and INFO
//   - progress.go: progress bar for bench runs
package output
