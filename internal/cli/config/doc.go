// Package config provides CLI configuration for sider-mem.
//
// This package defines CLI-specific configuration:
//
//   - spec.go: CLIConfig struct (~/.sidermem/cli.yaml)
//   - loader.go: loading, saving and validation
//
// Configuration includes:
//
//   - Saved connection profiles and the current one
//   - Output format preference
//   - History file location
package config
