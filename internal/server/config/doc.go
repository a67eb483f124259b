// Package config defines the sidermem-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (addresses, TLS files, limits, policies)
//   - sanitize.go: Copy with secrets masked for logging
//
// Configuration is loaded via internal/infra/confloader from a YAML
// file, SIDER_ environment variables and command-line flags.
package config
