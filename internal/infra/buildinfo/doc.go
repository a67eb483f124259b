// Package buildinfo exposes the version reported by the sidermem
// binaries, INFO server and the admin status endpoint.
//
//   - Version: Semantic version (e.g., "0.3.0")
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
package buildinfo
