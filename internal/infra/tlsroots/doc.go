// Package tlsroots manages TLS material for sider-mem.
//
//   - roots.go: CA pools and server/client tls.Config builders
//   - watcher.go: key pair hot-reload via fsnotify
//
// The RESP listener serves the certificate held by a Watcher, so a
// rotated key pair is picked up by new connections without a restart.
package tlsroots
