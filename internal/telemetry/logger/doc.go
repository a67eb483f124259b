// Package logger provides structured logging for sider-mem.
//
// It wraps log/slog with a small Logger interface so that components
// receive their logger at construction time. Each component names itself
// with Named, which adds a "component" attribute to every entry.
//
// Attributes whose key looks like a credential (password, secret, auth,
// ...) are redacted by the handler before they reach the output.
//
// There is no global logger. The level belongs to the root returned by
// New and is shared with everything derived from it, so the config
// watcher can change it on any child.
package logger
