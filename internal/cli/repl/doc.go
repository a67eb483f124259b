// Package repl provides interactive mode for sider-mem CLI.
//
// This package implements the Read-Eval-Print Loop for interactive sessions:
//
//   - repl.go: main loop, built-ins (help, history, exit) and argument splitting
//   - completer.go: command name completion, listed by "help <prefix>"
//   - history.go: command history persisted at ~/.sidermem/history
//
// Lines carrying credentials (AUTH, HELLO ... AUTH) are kept out of the
// history file.
package repl
