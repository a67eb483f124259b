// Package tests holds end-to-end tests that run sider-mem components
// together over real sockets and files.
//
// Run them with:
//
//	go test ./internal/tests/...
//
// They are skipped with -short.
package tests
