// Package httpserver provides the admin HTTP server for sider-mem.
//
// It uses the Go standard library net/http and serves:
//
//   - Health endpoints: /healthz, /readyz
//   - Prometheus metrics: /metrics
//   - Admin endpoints: /admin/v1/*
//
// Admin endpoints reuse the RESP credentials through HTTP basic auth
// and can be restricted to an IP/CIDR allowlist.
package httpserver
