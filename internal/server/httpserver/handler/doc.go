// Package handler provides the admin HTTP handlers for sider-mem.
//
// Endpoints:
//
//   - GET  /healthz                   liveness
//   - GET  /readyz                    readiness (503 until the log is replayed)
//   - GET  /admin/v1/status/summary   keyspace and connection figures
//   - POST /admin/v1/gc/trigger       run an expiry sweep now
//
// JSON responses share the Response envelope.
package handler
