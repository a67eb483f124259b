// Package metric provides Prometheus metrics for the server.
//
//   - prometheus.go: registry, command and connection metrics, HTTP handler
//   - collector.go: scrape-time collector over keyspace and AOF figures
//
// Metrics are exposed at /metrics by the admin HTTP server.
package metric
