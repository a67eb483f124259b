package handler

import "time"

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// StatusSummary is the body of GET /admin/v1/status/summary.
type StatusSummary struct {
	Status           string `json:"status" yaml:"status"`
	Version          string `json:"version" yaml:"version"`
	UptimeSeconds    int64  `json:"uptime_seconds" yaml:"uptime_seconds"`
	ConnectedClients int    `json:"connected_clients" yaml:"connected_clients"`
	Keys             int    `json:"keys" yaml:"keys"`
	KeysWithExpiry   int    `json:"keys_with_expiry" yaml:"keys_with_expiry"`
	ExpiredKeys      uint64 `json:"expired_keys" yaml:"expired_keys"`
	AOFWrittenBytes  uint64 `json:"aof_written_bytes" yaml:"aof_written_bytes"`
}

// GCResult is the body of POST /admin/v1/gc/trigger.
type GCResult struct {
	Removed     int    `json:"removed" yaml:"removed"`
	TriggeredAt string `json:"triggered_at" yaml:"triggered_at"`
}
