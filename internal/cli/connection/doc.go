// Package connection provides connections to sider-mem servers for the CLI.
//
//   - client.go: RESP2 client (request/reply, pipelining, pub/sub receive)
//   - manager.go: lazily dialed connection with reset on failure
//   - http.go: admin HTTP API client with basic auth
//
// Both transports accept a *tls.Config built by tlsroots.ClientConfig.
package connection
