// Package shutdown coordinates process termination for sidermem-server.
//
// A Handler waits for SIGINT/SIGTERM or a programmatic Trigger (the
// SHUTDOWN command), then runs the registered hooks in reverse order
// under a shared timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	reason, err := h.Wait(ctx)
package shutdown
