package logger

import "context"

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	// loggerKey is the context key for the logger.
	loggerKey contextKey = "sidermem.logger"
	// connIDKey is the context key for the client connection id.
	connIDKey contextKey = "sidermem.conn_id"
	// commandKey is the context key for the executing command.
	commandKey contextKey = "sidermem.command"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context. Without one it returns
// a logger that discards everything.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Nop()
}

// WithConnID adds the client connection id to the context.
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connIDKey, connID)
}

// ConnIDFromContext extracts the connection id from context.
func ConnIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(connIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCommand adds the executing command name to the context.
func WithCommand(ctx context.Context, cmd string) context.Context {
	return context.WithValue(ctx, commandKey, cmd)
}

// CommandFromContext extracts the command name from context.
func CommandFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(commandKey).(string); ok {
		return id
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger
// with the connection id and command from the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)

	if id := ConnIDFromContext(ctx); id != "" {
		l = l.With("conn_id", id)
	}
	if cmd := CommandFromContext(ctx); cmd != "" {
		l = l.With("command", cmd)
	}

	return l
}
