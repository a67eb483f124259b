package logger

import (
	"log/slog"
	"strings"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"requirepass",
	"secret",
	"credential",
	"auth",
}

// Commands whose arguments carry credentials.
var credentialCommands = map[string]int{
	"auth":  0,
	"hello": 1,
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		return a
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// RedactArgs returns args with credential arguments masked, for logging
// commands such as AUTH and HELLO. The input slice is not modified.
func RedactArgs(cmd string, args []string) []string {
	from, ok := credentialCommands[strings.ToLower(cmd)]
	if !ok || len(args) <= from {
		return args
	}
	out := make([]string, len(args))
	copy(out, args)
	for i := from; i < len(out); i++ {
		out[i] = redactedValue
	}
	return out
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
