package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError is an error reported to the client as a RESP error reply.
// Code is the leading token of the reply ("ERR", "WRONGTYPE", ...).
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

// Error renders the reply text "<CODE> <message>".
func (e *DomainError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + " " + e.Message
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches another DomainError with the same code and message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Errorf creates an ERR-coded DomainError with a formatted message.
func Errorf(format string, args ...any) *DomainError {
	return NewDomainError("ERR", fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Cause: cause}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return code == "" || de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Argument and value errors
// ============================================================================

var (
	ErrNotInteger    = NewDomainError("ERR", "value is not an integer or out of range")
	ErrSyntax        = NewDomainError("ERR", "syntax error")
	ErrValueFloat    = NewDomainError("ERR", "value is not a valid float")
	ErrHashFloat     = NewDomainError("ERR", "hash value is not a float")
	ErrHashInteger   = NewDomainError("ERR", "hash value is not an integer")
	ErrInvalidCursor = NewDomainError("ERR", "invalid cursor")
	ErrDBIndex       = NewDomainError("ERR", "DB index is out of range")
	ErrNoSuchKey     = NewDomainError("ERR", "no such key")
	ErrIndexRange    = NewDomainError("ERR", "index out of range")
	ErrIncrOverflow  = NewDomainError("ERR", "increment or decrement would overflow")
	ErrIncrNaN       = NewDomainError("ERR", "increment would produce NaN or Infinity")
	ErrOffsetRange   = NewDomainError("ERR", "offset is out of range")
	ErrClientName    = NewDomainError("ERR", "Client names cannot contain spaces, newlines or special characters.")
	ErrNotPositive   = NewDomainError("ERR", "value is out of range, must be positive")
	ErrProtoInteger  = NewDomainError("ERR", "Protocol version is not an integer or out of range")

	ErrLposRank   = NewDomainError("ERR", "RANK can't be zero: use 1 to start from the first match, 2 from the second ... or use negative to start from the end of the list")
	ErrLposCount  = NewDomainError("ERR", "COUNT can't be negative")
	ErrLposMaxlen = NewDomainError("ERR", "MAXLEN can't be negative")
)

// ============================================================================
// Keyspace, session and transaction errors
// ============================================================================

var (
	ErrWrongType = NewDomainError("WRONGTYPE", "Operation against a key holding the wrong kind of value")
	ErrWrongPass = NewDomainError("WRONGPASS", "invalid username-password pair or user is disabled.")
	ErrNoAuth    = NewDomainError("NOAUTH", "Authentication required.")
	ErrNoProto   = NewDomainError("NOPROTO", "unsupported protocol version")

	ErrAuthNotConfigured = NewDomainError("ERR", "AUTH <password> called without any password configured for the default user. Are you sure your configuration is correct?")

	ErrExecAbort      = NewDomainError("EXECABORT", "Transaction discarded because of previous errors.")
	ErrMultiNested    = NewDomainError("ERR", "MULTI calls can not be nested")
	ErrExecNoMulti    = NewDomainError("ERR", "EXEC without MULTI")
	ErrDiscardNoMulti = NewDomainError("ERR", "DISCARD without MULTI")

	ErrInternal = NewDomainError("ERR", "internal error")
)

// ErrWrongArity reports a known command called with the wrong number of
// arguments.
func ErrWrongArity(cmd string) *DomainError {
	return Errorf("wrong number of arguments for '%s' command", strings.ToLower(cmd))
}

// ErrInvalidExpire reports an expiry that is out of range for cmd.
func ErrInvalidExpire(cmd string) *DomainError {
	return Errorf("invalid expire time in '%s' command", strings.ToLower(cmd))
}

// ErrUnknownCommand names the verb and the first arguments it was called
// with.
func ErrUnknownCommand(cmd string, args []string) *DomainError {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, "`"+a+"`")
	}
	return Errorf("unknown command `%s`, with args beginning with: %s", cmd, strings.Join(quoted, ", "))
}

// ErrUnknownSubcommand reports an unsupported subcommand of a container
// command such as COMMAND or CLIENT.
func ErrUnknownSubcommand(sub, container string) *DomainError {
	return Errorf("Unknown subcommand or wrong number of arguments for '%s'. Try %s HELP.",
		sub, strings.ToUpper(container))
}
