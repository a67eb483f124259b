package resp

import (
	"strconv"
	"strings"
)

// Kind is the RESP2 type byte of a decoded value.
type Kind byte

const (
	KindSimple  Kind = '+'
	KindError   Kind = '-'
	KindInteger Kind = ':'
	KindBulk    Kind = '$'
	KindArray   Kind = '*'
)

// Value is a decoded RESP2 frame.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Elems []Value
	Null  bool
}

// Args flattens a request frame into command arguments. Integers are
// rendered in base 10 and null elements become empty strings. A scalar
// frame yields a single argument.
func (v Value) Args() []string {
	if v.Kind != KindArray {
		if v.Null {
			return nil
		}
		return []string{v.scalar()}
	}
	out := make([]string, 0, len(v.Elems))
	for _, e := range v.Elems {
		out = append(out, e.scalar())
	}
	return out
}

func (v Value) scalar() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindArray:
		return ""
	default:
		return v.Str
	}
}

// String renders the value for logs.
func (v Value) String() string {
	if v.Null {
		return "(nil)"
	}
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindError:
		return "(error) " + v.Str
	case KindArray:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return strconv.Quote(v.Str)
	}
}
