package resp

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ErrNotSimpleString is returned when a status reply contains CRLF.
var ErrNotSimpleString = errors.New("resp: not a simple string")

// Reply is an encodable response. The set of implementations is closed.
type Reply interface {
	appendTo(dst []byte) ([]byte, error)
}

// Status is a simple string reply ("+OK").
type Status string

// Error is an error reply. The message carries its own code prefix
// ("ERR ...", "WRONGTYPE ...").
type Error string

// Int is an integer reply.
type Int int64

// Bulk is a bulk string reply.
type Bulk string

// BulkLines is a bulk string built from lines joined with CRLF.
type BulkLines []string

// Array is an array reply; each element is encoded by its own type.
type Array []Reply

// PreEncoded is emitted verbatim. It carries already framed sub-replies.
type PreEncoded []byte

type nullBulk struct{}

type nullArray struct{}

var (
	// Null is the null bulk reply "$-1".
	Null Reply = nullBulk{}
	// NullArray is the null array reply "*-1".
	NullArray Reply = nullArray{}

	OK     = Status("OK")
	Queued = Status("QUEUED")
	Pong   = Status("PONG")
)

// Encode returns the wire form of r.
func Encode(r Reply) ([]byte, error) {
	return AppendReply(nil, r)
}

// AppendReply appends the wire form of r to dst.
func AppendReply(dst []byte, r Reply) ([]byte, error) {
	if r == nil {
		return nullBulk{}.appendTo(dst)
	}
	return r.appendTo(dst)
}

// MustEncode is Encode for replies that cannot fail, such as constants.
func MustEncode(r Reply) []byte {
	b, err := Encode(r)
	if err != nil {
		panic(err)
	}
	return b
}

func (s Status) appendTo(dst []byte) ([]byte, error) {
	if strings.ContainsAny(string(s), "\r\n") {
		return dst, fmt.Errorf("%w: %q", ErrNotSimpleString, string(s))
	}
	dst = append(dst, '+')
	dst = append(dst, s...)
	return append(dst, crlf...), nil
}

func (e Error) appendTo(dst []byte) ([]byte, error) {
	msg := strings.NewReplacer("\r", " ", "\n", " ").Replace(string(e))
	dst = append(dst, '-')
	dst = append(dst, msg...)
	return append(dst, crlf...), nil
}

func (i Int) appendTo(dst []byte) ([]byte, error) {
	dst = append(dst, ':')
	dst = strconv.AppendInt(dst, int64(i), 10)
	return append(dst, crlf...), nil
}

func (b Bulk) appendTo(dst []byte) ([]byte, error) {
	return appendBulk(dst, string(b)), nil
}

func (l BulkLines) appendTo(dst []byte) ([]byte, error) {
	return appendBulk(dst, strings.Join(l, "\r\n")), nil
}

func (a Array) appendTo(dst []byte) ([]byte, error) {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(a)), 10)
	dst = append(dst, crlf...)
	var err error
	for _, e := range a {
		if dst, err = AppendReply(dst, e); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func (p PreEncoded) appendTo(dst []byte) ([]byte, error) {
	return append(dst, p...), nil
}

func (nullBulk) appendTo(dst []byte) ([]byte, error) {
	return append(dst, "$-1\r\n"...), nil
}

func (nullArray) appendTo(dst []byte) ([]byte, error) {
	return append(dst, "*-1\r\n"...), nil
}

func appendBulk(dst []byte, s string) []byte {
	dst = append(dst, '$')
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, crlf...)
	dst = append(dst, s...)
	return append(dst, crlf...)
}

// FromValue maps a loosely typed result onto a Reply: nil is a null bulk,
// integers are integer replies, slices are arrays, errors are error
// replies, maps are flattened key/value arrays and anything else is a
// status reply.
func FromValue(v any) Reply {
	switch x := v.(type) {
	case nil:
		return Null
	case Reply:
		return x
	case error:
		return Error(x.Error())
	case string:
		return Status(x)
	case []string:
		return BulkStrings(x)
	case []any:
		return ArrayOf(x...)
	}
	if i, ok := asInt(v); ok {
		return Int(i)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return ArrayOf(sliceElems(rv)...)
	case reflect.Map:
		return flattenMap(rv)
	}
	return Status(fmt.Sprint(v))
}

// ArrayOf builds an array reply, choosing each element's encoding from
// its runtime type: nil is a null bulk, strings are bulk strings,
// integers are integer replies, slices nest and anything else is
// stringified into a bulk string.
func ArrayOf(elems ...any) Array {
	out := make(Array, len(elems))
	for i, e := range elems {
		out[i] = element(e)
	}
	return out
}

// BulkStrings is an array reply of bulk strings.
func BulkStrings(ss []string) Array {
	out := make(Array, len(ss))
	for i, s := range ss {
		out[i] = Bulk(s)
	}
	return out
}

func element(e any) Reply {
	switch x := e.(type) {
	case nil:
		return Null
	case Reply:
		return x
	case string:
		return Bulk(x)
	case []string:
		return BulkStrings(x)
	case []any:
		return ArrayOf(x...)
	case error:
		return Error(x.Error())
	}
	if i, ok := asInt(e); ok {
		return Int(i)
	}
	rv := reflect.ValueOf(e)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return ArrayOf(sliceElems(rv)...)
	}
	return Bulk(fmt.Sprint(e))
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	}
	return 0, false
}

func sliceElems(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// flattenMap renders a map as [k1, v1, k2, v2, ...] with keys sorted.
func flattenMap(rv reflect.Value) Array {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	out := make(Array, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, Bulk(fmt.Sprint(k.Interface())), element(rv.MapIndex(k).Interface()))
	}
	return out
}
