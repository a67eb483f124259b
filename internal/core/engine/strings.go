package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// getString returns the string stored at key. ok is false for a missing
// key.
func (e *Engine) getString(key string) (string, bool, error) {
	v, err := e.store.Get(key, domain.TypeString)
	if err != nil || v == nil {
		return "", false, err
	}
	return v.(string), true, nil
}

// setString stores value at key and logs it. The TTL is cleared unless
// keepTTL is set.
func (e *Engine) setString(key, value string, keepTTL bool) {
	if keepTTL {
		e.store.Has(key)
	} else {
		e.store.DeleteExpiry(key)
	}
	e.store.Set(key, value, domain.TypeString)
	if keepTTL {
		e.record("set", key, value, "KEEPTTL")
	} else {
		e.record("set", key, value)
	}
}

func bulkOrNull(s string, ok bool) resp.Reply {
	if !ok {
		return resp.Null
	}
	return resp.Bulk(s)
}

// GET key
func cmdGet(e *Engine, c *call) (resp.Reply, error) {
	v, ok, err := e.getString(c.args[0])
	if err != nil {
		return nil, err
	}
	return bulkOrNull(v, ok), nil
}

type setOptions struct {
	nx, xx    bool
	keepTTL   bool
	hasExpiry bool
	at        int64
}

func parseSetOptions(args []string, nowMs int64) (*setOptions, error) {
	opts := &setOptions{}
	for i := 0; i < len(args); i++ {
		at, isExpiry, err := expiryOption("set", args, i, nowMs)
		if err != nil {
			return nil, err
		}
		if isExpiry {
			if opts.hasExpiry || opts.keepTTL {
				return nil, domain.ErrSyntax
			}
			opts.hasExpiry, opts.at = true, at
			i++
			continue
		}
		switch strings.ToUpper(args[i]) {
		case "NX":
			if opts.xx {
				return nil, domain.ErrSyntax
			}
			opts.nx = true
		case "XX":
			if opts.nx {
				return nil, domain.ErrSyntax
			}
			opts.xx = true
		case "KEEPTTL":
			if opts.hasExpiry {
				return nil, domain.ErrSyntax
			}
			opts.keepTTL = true
		default:
			return nil, domain.ErrSyntax
		}
	}
	return opts, nil
}

// SET key value [NX|XX] [EX s|PX ms|EXAT ts|PXAT ts-ms|KEEPTTL]
func cmdSet(e *Engine, c *call) (resp.Reply, error) {
	key, value := c.args[0], c.args[1]
	opts, err := parseSetOptions(c.args[2:], e.nowMs())
	if err != nil {
		return nil, err
	}

	exists := e.store.Has(key)
	if (opts.nx && exists) || (opts.xx && !exists) {
		return resp.Null, nil
	}

	e.setString(key, value, opts.keepTTL)
	if opts.hasExpiry {
		e.expireAt(key, opts.at, condNone)
	}
	return resp.OK, nil
}

// SETNX key value
func cmdSetNX(e *Engine, c *call) (resp.Reply, error) {
	if e.store.Has(c.args[0]) {
		return resp.Int(0), nil
	}
	e.setString(c.args[0], c.args[1], false)
	return resp.Int(1), nil
}

// SETEX key seconds value
func cmdSetEx(e *Engine, c *call) (resp.Reply, error) {
	return e.setWithTTL(c, 1000)
}

// PSETEX key milliseconds value
func cmdPSetEx(e *Engine, c *call) (resp.Reply, error) {
	return e.setWithTTL(c, 1)
}

func (e *Engine) setWithTTL(c *call, unit int64) (resp.Reply, error) {
	key, value := c.args[0], c.args[2]
	n, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, domain.ErrInvalidExpire(c.name)
	}
	ms, err := toMillis(c.name, n, unit)
	if err != nil {
		return nil, err
	}
	e.setString(key, value, false)
	e.expireAt(key, e.nowMs()+ms, condNone)
	return resp.OK, nil
}

// GETSET key value
func cmdGetSet(e *Engine, c *call) (resp.Reply, error) {
	old, ok, err := e.getString(c.args[0])
	if err != nil {
		return nil, err
	}
	e.setString(c.args[0], c.args[1], false)
	return bulkOrNull(old, ok), nil
}

// GETDEL key
func cmdGetDel(e *Engine, c *call) (resp.Reply, error) {
	v, ok, err := e.getString(c.args[0])
	if err != nil || !ok {
		return bulkOrNull(v, ok), err
	}
	e.store.Delete(c.args[0])
	e.record("del", c.args[0])
	return resp.Bulk(v), nil
}

// GETEX key [EX s|PX ms|EXAT ts|PXAT ts-ms|PERSIST]
func cmdGetEx(e *Engine, c *call) (resp.Reply, error) {
	key, opts := c.args[0], c.args[1:]

	var (
		at      int64
		expire  bool
		persist bool
	)
	switch {
	case len(opts) == 0:
	case len(opts) == 1 && strings.EqualFold(opts[0], "PERSIST"):
		persist = true
	case len(opts) == 2:
		var err error
		at, expire, err = expiryOption(c.name, opts, 0, e.nowMs())
		if err != nil {
			return nil, err
		}
		if !expire {
			return nil, domain.ErrSyntax
		}
	default:
		return nil, domain.ErrSyntax
	}

	v, ok, err := e.getString(key)
	if err != nil || !ok {
		return bulkOrNull(v, ok), err
	}
	switch {
	case persist:
		if e.store.DeleteExpiry(key) {
			e.record("persist", key)
		}
	case expire:
		e.expireAt(key, at, condNone)
	}
	return resp.Bulk(v), nil
}

// MGET key [key ...]
func cmdMGet(e *Engine, c *call) (resp.Reply, error) {
	out := make(resp.Array, len(c.args))
	for i, key := range c.args {
		v, ok, err := e.getString(key)
		out[i] = bulkOrNull(v, ok && err == nil)
	}
	return out, nil
}

// MSET key value [key value ...]
func cmdMSet(e *Engine, c *call) (resp.Reply, error) {
	e.mset(c.args)
	return resp.OK, nil
}

func (e *Engine) mset(pairs []string) {
	for i := 0; i < len(pairs); i += 2 {
		e.store.DeleteExpiry(pairs[i])
		e.store.Set(pairs[i], pairs[i+1], domain.TypeString)
	}
	e.recordArgs("mset", pairs)
}

// MSETNX key value [key value ...]
func cmdMSetNX(e *Engine, c *call) (resp.Reply, error) {
	for i := 0; i < len(c.args); i += 2 {
		if e.store.Has(c.args[i]) {
			return resp.Int(0), nil
		}
	}
	e.mset(c.args)
	return resp.Int(1), nil
}

// APPEND key value
func cmdAppend(e *Engine, c *call) (resp.Reply, error) {
	key := c.args[0]
	cur, _, err := e.getString(key)
	if err != nil {
		return nil, err
	}
	next := cur + c.args[1]
	e.store.Set(key, next, domain.TypeString)
	e.record("append", key, c.args[1])
	return resp.Int(len(next)), nil
}

// STRLEN key
func cmdStrlen(e *Engine, c *call) (resp.Reply, error) {
	v, _, err := e.getString(c.args[0])
	if err != nil {
		return nil, err
	}
	return resp.Int(len(v)), nil
}

// GETRANGE key start end
func cmdGetRange(e *Engine, c *call) (resp.Reply, error) {
	start, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	end, err := parseInt(c.args[2])
	if err != nil {
		return nil, err
	}
	v, _, err := e.getString(c.args[0])
	if err != nil {
		return nil, err
	}
	return resp.Bulk(substring(v, start, end)), nil
}

// substring returns the inclusive byte range [start, end] of s with
// negative offsets counted from the end.
func substring(s string, start, end int64) string {
	n := int64(len(s))
	if n == 0 {
		return ""
	}
	if start < 0 {
		start = max(n+start, 0)
	}
	if end < 0 {
		end = max(n+end, 0)
	}
	end = min(end, n-1)
	if start > end {
		return ""
	}
	return s[start : end+1]
}

// maxStringLength bounds SETRANGE growth (512 MiB).
const maxStringLength = 512 << 20

// SETRANGE key offset value
func cmdSetRange(e *Engine, c *call) (resp.Reply, error) {
	key, value := c.args[0], c.args[2]
	offset, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset+int64(len(value)) > maxStringLength {
		return nil, domain.ErrOffsetRange
	}
	cur, exists, err := e.getString(key)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return resp.Int(len(cur)), nil
	}

	buf := []byte(cur)
	if end := int(offset) + len(value); end > len(buf) {
		buf = append(buf, make([]byte, end-len(buf))...)
	}
	copy(buf[offset:], value)
	next := string(buf)

	if !exists {
		e.store.DeleteExpiry(key)
	}
	e.store.Set(key, next, domain.TypeString)
	e.record("setrange", key, offset, value)
	return resp.Int(len(next)), nil
}

// ============================================================================
// Counters
// ============================================================================

// increment is the single write path of the numeric commands. apply
// computes the new value from the current one; the key keeps its TTL and
// the result is logged as a plain SET.
func (e *Engine) increment(key string, apply func(cur string, exists bool) (string, error)) (string, error) {
	cur, exists, err := e.getString(key)
	if err != nil {
		return "", err
	}
	next, err := apply(cur, exists)
	if err != nil {
		return "", err
	}
	e.store.Set(key, next, domain.TypeString)
	e.record("set", key, next, "KEEPTTL")
	return next, nil
}

func (e *Engine) incrBy(key string, delta int64) (resp.Reply, error) {
	var result int64
	_, err := e.increment(key, func(cur string, exists bool) (string, error) {
		var n int64
		if exists {
			v, err := strconv.ParseInt(cur, 10, 64)
			if err != nil {
				return "", domain.ErrNotInteger
			}
			n = v
		}
		sum, err := addInt(n, delta)
		if err != nil {
			return "", err
		}
		result = sum
		return strconv.FormatInt(sum, 10), nil
	})
	if err != nil {
		return nil, err
	}
	return resp.Int(result), nil
}

// INCR key
func cmdIncr(e *Engine, c *call) (resp.Reply, error) {
	return e.incrBy(c.args[0], 1)
}

// DECR key
func cmdDecr(e *Engine, c *call) (resp.Reply, error) {
	return e.incrBy(c.args[0], -1)
}

// INCRBY key increment
func cmdIncrBy(e *Engine, c *call) (resp.Reply, error) {
	n, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	return e.incrBy(c.args[0], n)
}

// DECRBY key decrement
func cmdDecrBy(e *Engine, c *call) (resp.Reply, error) {
	n, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	if n == math.MinInt64 {
		return nil, domain.ErrIncrOverflow
	}
	return e.incrBy(c.args[0], -n)
}

// INCRBYFLOAT key increment
func cmdIncrByFloat(e *Engine, c *call) (resp.Reply, error) {
	inc, ok := parseFloat(c.args[1])
	if !ok {
		return nil, domain.ErrValueFloat
	}
	next, err := e.increment(c.args[0], func(cur string, exists bool) (string, error) {
		var v float64
		if exists {
			if v, ok = parseFloat(cur); !ok {
				return "", domain.ErrValueFloat
			}
		}
		return addFloat(v, inc)
	})
	if err != nil {
		return nil, err
	}
	return resp.Bulk(next), nil
}

func addFloat(cur, inc float64) (string, error) {
	sum := cur + inc
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return "", domain.ErrIncrNaN
	}
	return formatFloat(sum), nil
}
