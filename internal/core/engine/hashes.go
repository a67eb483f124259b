package engine

import (
	"strconv"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// getHash returns the hash at key, or nil when the key is missing. With
// create set a missing key gets a new empty hash that the caller must
// store.
func (e *Engine) getHash(key string, create bool) (*domain.Hash, error) {
	v, err := e.store.Get(key, domain.TypeHash)
	if err != nil {
		return nil, err
	}
	if v == nil {
		if !create {
			return nil, nil
		}
		return domain.NewHash(), nil
	}
	return v.(*domain.Hash), nil
}

// HSET key field value [field value ...]
func cmdHSet(e *Engine, c *call) (resp.Reply, error) {
	added, err := e.hset(c)
	if err != nil {
		return nil, err
	}
	return resp.Int(added), nil
}

// HMSET key field value [field value ...]
func cmdHMSet(e *Engine, c *call) (resp.Reply, error) {
	if _, err := e.hset(c); err != nil {
		return nil, err
	}
	return resp.OK, nil
}

func (e *Engine) hset(c *call) (int, error) {
	key, pairs := c.args[0], c.args[1:]
	if len(pairs)%2 != 0 {
		return 0, domain.ErrWrongArity(c.name)
	}
	h, err := e.getHash(key, true)
	if err != nil {
		return 0, err
	}
	added := 0
	for i := 0; i < len(pairs); i += 2 {
		if h.Set(pairs[i], pairs[i+1]) {
			added++
		}
	}
	e.store.Set(key, h, domain.TypeHash)
	e.recordArgs("hset", c.args)
	return added, nil
}

// HSETNX key field value
func cmdHSetNX(e *Engine, c *call) (resp.Reply, error) {
	key, field, value := c.args[0], c.args[1], c.args[2]
	h, err := e.getHash(key, true)
	if err != nil {
		return nil, err
	}
	if h.Has(field) {
		return resp.Int(0), nil
	}
	h.Set(field, value)
	e.store.Set(key, h, domain.TypeHash)
	e.record("hset", key, field, value)
	return resp.Int(1), nil
}

// HGET key field
func cmdHGet(e *Engine, c *call) (resp.Reply, error) {
	h, err := e.getHash(c.args[0], false)
	if err != nil || h == nil {
		return resp.Null, err
	}
	return bulkOrNull(h.Get(c.args[1])), nil
}

// HMGET key field [field ...]
func cmdHMGet(e *Engine, c *call) (resp.Reply, error) {
	h, err := e.getHash(c.args[0], false)
	if err != nil {
		return nil, err
	}
	fields := c.args[1:]
	out := make(resp.Array, len(fields))
	for i, f := range fields {
		if h == nil {
			out[i] = resp.Null
			continue
		}
		out[i] = bulkOrNull(h.Get(f))
	}
	return out, nil
}

// HGETALL key
func cmdHGetAll(e *Engine, c *call) (resp.Reply, error) {
	h, err := e.getHash(c.args[0], false)
	if err != nil {
		return nil, err
	}
	out := resp.Array{}
	if h != nil {
		h.Range(func(field, value string) bool {
			out = append(out, resp.Bulk(field), resp.Bulk(value))
			return true
		})
	}
	return out, nil
}

// HKEYS key
func cmdHKeys(e *Engine, c *call) (resp.Reply, error) {
	h, err := e.getHash(c.args[0], false)
	if err != nil || h == nil {
		return resp.Array{}, err
	}
	return resp.BulkStrings(h.Fields()), nil
}

// HVALS key
func cmdHVals(e *Engine, c *call) (resp.Reply, error) {
	h, err := e.getHash(c.args[0], false)
	if err != nil || h == nil {
		return resp.Array{}, err
	}
	return resp.BulkStrings(h.Values()), nil
}

// HLEN key
func cmdHLen(e *Engine, c *call) (resp.Reply, error) {
	h, err := e.getHash(c.args[0], false)
	if err != nil || h == nil {
		return resp.Int(0), err
	}
	return resp.Int(h.Len()), nil
}

// HEXISTS key field
func cmdHExists(e *Engine, c *call) (resp.Reply, error) {
	h, err := e.getHash(c.args[0], false)
	if err != nil || h == nil || !h.Has(c.args[1]) {
		return resp.Int(0), err
	}
	return resp.Int(1), nil
}

// HSTRLEN key field
func cmdHStrlen(e *Engine, c *call) (resp.Reply, error) {
	h, err := e.getHash(c.args[0], false)
	if err != nil || h == nil {
		return resp.Int(0), err
	}
	v, _ := h.Get(c.args[1])
	return resp.Int(len(v)), nil
}

// HDEL key field [field ...]
func cmdHDel(e *Engine, c *call) (resp.Reply, error) {
	key := c.args[0]
	h, err := e.getHash(key, false)
	if err != nil || h == nil {
		return resp.Int(0), err
	}
	var removed []string
	for _, f := range c.args[1:] {
		if h.Delete(f) {
			removed = append(removed, f)
		}
	}
	if len(removed) == 0 {
		return resp.Int(0), nil
	}
	if h.Len() == 0 {
		e.store.Delete(key)
	}
	e.recordArgs("hdel", append([]string{key}, removed...))
	return resp.Int(len(removed)), nil
}

// HINCRBY key field increment
func cmdHIncrBy(e *Engine, c *call) (resp.Reply, error) {
	key, field := c.args[0], c.args[1]
	delta, err := parseInt(c.args[2])
	if err != nil {
		return nil, err
	}
	h, err := e.getHash(key, true)
	if err != nil {
		return nil, err
	}
	var cur int64
	if s, ok := h.Get(field); ok {
		if cur, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, domain.ErrHashInteger
		}
	}
	sum, err := addInt(cur, delta)
	if err != nil {
		return nil, err
	}
	next := strconv.FormatInt(sum, 10)
	h.Set(field, next)
	e.store.Set(key, h, domain.TypeHash)
	e.record("hset", key, field, next)
	return resp.Int(sum), nil
}

// HINCRBYFLOAT key field increment
func cmdHIncrByFloat(e *Engine, c *call) (resp.Reply, error) {
	key, field := c.args[0], c.args[1]
	inc, ok := parseFloat(c.args[2])
	if !ok {
		return nil, domain.ErrValueFloat
	}
	h, err := e.getHash(key, true)
	if err != nil {
		return nil, err
	}
	var cur float64
	if s, exists := h.Get(field); exists {
		if cur, ok = parseFloat(s); !ok {
			return nil, domain.ErrHashFloat
		}
	}
	next, err := addFloat(cur, inc)
	if err != nil {
		return nil, err
	}
	h.Set(field, next)
	e.store.Set(key, h, domain.TypeHash)
	e.record("hset", key, field, next)
	return resp.Bulk(next), nil
}

// HSCAN key cursor [MATCH pattern] [COUNT count] [NOVALUES]
//
// Hashes are small enough to be returned in one pass, so the reply cursor
// is always 0.
func cmdHScan(e *Engine, c *call) (resp.Reply, error) {
	if _, err := parseCursor(c.args[1]); err != nil {
		return nil, err
	}
	opts, err := parseScanOptions(c.args[2:], false)
	if err != nil {
		return nil, err
	}
	h, err := e.getHash(c.args[0], false)
	if err != nil {
		return nil, err
	}
	items := resp.Array{}
	if h != nil {
		h.Range(func(field, value string) bool {
			if !opts.matches(field) {
				return true
			}
			items = append(items, resp.Bulk(field))
			if !opts.noValue {
				items = append(items, resp.Bulk(value))
			}
			return true
		})
	}
	return resp.Array{resp.Bulk("0"), items}, nil
}
