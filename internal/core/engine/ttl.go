package engine

import (
	"math"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// expireAt sets the absolute expiry of key to at (Unix ms) when cond
// holds. A timestamp already in the past deletes the key. It returns 1
// when the expiry was set and 0 otherwise, as EXPIRE does.
func (e *Engine) expireAt(key string, at int64, cond expireCond) int {
	if !e.store.Has(key) {
		return 0
	}
	cur, hasTTL := e.store.GetExpiry(key)
	switch cond {
	case condNX:
		if hasTTL {
			return 0
		}
	case condXX:
		if !hasTTL {
			return 0
		}
	case condGT:
		// A key without a TTL counts as infinite.
		if !hasTTL || at <= cur {
			return 0
		}
	case condLT:
		if hasTTL && at >= cur {
			return 0
		}
	}

	if at <= e.nowMs() {
		e.store.Delete(key)
		e.record("del", key)
		return 0
	}
	e.store.SetExpiry(key, at)
	e.record("pexpireat", key, at)
	return 1
}

func (e *Engine) expireCmd(c *call, unit int64, absolute bool) (resp.Reply, error) {
	n, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	cond, err := parseExpireCond(c.args[2:])
	if err != nil {
		return nil, err
	}
	at, err := toMillis(c.name, n, unit)
	if err != nil {
		return nil, err
	}
	if !absolute {
		now := e.nowMs()
		if at > 0 && now > math.MaxInt64-at {
			return nil, domain.ErrInvalidExpire(c.name)
		}
		at += now
	}
	return resp.Int(e.expireAt(c.args[0], at, cond)), nil
}

// EXPIRE key seconds [NX|XX|GT|LT]
func cmdExpire(e *Engine, c *call) (resp.Reply, error) {
	return e.expireCmd(c, 1000, false)
}

// PEXPIRE key milliseconds [NX|XX|GT|LT]
func cmdPExpire(e *Engine, c *call) (resp.Reply, error) {
	return e.expireCmd(c, 1, false)
}

// EXPIREAT key unix-time-seconds [NX|XX|GT|LT]
func cmdExpireAt(e *Engine, c *call) (resp.Reply, error) {
	return e.expireCmd(c, 1000, true)
}

// PEXPIREAT key unix-time-milliseconds [NX|XX|GT|LT]
func cmdPExpireAt(e *Engine, c *call) (resp.Reply, error) {
	return e.expireCmd(c, 1, true)
}

// pexpireTime returns the absolute expiry of key in ms, -1 for a key
// without TTL and -2 for a missing key.
func (e *Engine) pexpireTime(key string) int64 {
	if !e.store.Has(key) {
		return -2
	}
	at, ok := e.store.GetExpiry(key)
	if !ok {
		return -1
	}
	return at
}

// pttl is like pexpireTime but relative to now.
func (e *Engine) pttl(key string) int64 {
	at := e.pexpireTime(key)
	if at < 0 {
		return at
	}
	return max(at-e.nowMs(), 0)
}

func toSeconds(ms int64) int64 {
	if ms < 0 {
		return ms
	}
	return ms / 1000
}

// TTL key
func cmdTTL(e *Engine, c *call) (resp.Reply, error) {
	return resp.Int(toSeconds(e.pttl(c.args[0]))), nil
}

// PTTL key
func cmdPTTL(e *Engine, c *call) (resp.Reply, error) {
	return resp.Int(e.pttl(c.args[0])), nil
}

// EXPIRETIME key
func cmdExpireTime(e *Engine, c *call) (resp.Reply, error) {
	return resp.Int(toSeconds(e.pexpireTime(c.args[0]))), nil
}

// PEXPIRETIME key
func cmdPExpireTime(e *Engine, c *call) (resp.Reply, error) {
	return resp.Int(e.pexpireTime(c.args[0])), nil
}

// PERSIST key
func cmdPersist(e *Engine, c *call) (resp.Reply, error) {
	key := c.args[0]
	if !e.store.Has(key) || !e.store.DeleteExpiry(key) {
		return resp.Int(0), nil
	}
	e.record("persist", key)
	return resp.Int(1), nil
}
