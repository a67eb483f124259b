package engine

import (
	"strconv"
	"strings"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

func (e *Engine) getList(key string) (*domain.List, error) {
	v, err := e.store.Get(key, domain.TypeList)
	if err != nil || v == nil {
		return nil, err
	}
	return v.(*domain.List), nil
}

// LPUSH key element [element ...]
func cmdLPush(e *Engine, c *call) (resp.Reply, error) {
	return e.push(c, true, false)
}

// RPUSH key element [element ...]
func cmdRPush(e *Engine, c *call) (resp.Reply, error) {
	return e.push(c, false, false)
}

// LPUSHX key element [element ...]
func cmdLPushX(e *Engine, c *call) (resp.Reply, error) {
	return e.push(c, true, true)
}

// RPUSHX key element [element ...]
func cmdRPushX(e *Engine, c *call) (resp.Reply, error) {
	return e.push(c, false, true)
}

func (e *Engine) push(c *call, front, onlyExisting bool) (resp.Reply, error) {
	key, elems := c.args[0], c.args[1:]
	l, err := e.getList(key)
	if err != nil {
		return nil, err
	}
	if l == nil {
		if onlyExisting {
			return resp.Int(0), nil
		}
		l = domain.NewList()
	}
	var n int
	if front {
		n = l.PushFront(elems...)
	} else {
		n = l.PushBack(elems...)
	}
	e.store.Set(key, l, domain.TypeList)
	e.recordArgs(c.name, c.args)
	return resp.Int(n), nil
}

// LPOP key [count]
func cmdLPop(e *Engine, c *call) (resp.Reply, error) {
	return e.pop(c, true)
}

// RPOP key [count]
func cmdRPop(e *Engine, c *call) (resp.Reply, error) {
	return e.pop(c, false)
}

func (e *Engine) pop(c *call, front bool) (resp.Reply, error) {
	key := c.args[0]
	withCount := len(c.args) == 2
	count := int64(1)
	if withCount {
		n, err := strconv.ParseInt(c.args[1], 10, 64)
		if err != nil || n < 0 {
			return nil, domain.ErrNotPositive
		}
		count = n
	}

	l, err := e.getList(key)
	if err != nil {
		return nil, err
	}
	if l == nil {
		if withCount {
			return resp.NullArray, nil
		}
		return resp.Null, nil
	}

	var popped []string
	if front {
		popped = l.PopFront(int(min(count, int64(l.Len()))))
	} else {
		popped = l.PopBack(int(min(count, int64(l.Len()))))
	}
	if len(popped) > 0 {
		if l.Len() == 0 {
			e.store.Delete(key)
		}
		e.record(c.name, key, len(popped))
	}

	if !withCount {
		return resp.Bulk(popped[0]), nil
	}
	return resp.BulkStrings(popped), nil
}

// LLEN key
func cmdLLen(e *Engine, c *call) (resp.Reply, error) {
	l, err := e.getList(c.args[0])
	if err != nil || l == nil {
		return resp.Int(0), err
	}
	return resp.Int(l.Len()), nil
}

// LINDEX key index
func cmdLIndex(e *Engine, c *call) (resp.Reply, error) {
	idx, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	l, err := e.getList(c.args[0])
	if err != nil || l == nil {
		return resp.Null, err
	}
	return bulkOrNull(l.Index(idx)), nil
}

// LRANGE key start stop
func cmdLRange(e *Engine, c *call) (resp.Reply, error) {
	start, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	stop, err := parseInt(c.args[2])
	if err != nil {
		return nil, err
	}
	l, err := e.getList(c.args[0])
	if err != nil || l == nil {
		return resp.Array{}, err
	}
	return resp.BulkStrings(l.Range(start, stop)), nil
}

// LSET key index element
func cmdLSet(e *Engine, c *call) (resp.Reply, error) {
	key, value := c.args[0], c.args[2]
	idx, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	l, err := e.getList(key)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, domain.ErrNoSuchKey
	}
	if !l.Set(idx, value) {
		return nil, domain.ErrIndexRange
	}
	e.record("lset", key, idx, value)
	return resp.OK, nil
}

// LTRIM key start stop
func cmdLTrim(e *Engine, c *call) (resp.Reply, error) {
	key := c.args[0]
	start, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	stop, err := parseInt(c.args[2])
	if err != nil {
		return nil, err
	}
	l, err := e.getList(key)
	if err != nil || l == nil {
		return resp.OK, err
	}
	l.Trim(start, stop)
	if l.Len() == 0 {
		e.store.Delete(key)
	}
	e.record("ltrim", key, start, stop)
	return resp.OK, nil
}

// LREM key count element
func cmdLRem(e *Engine, c *call) (resp.Reply, error) {
	key, value := c.args[0], c.args[2]
	count, err := parseInt(c.args[1])
	if err != nil {
		return nil, err
	}
	l, err := e.getList(key)
	if err != nil || l == nil {
		return resp.Int(0), err
	}
	removed := l.Remove(count, value)
	if removed == 0 {
		return resp.Int(0), nil
	}
	if l.Len() == 0 {
		e.store.Delete(key)
	}
	e.record("lrem", key, count, value)
	return resp.Int(removed), nil
}

// LPOS key element [RANK rank] [COUNT num-matches] [MAXLEN len]
func cmdLPos(e *Engine, c *call) (resp.Reply, error) {
	key, value := c.args[0], c.args[1]
	rank, count, maxlen := int64(1), int64(0), int64(0)
	withCount := false

	opts := c.args[2:]
	for i := 0; i < len(opts); i++ {
		opt := strings.ToUpper(opts[i])
		if (opt != "RANK" && opt != "COUNT" && opt != "MAXLEN") || i+1 >= len(opts) {
			return nil, domain.ErrSyntax
		}
		i++
		n, err := parseInt(opts[i])
		if err != nil {
			return nil, err
		}
		switch opt {
		case "RANK":
			if n == 0 {
				return nil, domain.ErrLposRank
			}
			rank = n
		case "COUNT":
			if n < 0 {
				return nil, domain.ErrLposCount
			}
			count, withCount = n, true
		case "MAXLEN":
			if n < 0 {
				return nil, domain.ErrLposMaxlen
			}
			maxlen = n
		default:
			return nil, domain.ErrSyntax
		}
	}

	l, err := e.getList(key)
	if err != nil {
		return nil, err
	}
	if !withCount {
		if l == nil {
			return resp.Null, nil
		}
		pos := l.Positions(value, rank, 1, maxlen)
		if len(pos) == 0 {
			return resp.Null, nil
		}
		return resp.Int(pos[0]), nil
	}

	out := resp.Array{}
	if l != nil {
		for _, p := range l.Positions(value, rank, count, maxlen) {
			out = append(out, resp.Int(p))
		}
	}
	return out, nil
}
