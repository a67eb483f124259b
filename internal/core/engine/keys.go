package engine

import (
	"strconv"
	"strings"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/internal/core/session"
	"github.com/yndnr/sidermem-go/pkg/glob"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// DEL key [key ...]
func cmdDel(e *Engine, c *call) (resp.Reply, error) {
	var deleted []string
	for _, key := range c.args {
		if e.store.Has(key) && e.store.Delete(key) {
			deleted = append(deleted, key)
		}
	}
	if len(deleted) > 0 {
		e.recordArgs("del", deleted)
	}
	return resp.Int(len(deleted)), nil
}

// EXISTS key [key ...]
func cmdExists(e *Engine, c *call) (resp.Reply, error) {
	n := 0
	for _, key := range c.args {
		if e.store.Has(key) {
			n++
		}
	}
	return resp.Int(n), nil
}

// TYPE key
func cmdType(e *Engine, c *call) (resp.Reply, error) {
	return resp.Status(e.store.Type(c.args[0]).String()), nil
}

// KEYS pattern
func cmdKeys(e *Engine, c *call) (resp.Reply, error) {
	m := glob.Compile(c.args[0])
	out := resp.Array{}
	for _, key := range e.store.Keys() {
		if m.Match(key) && e.store.Has(key) {
			out = append(out, resp.Bulk(key))
		}
	}
	return out, nil
}

// SCAN cursor [MATCH pattern] [COUNT count] [TYPE type]
//
// The first call snapshots the keyspace one partition at a time, yielding
// between partitions, and the session cursor hands the keys out in sorted
// order. The returned cursor is the number of snapshot keys visited so
// far, and COUNT bounds the keys visited per call, not the keys returned.
func cmdScan(e *Engine, c *call) (resp.Reply, error) {
	pos, err := parseCursor(c.args[0])
	if err != nil {
		return nil, err
	}
	opts, err := parseScanOptions(c.args[1:], true)
	if err != nil {
		return nil, err
	}

	cur := c.sess.Cursor()
	if pos == 0 || cur == nil || uint64(cur.Pos) != pos {
		cur = session.NewCursor(e.store.Generation())
		for i, n := 0, e.store.Partitions(); i < n; i++ {
			if i > 0 {
				e.yield(c)
			}
			cur.AddRun(e.store.PartitionKeys(i))
		}
		c.sess.SetCursor(cur)
	}

	found := []string{}
	for visited := 0; visited < opts.count && !cur.Done(); visited++ {
		if visited > 0 {
			e.yield(c)
		}
		key, _ := cur.Next()
		if !opts.matches(key) {
			continue
		}
		if !e.snapshotCurrent(cur) && !e.store.Has(key) {
			continue
		}
		if opts.typed && e.store.Type(key) != opts.typ {
			continue
		}
		found = append(found, key)
	}

	next := "0"
	if cur.Done() {
		c.sess.SetCursor(nil)
	} else {
		next = strconv.Itoa(cur.Pos)
	}
	return resp.Array{resp.Bulk(next), resp.BulkStrings(found)}, nil
}

// snapshotCurrent reports whether every key in the cursor snapshot is
// still live: nothing was added or removed since the scan began and no
// key carries a TTL.
func (e *Engine) snapshotCurrent(cur *session.Cursor) bool {
	return cur.Gen == e.store.Generation() && e.store.ExpiresCount() == 0
}

// RENAME key newkey
func cmdRename(e *Engine, c *call) (resp.Reply, error) {
	if err := e.rename(c.args[0], c.args[1]); err != nil {
		return nil, err
	}
	return resp.OK, nil
}

// RENAMENX key newkey
func cmdRenameNX(e *Engine, c *call) (resp.Reply, error) {
	src, dst := c.args[0], c.args[1]
	if !e.store.Has(src) {
		return nil, domain.ErrNoSuchKey
	}
	if e.store.Has(dst) {
		return resp.Int(0), nil
	}
	if err := e.rename(src, dst); err != nil {
		return nil, err
	}
	return resp.Int(1), nil
}

// rename moves the value and TTL of src to dst, replacing dst.
func (e *Engine) rename(src, dst string) error {
	typ := e.store.Type(src)
	if typ == domain.TypeNone {
		return domain.ErrNoSuchKey
	}
	if src == dst {
		return nil
	}
	v, err := e.store.Get(src, typ)
	if err != nil {
		return err
	}
	at, hasTTL := e.store.GetExpiry(src)

	e.store.Delete(dst)
	e.store.Set(dst, v, typ)
	if hasTTL {
		e.store.SetExpiry(dst, at)
	}
	e.store.Delete(src)
	e.record("rename", src, dst)
	return nil
}

// DBSIZE
func cmdDBSize(e *Engine, _ *call) (resp.Reply, error) {
	return resp.Int(e.store.Size()), nil
}

// FLUSHDB [ASYNC|SYNC], FLUSHALL [ASYNC|SYNC]
func cmdFlush(e *Engine, c *call) (resp.Reply, error) {
	switch len(c.args) {
	case 0:
	case 1:
		if m := strings.ToUpper(c.args[0]); m != "ASYNC" && m != "SYNC" {
			return nil, domain.ErrSyntax
		}
	default:
		return nil, domain.ErrSyntax
	}
	e.store.Clear()
	e.record(c.name)
	return resp.OK, nil
}
