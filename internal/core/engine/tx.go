package engine

import (
	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// MULTI
func cmdMulti(_ *Engine, c *call) (resp.Reply, error) {
	if c.sess.InTx() {
		return nil, domain.ErrMultiNested
	}
	c.sess.BeginTx()
	return resp.OK, nil
}

// DISCARD
func cmdDiscard(_ *Engine, c *call) (resp.Reply, error) {
	if !c.sess.InTx() {
		return nil, domain.ErrDiscardNoMulti
	}
	c.sess.DiscardTx()
	return resp.OK, nil
}

// EXEC
//
// Queued commands run back to back under the command lock. The first
// failing command aborts the batch with EXECABORT; commands that already
// ran keep their effects.
func cmdExec(e *Engine, c *call) (resp.Reply, error) {
	if !c.sess.InTx() {
		return nil, domain.ErrExecNoMulti
	}
	queued := c.sess.TakeTx()

	out := make(resp.Array, 0, len(queued))
	for i, q := range queued {
		reply, err := e.dispatch(&call{
			ctx:    c.ctx,
			sess:   c.sess,
			name:   q.Name,
			args:   q.Args,
			nested: true,
		})
		if err != nil {
			logger.L(c.ctx).Warn("transaction aborted", "queued", q.Name, "index", i, "error", err)
			return nil, domain.ErrExecAbort
		}
		frame, err := resp.Encode(reply)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.PreEncoded(frame))
	}
	return out, nil
}
