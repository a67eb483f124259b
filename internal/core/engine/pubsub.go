package engine

import (
	"strings"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/internal/core/pubsub"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// acks encodes one confirmation frame per subscription change. A bare
// UNSUBSCRIBE with nothing to remove still gets a single frame carrying
// the remaining subscription count.
func (e *Engine) acks(c *call, kind string, list []pubsub.Ack) resp.Reply {
	if len(list) == 0 {
		return resp.ArrayOf(kind, nil, e.pubsub.Count(c.sess))
	}
	var buf []byte
	for _, a := range list {
		buf = append(buf, resp.MustEncode(resp.ArrayOf(kind, a.Name, a.Count))...)
	}
	return resp.PreEncoded(buf)
}

// SUBSCRIBE channel [channel ...]
func cmdSubscribe(e *Engine, c *call) (resp.Reply, error) {
	return e.acks(c, "subscribe", e.pubsub.Subscribe(c.sess, c.args...)), nil
}

// UNSUBSCRIBE [channel ...]
func cmdUnsubscribe(e *Engine, c *call) (resp.Reply, error) {
	return e.acks(c, "unsubscribe", e.pubsub.Unsubscribe(c.sess, c.args...)), nil
}

// PSUBSCRIBE pattern [pattern ...]
func cmdPSubscribe(e *Engine, c *call) (resp.Reply, error) {
	return e.acks(c, "psubscribe", e.pubsub.PSubscribe(c.sess, c.args...)), nil
}

// PUNSUBSCRIBE [pattern ...]
func cmdPUnsubscribe(e *Engine, c *call) (resp.Reply, error) {
	return e.acks(c, "punsubscribe", e.pubsub.PUnsubscribe(c.sess, c.args...)), nil
}

// PUBLISH channel message
func cmdPublish(e *Engine, c *call) (resp.Reply, error) {
	return resp.Int(e.pubsub.Publish(c.args[0], c.args[1])), nil
}

// PUBSUB CHANNELS [pattern] | NUMSUB [channel ...] | NUMPAT
func cmdPubSub(e *Engine, c *call) (resp.Reply, error) {
	sub, rest := strings.ToLower(c.args[0]), c.args[1:]
	switch sub {
	case "channels":
		if len(rest) > 1 {
			return nil, domain.ErrWrongArity("pubsub|channels")
		}
		pattern := ""
		if len(rest) == 1 {
			pattern = rest[0]
		}
		return resp.BulkStrings(e.pubsub.Channels(pattern)), nil
	case "numsub":
		counts := e.pubsub.NumSub(rest...)
		out := make(resp.Array, 0, 2*len(rest))
		for i, ch := range rest {
			out = append(out, resp.Bulk(ch), resp.Int(counts[i]))
		}
		return out, nil
	case "numpat":
		if len(rest) != 0 {
			return nil, domain.ErrWrongArity("pubsub|numpat")
		}
		return resp.Int(e.pubsub.NumPat()), nil
	}
	return nil, domain.ErrUnknownSubcommand(c.args[0], "pubsub")
}
