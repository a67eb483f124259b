package engine

import (
	"testing"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/internal/core/session"
)

type inbox struct {
	frames []string
}

func (b *inbox) deliver(frame []byte) error {
	b.frames = append(b.frames, string(frame))
	return nil
}

func ack(kind, name string, n int64) string {
	return array(bulk(kind), bulk(name), integer(n))
}

func TestPubSub_SubscribePublish(t *testing.T) {
	h := newHarness(t)
	box := &inbox{}
	sub := h.e.Connect(session.WithDeliver(box.deliver))

	if got := h.doAs(sub, "subscribe", "a", "b"); got != ack("subscribe", "a", 1)+ack("subscribe", "b", 2) {
		t.Fatalf("subscribe = %q", got)
	}
	if got := h.doAs(sub, "psubscribe", "n*"); got != ack("psubscribe", "n*", 3) {
		t.Fatalf("psubscribe = %q", got)
	}

	h.run([]step{
		{"publish a hello", integer(1)},
		{"publish news flash", integer(1)},
		{"publish other x", integer(0)},
	})

	want := []string{
		bulks("message", "a", "hello"),
		bulks("pmessage", "n*", "news", "flash"),
	}
	if len(box.frames) != len(want) {
		t.Fatalf("delivered %q, want %q", box.frames, want)
	}
	for i := range want {
		if box.frames[i] != want[i] {
			t.Errorf("frame %d = %q, want %q", i, box.frames[i], want[i])
		}
	}
}

func TestPubSub_Unsubscribe(t *testing.T) {
	h := newHarness(t)
	sub := h.e.Connect(session.WithDeliver((&inbox{}).deliver))
	h.doAs(sub, "subscribe", "b", "a")
	h.doAs(sub, "psubscribe", "p*")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"unsubscribe"}, ack("unsubscribe", "a", 2) + ack("unsubscribe", "b", 1)},
		{[]string{"unsubscribe"}, array(bulk("unsubscribe"), nilBulk, integer(1))},
		{[]string{"punsubscribe", "p*"}, ack("punsubscribe", "p*", 0)},
		{[]string{"punsubscribe"}, array(bulk("punsubscribe"), nilBulk, integer(0))},
	}
	for _, tt := range tests {
		if got := h.doAs(sub, tt.args...); got != tt.want {
			t.Errorf("%v = %q, want %q", tt.args, got, tt.want)
		}
	}
	if got := h.do("publish", "a", "x"); got != integer(0) {
		t.Errorf("publish after unsubscribe = %q", got)
	}
}

func TestPubSub_Introspection(t *testing.T) {
	h := newHarness(t)
	s1 := h.e.Connect(session.WithDeliver((&inbox{}).deliver))
	s2 := h.e.Connect(session.WithDeliver((&inbox{}).deliver))
	h.doAs(s1, "subscribe", "news", "sport")
	h.doAs(s2, "subscribe", "news")
	h.doAs(s2, "psubscribe", "n*", "s*")

	h.run([]step{
		{"pubsub channels", bulks("news", "sport")},
		{"pubsub CHANNELS s*", bulks("sport")},
		{"pubsub channels zz*", empty},
		{"pubsub numsub news sport none", array(bulk("news"), integer(2), bulk("sport"), integer(1), bulk("none"), integer(0))},
		{"pubsub numsub", empty},
		{"pubsub numpat", integer(2)},
		{"pubsub numpat x", errText(domain.ErrWrongArity("pubsub|numpat"))},
		{"pubsub bogus", errText(domain.ErrUnknownSubcommand("bogus", "pubsub"))},
	})
}

func TestPubSub_DisconnectDropsSubscriptions(t *testing.T) {
	h := newHarness(t)
	sub := h.e.Connect(session.WithDeliver((&inbox{}).deliver))
	h.doAs(sub, "subscribe", "x")
	if got := h.do("publish", "x", "1"); got != integer(1) {
		t.Fatalf("publish = %q", got)
	}

	h.e.Disconnect(sub)
	if got := h.do("publish", "x", "2"); got != integer(0) {
		t.Fatalf("publish after disconnect = %q", got)
	}
	if n := h.e.Sessions().Count(); n != 1 {
		t.Fatalf("sessions = %d, want 1", n)
	}
}
