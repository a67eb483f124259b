package pubsub

import (
	"errors"
	"reflect"
	"testing"
)

type fakeSub struct {
	id     string
	frames []string
	err    error
}

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Deliver(frame []byte) error {
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, string(frame))
	return nil
}

// ============================================================================
// Subscribe / Unsubscribe
// ============================================================================

func TestSubscribe_Counts(t *testing.T) {
	r := New(nil)
	a := &fakeSub{id: "a"}

	acks := r.Subscribe(a, "news", "sport")
	want := []Ack{{"news", 1}, {"sport", 2}}
	if !reflect.DeepEqual(acks, want) {
		t.Errorf("Subscribe() = %v, want %v", acks, want)
	}

	// Resubscribing does not add a subscription.
	acks = r.Subscribe(a, "news")
	if acks[0].Count != 2 {
		t.Errorf("resubscribe count = %d, want 2", acks[0].Count)
	}

	acks = r.PSubscribe(a, "n*")
	if acks[0].Count != 3 {
		t.Errorf("PSubscribe count = %d, want 3", acks[0].Count)
	}
	if r.Count(a) != 3 {
		t.Errorf("Count() = %d, want 3", r.Count(a))
	}
}

func TestUnsubscribe_All(t *testing.T) {
	r := New(nil)
	a := &fakeSub{id: "a"}
	r.Subscribe(a, "b", "a")
	r.PSubscribe(a, "x*")

	acks := r.Unsubscribe(a)
	want := []Ack{{"a", 2}, {"b", 1}}
	if !reflect.DeepEqual(acks, want) {
		t.Errorf("Unsubscribe() = %v, want %v", acks, want)
	}
	if got := r.Channels(""); len(got) != 0 {
		t.Errorf("Channels() = %v, want none", got)
	}

	acks = r.PUnsubscribe(a)
	if !reflect.DeepEqual(acks, []Ack{{"x*", 0}}) {
		t.Errorf("PUnsubscribe() = %v", acks)
	}
	if r.NumPat() != 0 {
		t.Errorf("NumPat() = %d, want 0", r.NumPat())
	}
}

func TestUnsubscribe_NotSubscribed(t *testing.T) {
	r := New(nil)
	a := &fakeSub{id: "a"}

	acks := r.Unsubscribe(a, "nothing")
	if !reflect.DeepEqual(acks, []Ack{{"nothing", 0}}) {
		t.Errorf("Unsubscribe() = %v", acks)
	}
	if acks := r.Unsubscribe(a); len(acks) != 0 {
		t.Errorf("Unsubscribe() with nothing = %v, want empty", acks)
	}
}

// ============================================================================
// Publish
// ============================================================================

func TestPublish_ChannelAndPattern(t *testing.T) {
	r := New(nil)
	a := &fakeSub{id: "a"}
	b := &fakeSub{id: "b"}
	r.Subscribe(a, "news.tech")
	r.PSubscribe(b, "news.*")

	n := r.Publish("news.tech", "hello")
	if n != 2 {
		t.Errorf("Publish() = %d, want 2", n)
	}

	wantA := "*3\r\n$7\r\nmessage\r\n$9\r\nnews.tech\r\n$5\r\nhello\r\n"
	if len(a.frames) != 1 || a.frames[0] != wantA {
		t.Errorf("a frames = %q", a.frames)
	}
	wantB := "*4\r\n$8\r\npmessage\r\n$6\r\nnews.*\r\n$9\r\nnews.tech\r\n$5\r\nhello\r\n"
	if len(b.frames) != 1 || b.frames[0] != wantB {
		t.Errorf("b frames = %q", b.frames)
	}

	if n := r.Publish("other", "x"); n != 0 {
		t.Errorf("Publish(other) = %d, want 0", n)
	}
}

func TestPublish_FailedSubscriberPruned(t *testing.T) {
	r := New(nil)
	bad := &fakeSub{id: "bad", err: errors.New("closed")}
	good := &fakeSub{id: "good"}
	r.Subscribe(bad, "ch")
	r.Subscribe(good, "ch")
	r.PSubscribe(bad, "c*")

	if n := r.Publish("ch", "m"); n != 1 {
		t.Errorf("Publish() = %d, want 1", n)
	}
	if got := r.NumSub("ch"); got[0] != 1 {
		t.Errorf("NumSub(ch) = %v, want [1]", got)
	}
	if r.NumPat() != 0 {
		t.Errorf("NumPat() = %d, want 0", r.NumPat())
	}
}

// ============================================================================
// Introspection
// ============================================================================

func TestChannelsAndNumSub(t *testing.T) {
	r := New(nil)
	a := &fakeSub{id: "a"}
	b := &fakeSub{id: "b"}
	r.Subscribe(a, "news", "sport")
	r.Subscribe(b, "news")

	if got := r.Channels(""); !reflect.DeepEqual(got, []string{"news", "sport"}) {
		t.Errorf("Channels() = %v", got)
	}
	if got := r.Channels("s*"); !reflect.DeepEqual(got, []string{"sport"}) {
		t.Errorf("Channels(s*) = %v", got)
	}
	if got := r.NumSub("news", "sport", "none"); !reflect.DeepEqual(got, []int{2, 1, 0}) {
		t.Errorf("NumSub() = %v", got)
	}

	r.RemoveSubscriber(a)
	if got := r.Channels(""); !reflect.DeepEqual(got, []string{"news"}) {
		t.Errorf("Channels() after remove = %v", got)
	}
	if r.Count(a) != 0 {
		t.Errorf("Count(a) = %d, want 0", r.Count(a))
	}
}
