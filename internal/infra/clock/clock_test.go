package clock

import (
	"testing"
	"time"
)

func TestManual(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	c := NewManual(start)

	if got := NowMs(c); got != 1_700_000_000_000 {
		t.Errorf("NowMs() = %d", got)
	}
	c.Advance(1500 * time.Millisecond)
	if got := NowMs(c); got != 1_700_000_001_500 {
		t.Errorf("NowMs() after Advance = %d", got)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("Now() after Set = %v", c.Now())
	}
}

func TestSystem(t *testing.T) {
	before := time.Now()
	got := System().Now()
	if got.Before(before) || got.Sub(before) > time.Second {
		t.Errorf("System().Now() = %v, not close to %v", got, before)
	}
}
