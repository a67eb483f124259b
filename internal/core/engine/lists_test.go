package engine

import (
	"reflect"
	"testing"

	"github.com/yndnr/sidermem-go/internal/core/domain"
)

func TestList_PushPop(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"rpush l a b c", integer(3)},
		{"lpush l z y", integer(5)},
		{"lrange l 0 -1", bulks("y", "z", "a", "b", "c")},
		{"llen l", integer(5)},
		{"type l", status("list")},
		{"lpushx missing a", integer(0)},
		{"rpushx missing a", integer(0)},
		{"exists missing", integer(0)},
		{"rpushx l d", integer(6)},
		{"lpop l", bulk("y")},
		{"rpop l", bulk("d")},
		{"lpop l 2", bulks("z", "a")},
		{"rpop l 5", bulks("c", "b")},
		{"exists l", integer(0)},
		{"lpop l", nilBulk},
		{"lpop l 2", nilArr},
		{"lpop l -1", errText(domain.ErrNotPositive)},
		{"lpop l x", errText(domain.ErrNotPositive)},
		{"llen l", integer(0)},
	})
}

func TestList_PopLog(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"rpush l a b c", integer(3)},
		{"lpop l 10", bulks("a", "b", "c")},
	})
	want := [][]string{
		{"rpush", "l", "a", "b", "c"},
		{"lpop", "l", "3"},
	}
	if got := h.sink.commands(t); !reflect.DeepEqual(got, want) {
		t.Fatalf("log = %v, want %v", got, want)
	}
}

func TestList_IndexRangeSet(t *testing.T) {
	h := newHarness(t)
	h.do("rpush", "l", "a", "b", "c", "d")
	h.run([]step{
		{"lindex l 0", bulk("a")},
		{"lindex l -1", bulk("d")},
		{"lindex l 10", nilBulk},
		{"lindex missing 0", nilBulk},
		{"lindex l x", errText(domain.ErrNotInteger)},
		{"lrange l 1 2", bulks("b", "c")},
		{"lrange l -2 100", bulks("c", "d")},
		{"lrange l 3 1", empty},
		{"lrange missing 0 -1", empty},
		{"lset l 1 B", ok},
		{"lset l -1 D", ok},
		{"lset l 10 x", errText(domain.ErrIndexRange)},
		{"lset missing 0 x", errText(domain.ErrNoSuchKey)},
		{"lrange l 0 -1", bulks("a", "B", "c", "D")},
	})
}

func TestList_TrimRem(t *testing.T) {
	h := newHarness(t)
	h.run([]step{
		{"rpush l a b a c a", integer(5)},
		{"lrem l 1 a", integer(1)},
		{"lrange l 0 -1", bulks("b", "a", "c", "a")},
		{"lrem l -1 a", integer(1)},
		{"lrange l 0 -1", bulks("b", "a", "c")},
		{"lrem l 0 zz", integer(0)},
		{"lrem missing 0 a", integer(0)},
		{"ltrim l 1 -1", ok},
		{"lrange l 0 -1", bulks("a", "c")},
		{"ltrim missing 0 1", ok},
		{"ltrim l 5 10", ok},
		{"exists l", integer(0)},

		{"rpush m x x", integer(2)},
		{"lrem m 0 x", integer(2)},
		{"exists m", integer(0)},
	})
}

func TestList_Pos(t *testing.T) {
	h := newHarness(t)
	h.do("rpush", "l", "a", "b", "c", "1", "2", "3", "c", "c")
	h.run([]step{
		{"lpos l c", integer(2)},
		{"lpos l zz", nilBulk},
		{"lpos missing c", nilBulk},
		{"lpos l c RANK 2", integer(6)},
		{"lpos l c RANK -1", integer(7)},
		{"lpos l c COUNT 2", array(integer(2), integer(6))},
		{"lpos l c COUNT 0", array(integer(2), integer(6), integer(7))},
		{"lpos l c RANK -1 COUNT 2", array(integer(7), integer(6))},
		{"lpos l c COUNT 0 MAXLEN 3", array(integer(2))},
		{"lpos l c MAXLEN 2", nilBulk},
		{"lpos missing c COUNT 1", empty},
		{"lpos l c RANK 0", errText(domain.ErrLposRank)},
		{"lpos l c COUNT -1", errText(domain.ErrLposCount)},
		{"lpos l c MAXLEN -1", errText(domain.ErrLposMaxlen)},
		{"lpos l c BOGUS 1", errText(domain.ErrSyntax)},
		{"lpos l c RANK", errText(domain.ErrSyntax)},
		{"lpos l c RANK x", errText(domain.ErrNotInteger)},
	})
}

func TestList_WrongType(t *testing.T) {
	h := newHarness(t)
	h.do("set", "s", "v")
	wrong := errText(domain.ErrWrongType)
	h.run([]step{
		{"lpush s a", wrong},
		{"lpop s", wrong},
		{"llen s", wrong},
		{"lrange s 0 -1", wrong},
		{"lpos s a", wrong},
	})
}
