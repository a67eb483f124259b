package domain

// List is an ordered sequence of elements. Index arguments follow the
// RESP convention: negative values address from the tail, -1 being the
// last element.
type List struct {
	items []string
}

// NewList returns a list holding the given elements in order.
func NewList(elems ...string) *List {
	l := &List{items: make([]string, 0, len(elems))}
	l.items = append(l.items, elems...)
	return l
}

// Len returns the number of elements.
func (l *List) Len() int {
	return len(l.items)
}

// PushFront inserts each element at the head in argument order, so the
// last argument ends up first.
func (l *List) PushFront(elems ...string) int {
	head := make([]string, len(elems), len(elems)+len(l.items))
	for i, e := range elems {
		head[len(elems)-1-i] = e
	}
	l.items = append(head, l.items...)
	return len(l.items)
}

// PushBack appends elements at the tail.
func (l *List) PushBack(elems ...string) int {
	l.items = append(l.items, elems...)
	return len(l.items)
}

// PopFront removes up to n elements from the head.
func (l *List) PopFront(n int) []string {
	n = min(n, len(l.items))
	out := make([]string, n)
	copy(out, l.items[:n])
	l.items = l.items[n:]
	return out
}

// PopBack removes up to n elements from the tail, last element first.
func (l *List) PopBack(n int) []string {
	n = min(n, len(l.items))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = l.items[len(l.items)-1-i]
	}
	l.items = l.items[:len(l.items)-n]
	return out
}

// normalize converts a possibly negative index to an absolute one. The
// result may fall outside [0, Len()).
func (l *List) normalize(i int64) int64 {
	if i < 0 {
		return int64(len(l.items)) + i
	}
	return i
}

// Index returns the element at index.
func (l *List) Index(index int64) (string, bool) {
	i := l.normalize(index)
	if i < 0 || i >= int64(len(l.items)) {
		return "", false
	}
	return l.items[i], true
}

// Set replaces the element at index.
func (l *List) Set(index int64, value string) bool {
	i := l.normalize(index)
	if i < 0 || i >= int64(len(l.items)) {
		return false
	}
	l.items[i] = value
	return true
}

// clamp resolves an inclusive [start, stop] range to slice bounds. ok is
// false when the range is empty.
func (l *List) clamp(start, stop int64) (int, int, bool) {
	n := int64(len(l.items))
	start, stop = l.normalize(start), l.normalize(stop)
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return int(start), int(stop) + 1, true
}

// Range returns a copy of the elements in the inclusive range.
func (l *List) Range(start, stop int64) []string {
	lo, hi, ok := l.clamp(start, stop)
	if !ok {
		return []string{}
	}
	out := make([]string, hi-lo)
	copy(out, l.items[lo:hi])
	return out
}

// Trim keeps only the elements in the inclusive range.
func (l *List) Trim(start, stop int64) {
	lo, hi, ok := l.clamp(start, stop)
	if !ok {
		l.items = l.items[:0]
		return
	}
	kept := make([]string, hi-lo)
	copy(kept, l.items[lo:hi])
	l.items = kept
}

// Remove deletes elements equal to value: the first count from the head
// when count > 0, the last -count from the tail when count < 0, all of
// them when count == 0. It returns the number removed.
func (l *List) Remove(count int64, value string) int {
	limit := count
	if limit < 0 {
		limit = -limit
	}
	drop := make([]bool, len(l.items))
	removed := 0
	visit := func(i int) bool {
		if l.items[i] == value {
			drop[i] = true
			removed++
		}
		return limit == 0 || int64(removed) < limit
	}
	if count >= 0 {
		for i := 0; i < len(l.items); i++ {
			if !visit(i) {
				break
			}
		}
	} else {
		for i := len(l.items) - 1; i >= 0; i-- {
			if !visit(i) {
				break
			}
		}
	}
	if removed == 0 {
		return 0
	}
	kept := l.items[:0]
	for i, e := range l.items {
		if !drop[i] {
			kept = append(kept, e)
		}
	}
	l.items = kept
	return removed
}

// Positions returns the indexes of elements equal to value. rank selects
// the first match to report (1-based; negative ranks search from the
// tail), count bounds the number of results (0 means all) and maxlen
// bounds the number of elements compared (0 means all).
func (l *List) Positions(value string, rank, count, maxlen int64) []int64 {
	var out []int64
	n := int64(len(l.items))
	step, i := int64(1), int64(0)
	if rank < 0 {
		step, i = -1, n-1
		rank = -rank
	}
	seen := int64(0)
	for compared := int64(0); i >= 0 && i < n; i += step {
		if maxlen > 0 && compared >= maxlen {
			break
		}
		compared++
		if l.items[i] != value {
			continue
		}
		seen++
		if seen < rank {
			continue
		}
		out = append(out, i)
		if count > 0 && int64(len(out)) >= count {
			break
		}
	}
	return out
}

// Elements returns a copy of all elements.
func (l *List) Elements() []string {
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}
