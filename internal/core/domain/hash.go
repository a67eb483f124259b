package domain

// Hash is a field/value mapping. Iteration follows insertion order.
type Hash struct {
	fields map[string]string
	order  []string
}

// NewHash returns an empty hash.
func NewHash() *Hash {
	return &Hash{fields: make(map[string]string)}
}

// Len returns the number of fields.
func (h *Hash) Len() int {
	return len(h.fields)
}

// Get returns the value of field.
func (h *Hash) Get(field string) (string, bool) {
	v, ok := h.fields[field]
	return v, ok
}

// Has reports whether field exists.
func (h *Hash) Has(field string) bool {
	_, ok := h.fields[field]
	return ok
}

// Set stores value under field and reports whether the field is new.
func (h *Hash) Set(field, value string) bool {
	_, exists := h.fields[field]
	if !exists {
		h.order = append(h.order, field)
	}
	h.fields[field] = value
	return !exists
}

// Delete removes field and reports whether it existed.
func (h *Hash) Delete(field string) bool {
	if _, ok := h.fields[field]; !ok {
		return false
	}
	delete(h.fields, field)
	for i, f := range h.order {
		if f == field {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return true
}

// Fields returns field names in insertion order.
func (h *Hash) Fields() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Values returns values in field insertion order.
func (h *Hash) Values() []string {
	out := make([]string, 0, len(h.order))
	for _, f := range h.order {
		out = append(out, h.fields[f])
	}
	return out
}

// Range calls fn for each field in insertion order until fn returns false.
func (h *Hash) Range(fn func(field, value string) bool) {
	for _, f := range h.order {
		if !fn(f, h.fields[f]) {
			return
		}
	}
}
