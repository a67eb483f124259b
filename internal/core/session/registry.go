package session

import (
	"sort"
	"sync/atomic"

	"github.com/yndnr/sidermem-go/pkg/cmap"
)

// Registry tracks connected sessions.
type Registry struct {
	sessions *cmap.Map[*Session]
	nextNum  atomic.Int64
	total    atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: cmap.New[*Session]()}
}

// Open creates and registers a new session.
func (r *Registry) Open(opts ...Option) *Session {
	s := New(r.nextNum.Add(1), opts...)
	r.sessions.Set(s.ID(), s)
	r.total.Add(1)
	return s
}

// Close deactivates and unregisters a session.
func (r *Registry) Close(s *Session) {
	s.Deactivate()
	r.sessions.Delete(s.ID())
}

// Get returns a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	return r.sessions.Get(id)
}

// Count returns the number of connected sessions.
func (r *Registry) Count() int {
	return r.sessions.Count()
}

// Total returns how many sessions were ever opened.
func (r *Registry) Total() uint64 {
	return r.total.Load()
}

// List returns the connected sessions ordered by numeric id.
func (r *Registry) List() []*Session {
	out := make([]*Session, 0, r.sessions.Count())
	r.sessions.Range(func(_ string, s *Session) bool {
		out = append(out, s)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Num() < out[j].Num() })
	return out
}
