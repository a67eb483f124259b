// Package pubsub implements channel and pattern subscriptions with
// fan-out publishing.
package pubsub

import (
	"sort"
	"sync"

	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
	"github.com/yndnr/sidermem-go/pkg/glob"
	"github.com/yndnr/sidermem-go/pkg/resp"
)

// Subscriber receives published messages as encoded RESP frames.
type Subscriber interface {
	ID() string
	Deliver(frame []byte) error
}

type subSet map[string]Subscriber

type nameSet map[string]struct{}

// Registry holds the subscription tables.
type Registry struct {
	mu sync.RWMutex

	channels    map[string]subSet
	patterns    map[string]subSet
	subChannels map[string]nameSet
	subPatterns map[string]nameSet
	matchers    map[string]*glob.Matcher

	logger logger.Logger
}

// New creates an empty registry.
func New(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		channels:    make(map[string]subSet),
		patterns:    make(map[string]subSet),
		subChannels: make(map[string]nameSet),
		subPatterns: make(map[string]nameSet),
		matchers:    make(map[string]*glob.Matcher),
		logger:      log,
	}
}

// Ack is one subscription change: the channel or pattern and the number
// of subscriptions the subscriber holds after it.
type Ack struct {
	Name  string
	Count int
}

// Subscribe adds channels for sub.
func (r *Registry) Subscribe(sub Subscriber, channels ...string) []Ack {
	r.mu.Lock()
	defer r.mu.Unlock()

	acks := make([]Ack, 0, len(channels))
	for _, ch := range channels {
		add(r.channels, r.subChannels, ch, sub)
		acks = append(acks, Ack{Name: ch, Count: r.countLocked(sub.ID())})
	}
	return acks
}

// Unsubscribe removes channels for sub. With no channels every channel
// subscription of sub is removed.
func (r *Registry) Unsubscribe(sub Subscriber, channels ...string) []Ack {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(channels) == 0 {
		channels = sortedNames(r.subChannels[sub.ID()])
	}
	acks := make([]Ack, 0, len(channels))
	for _, ch := range channels {
		remove(r.channels, r.subChannels, ch, sub.ID())
		acks = append(acks, Ack{Name: ch, Count: r.countLocked(sub.ID())})
	}
	return acks
}

// PSubscribe adds patterns for sub.
func (r *Registry) PSubscribe(sub Subscriber, patterns ...string) []Ack {
	r.mu.Lock()
	defer r.mu.Unlock()

	acks := make([]Ack, 0, len(patterns))
	for _, p := range patterns {
		if _, ok := r.matchers[p]; !ok {
			r.matchers[p] = glob.Compile(p)
		}
		add(r.patterns, r.subPatterns, p, sub)
		acks = append(acks, Ack{Name: p, Count: r.countLocked(sub.ID())})
	}
	return acks
}

// PUnsubscribe removes patterns for sub. With no patterns every pattern
// subscription of sub is removed.
func (r *Registry) PUnsubscribe(sub Subscriber, patterns ...string) []Ack {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(patterns) == 0 {
		patterns = sortedNames(r.subPatterns[sub.ID()])
	}
	acks := make([]Ack, 0, len(patterns))
	for _, p := range patterns {
		remove(r.patterns, r.subPatterns, p, sub.ID())
		if _, ok := r.patterns[p]; !ok {
			delete(r.matchers, p)
		}
		acks = append(acks, Ack{Name: p, Count: r.countLocked(sub.ID())})
	}
	return acks
}

// Count returns the number of channels and patterns sub is subscribed to.
func (r *Registry) Count(sub Subscriber) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(sub.ID())
}

func (r *Registry) countLocked(id string) int {
	return len(r.subChannels[id]) + len(r.subPatterns[id])
}

// RemoveSubscriber drops every subscription of sub. It is called when the
// subscriber's connection closes or a delivery to it fails.
func (r *Registry) RemoveSubscriber(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(sub.ID())
}

func (r *Registry) removeLocked(id string) {
	for ch := range r.subChannels[id] {
		remove(r.channels, r.subChannels, ch, id)
	}
	for p := range r.subPatterns[id] {
		remove(r.patterns, r.subPatterns, p, id)
		if _, ok := r.patterns[p]; !ok {
			delete(r.matchers, p)
		}
	}
}

// Publish delivers message to every subscriber of channel and of every
// pattern matching it. It returns the number of deliveries.
func (r *Registry) Publish(channel, message string) int {
	r.mu.RLock()

	var (
		delivered int
		failed    []string
	)
	if subs, ok := r.channels[channel]; ok {
		frame := resp.MustEncode(resp.BulkStrings([]string{"message", channel, message}))
		for id, sub := range subs {
			if err := sub.Deliver(frame); err != nil {
				r.logger.Warn("pubsub delivery failed", "subscriber", id, "channel", channel, "error", err)
				failed = append(failed, id)
				continue
			}
			delivered++
		}
	}
	for pattern, subs := range r.patterns {
		m := r.matchers[pattern]
		if m == nil || !m.Match(channel) {
			continue
		}
		frame := resp.MustEncode(resp.BulkStrings([]string{"pmessage", pattern, channel, message}))
		for id, sub := range subs {
			if err := sub.Deliver(frame); err != nil {
				r.logger.Warn("pubsub delivery failed", "subscriber", id, "pattern", pattern, "error", err)
				failed = append(failed, id)
				continue
			}
			delivered++
		}
	}
	r.mu.RUnlock()

	if len(failed) > 0 {
		r.mu.Lock()
		for _, id := range failed {
			r.removeLocked(id)
		}
		r.mu.Unlock()
	}
	return delivered
}

// Channels returns the active channels, sorted. A non-empty pattern
// filters them.
func (r *Registry) Channels(pattern string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var m *glob.Matcher
	if pattern != "" {
		m = glob.Compile(pattern)
	}
	out := make([]string, 0, len(r.channels))
	for ch := range r.channels {
		if m == nil || m.Match(ch) {
			out = append(out, ch)
		}
	}
	sort.Strings(out)
	return out
}

// NumSub returns the subscriber count of each channel.
func (r *Registry) NumSub(channels ...string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int, len(channels))
	for i, ch := range channels {
		out[i] = len(r.channels[ch])
	}
	return out
}

// NumPat returns the number of distinct subscribed patterns.
func (r *Registry) NumPat() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patterns)
}

func add(byName map[string]subSet, bySub map[string]nameSet, name string, sub Subscriber) {
	subs, ok := byName[name]
	if !ok {
		subs = make(subSet)
		byName[name] = subs
	}
	subs[sub.ID()] = sub

	names, ok := bySub[sub.ID()]
	if !ok {
		names = make(nameSet)
		bySub[sub.ID()] = names
	}
	names[name] = struct{}{}
}

func remove(byName map[string]subSet, bySub map[string]nameSet, name, id string) {
	if subs, ok := byName[name]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(byName, name)
		}
	}
	if names, ok := bySub[id]; ok {
		delete(names, name)
		if len(names) == 0 {
			delete(bySub, id)
		}
	}
}

func sortedNames(names nameSet) []string {
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
