// Package live pushes progress updates to connected clients of a household.
package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/taiganautcapital/thekidvault/internal/progress"
)

const bufferSize = 8

// Update is the frame sent to subscribers whenever a learner's stars change.
type Update struct {
	Household string            `json:"household"`
	Profile   string            `json:"profile"`
	Stars     []string          `json:"new_stars,omitempty"`
	Snapshot  progress.Snapshot `json:"snapshot"`
	At        time.Time         `json:"at"`
}

// Subscription receives updates for one household until Close is called.
type Subscription struct {
	C <-chan Update

	hub       *Hub
	household string
	ch        chan Update
	once      sync.Once
}

// Close unregisters the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub fans updates out to per-household subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a subscriber for household.
func (h *Hub) Subscribe(household string) *Subscription {
	ch := make(chan Update, bufferSize)
	s := &Subscription{C: ch, hub: h, household: household, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return s
	}
	set, ok := h.subs[household]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[household] = set
	}
	set[s] = struct{}{}
	return s
}

// Publish delivers u to every subscriber of its household without blocking.
// Subscribers whose buffer is full miss the frame.
func (h *Hub) Publish(u Update) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subs[u.Household] {
		select {
		case s.ch <- u:
			delivered++
		default:
			slog.Debug("live update dropped", "household", u.Household)
		}
	}
	return delivered
}

// Subscribers returns the number of subscribers for household.
func (h *Hub) Subscribers(household string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[household])
}

// Close closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for household, set := range h.subs {
		for s := range set {
			close(s.ch)
		}
		delete(h.subs, household)
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[s.household]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.ch)
	if len(set) == 0 {
		delete(h.subs, s.household)
	}
}
