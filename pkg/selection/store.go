// Package selection holds the tools and cloud providers a user has picked
// for comparison.
package selection

import (
	"sync"

	"github.com/stackprice/stackprice/pkg/catalog"
)

// Snapshot is an immutable copy of the store state handed to subscribers.
type Snapshot struct {
	Tools     []catalog.Tool
	Providers []catalog.CloudProvider
}

// Store keeps two ordered lists, each unique by id. A zero Store is not
// usable; construct one with New per session.
type Store struct {
	// notifyMu orders whole mutations, delivery included, so subscribers see
	// snapshots in the order the changes happened. mu guards the fields.
	notifyMu sync.Mutex

	mu        sync.Mutex
	tools     []catalog.Tool
	providers []catalog.CloudProvider

	nextSub     int
	subscribers map[int]func(Snapshot)
}

func New() *Store {
	return &Store{subscribers: make(map[int]func(Snapshot))}
}

// Subscribe registers fn to be called after every change. fn may read the
// store but must not mutate it. The returned function removes the
// subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// AddTool appends the tool unless one with the same id is already selected.
func (s *Store) AddTool(t catalog.Tool) {
	s.mutate(func() bool {
		for _, existing := range s.tools {
			if existing.ID == t.ID {
				return false
			}
		}
		s.tools = append(s.tools, t)
		return true
	})
}

func (s *Store) RemoveTool(id string) {
	s.mutate(func() bool {
		for i, existing := range s.tools {
			if existing.ID == id {
				s.tools = append(s.tools[:i:i], s.tools[i+1:]...)
				return true
			}
		}
		return false
	})
}

// SetTools replaces the selection. Duplicate ids are dropped, keeping the
// first occurrence, so the uniqueness invariant holds for bulk replace too.
func (s *Store) SetTools(tools []catalog.Tool) {
	s.mutate(func() bool {
		s.tools = dedupeTools(tools)
		return true
	})
}

func (s *Store) HasTool(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tools {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Tools returns a copy of the selected tools in selection order.
func (s *Store) Tools() []catalog.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Tool(nil), s.tools...)
}

func (s *Store) AddProvider(p catalog.CloudProvider) {
	s.mutate(func() bool {
		for _, existing := range s.providers {
			if existing.ID == p.ID {
				return false
			}
		}
		s.providers = append(s.providers, p)
		return true
	})
}

func (s *Store) RemoveProvider(id string) {
	s.mutate(func() bool {
		for i, existing := range s.providers {
			if existing.ID == id {
				s.providers = append(s.providers[:i:i], s.providers[i+1:]...)
				return true
			}
		}
		return false
	})
}

// SetProviders replaces the provider selection, dropping duplicate ids.
func (s *Store) SetProviders(providers []catalog.CloudProvider) {
	s.mutate(func() bool {
		s.providers = dedupeProviders(providers)
		return true
	})
}

func (s *Store) Providers() []catalog.CloudProvider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.CloudProvider(nil), s.providers...)
}

// Clear empties both lists.
func (s *Store) Clear() {
	s.mutate(func() bool {
		if len(s.tools) == 0 && len(s.providers) == 0 {
			return false
		}
		s.tools = nil
		s.providers = nil
		return true
	})
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Tools:     append([]catalog.Tool(nil), s.tools...),
		Providers: append([]catalog.CloudProvider(nil), s.providers...),
	}
}

// mutate applies change and, if it reports a change, notifies subscribers
// with mu released so they may read the store. notifyMu stays held until
// every subscriber has returned.
func (s *Store) mutate(change func() bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !change() {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func dedupeTools(in []catalog.Tool) []catalog.Tool {
	out := make([]catalog.Tool, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

func dedupeProviders(in []catalog.CloudProvider) []catalog.CloudProvider {
	out := make([]catalog.CloudProvider, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
