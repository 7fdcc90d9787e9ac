package core

import (
	"math"
	"slices"
	"sync"

	"github.com/go-drift/reactbind/internal/log"
	"github.com/go-drift/reactbind/pkg/gate"
)

// Scheduler batches state patches per component and delivers them to the
// host in depth order.
type Scheduler struct {
	dirty   []*Component
	patches map[*Component]gate.Snapshot
	clock   Clock
	commit  func(*Component, gate.Snapshot)
	last    float64
	mu      sync.Mutex

	// OnNeedsCommit is called when a component gets its first pending
	// patch, signalling the host that Flush should run soon.
	OnNeedsCommit func()
}

func newScheduler(clock Clock, commit func(*Component, gate.Snapshot)) *Scheduler {
	return &Scheduler{
		clock:   clock,
		commit:  commit,
		patches: make(map[*Component]gate.Snapshot),
	}
}

// Schedule merges key=value into c's pending patch and refreshes the
// sentinel stamp. Stamps are strictly increasing even when the clock does
// not advance.
func (s *Scheduler) Schedule(c *Component, key string, value any) {
	if c == nil || c.released {
		return
	}
	added := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		patch, ok := s.patches[c]
		if !ok {
			patch = make(gate.Snapshot, 2)
			s.patches[c] = patch
			s.dirty = append(s.dirty, c)
		}
		patch[key] = value
		patch[gate.ForceUpdateKey] = s.stamp()
		return !ok
	}()

	log.Debug(log.CatScheduler, "commit scheduled", "component", c, "key", key)
	if added && s.OnNeedsCommit != nil {
		s.OnNeedsCommit()
	}
}

// Pending returns a copy of c's pending patch, or nil.
func (s *Scheduler) Pending(c *Component) gate.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches[c].Clone()
}

// NeedsWork returns true if any patch is waiting to be flushed.
func (s *Scheduler) NeedsWork() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) > 0
}

// Flush hands every pending patch to the host, shallowest component first,
// and returns the number of commits delivered. Patches scheduled while
// flushing are delivered in a later round of the same call. Components
// released before their turn are skipped.
func (s *Scheduler) Flush() int {
	delivered := 0
	for {
		s.mu.Lock()
		if len(s.dirty) == 0 {
			s.mu.Unlock()
			return delivered
		}

		slices.SortStableFunc(s.dirty, func(a, b *Component) int {
			return a.depth - b.depth
		})

		dirty := s.dirty
		patches := s.patches
		s.dirty = nil
		s.patches = make(map[*Component]gate.Snapshot)
		s.mu.Unlock()

		for _, c := range dirty {
			if c.released {
				continue
			}
			s.commit(c, patches[c])
			delivered++
		}
	}
}

// Cancel drops c's pending patch.
func (s *Scheduler) Cancel(c *Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patches[c]; !ok {
		return
	}
	delete(s.patches, c)
	s.dirty = slices.DeleteFunc(s.dirty, func(d *Component) bool { return d == c })
}

// Reset drops every pending patch.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = nil
	clear(s.patches)
}

// stamp returns the next sentinel value in seconds. Callers hold s.mu.
func (s *Scheduler) stamp() float64 {
	now := float64(s.clock.Now().UnixNano()) / 1e9
	if now <= s.last {
		now = math.Nextafter(s.last, math.Inf(1))
	}
	s.last = now
	return now
}
