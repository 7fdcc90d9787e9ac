package core

import (
	"cmp"
	"maps"
	"slices"

	"github.com/go-drift/reactbind/internal/log"
)

type cellSet = map[*Cell]struct{}
type componentSet = map[*Component]struct{}

// Registry holds the bidirectional mapping between cells and the components
// that observed them in their latest collecting render.
//
// Edges are added as soon as a read happens and pruned by Reconcile once the
// render pass is complete. All accessors return copies, so callers may
// mutate the registry while iterating a result.
type Registry struct {
	subscribers  map[*Cell]componentSet
	dependencies map[*Component]cellSet
	pass         map[*Component]cellSet
}

func newRegistry() *Registry {
	return &Registry{
		subscribers:  make(map[*Cell]componentSet),
		dependencies: make(map[*Component]cellSet),
		pass:         make(map[*Component]cellSet),
	}
}

// BeginPass starts a new dependency collection for c. Reads recorded from
// now on form the set Reconcile keeps.
func (r *Registry) BeginPass(c *Component) {
	r.pass[c] = make(cellSet)
}

// Record adds the edge cell -> c.
func (r *Registry) Record(c *Component, cell *Cell) {
	if c == nil || cell == nil || c.released || cell.released() {
		return
	}
	if r.subscribers[cell] == nil {
		r.subscribers[cell] = make(componentSet)
	}
	r.subscribers[cell][c] = struct{}{}
	if r.dependencies[c] == nil {
		r.dependencies[c] = make(cellSet)
	}
	r.dependencies[c][cell] = struct{}{}
	if pass := r.pass[c]; pass != nil {
		pass[cell] = struct{}{}
	}
}

// Reconcile drops every edge of c that was not read during its latest pass
// and returns how many were removed. Without an open pass it does nothing.
func (r *Registry) Reconcile(c *Component) int {
	pass, ok := r.pass[c]
	if !ok {
		return 0
	}
	delete(r.pass, c)

	removed := 0
	for cell := range r.dependencies[c] {
		if _, keep := pass[cell]; keep {
			continue
		}
		r.unlink(c, cell)
		removed++
	}
	if removed > 0 {
		log.Debug(log.CatRegistry, "dependencies pruned", "component", c, "removed", removed)
	}
	return removed
}

// Subscribers returns the observers of cell ordered by creation.
func (r *Registry) Subscribers(cell *Cell) []*Component {
	out := slices.Collect(maps.Keys(r.subscribers[cell]))
	slices.SortFunc(out, func(a, b *Component) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// Dependencies returns the cells c observes ordered by creation.
func (r *Registry) Dependencies(c *Component) []*Cell {
	out := slices.Collect(maps.Keys(r.dependencies[c]))
	slices.SortFunc(out, func(a, b *Cell) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// Observes reports whether c currently observes cell.
func (r *Registry) Observes(c *Component, cell *Cell) bool {
	_, ok := r.subscribers[cell][c]
	return ok
}

// Release removes c as a subscriber everywhere.
func (r *Registry) Release(c *Component) {
	for cell := range r.dependencies[c] {
		r.unlink(c, cell)
	}
	delete(r.dependencies, c)
	delete(r.pass, c)
}

// Forget removes cell and all of its edges.
func (r *Registry) Forget(cell *Cell) {
	for c := range r.subscribers[cell] {
		r.unlink(c, cell)
	}
	delete(r.subscribers, cell)
}

// Reset removes every edge.
func (r *Registry) Reset() {
	clear(r.subscribers)
	clear(r.dependencies)
	clear(r.pass)
}

// Len returns the number of observed cells.
func (r *Registry) Len() int {
	return len(r.subscribers)
}

// Edges returns the total number of cell -> component edges.
func (r *Registry) Edges() int {
	n := 0
	for _, subs := range r.subscribers {
		n += len(subs)
	}
	return n
}

func (r *Registry) unlink(c *Component, cell *Cell) {
	if subs := r.subscribers[cell]; subs != nil {
		delete(subs, c)
		if len(subs) == 0 {
			delete(r.subscribers, cell)
		}
	}
	if deps := r.dependencies[c]; deps != nil {
		delete(deps, cell)
		if len(deps) == 0 {
			delete(r.dependencies, c)
		}
	}
}
