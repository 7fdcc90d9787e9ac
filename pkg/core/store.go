package core

import (
	"maps"
	"slices"

	"github.com/go-drift/reactbind/internal/log"
	"github.com/go-drift/reactbind/pkg/gate"
)

// Default supplies the initial value of a cell. It is either a literal or a
// factory evaluated lazily on first creation.
type Default struct {
	value   any
	factory func() any
}

// Literal returns a Default holding v.
func Literal(v any) Default {
	return Default{value: v}
}

// Factory returns a Default that calls fn to produce the value.
func Factory(fn func() any) Default {
	return Default{factory: fn}
}

// IsFactory reports whether d is lazily evaluated.
func (d Default) IsFactory() bool { return d.factory != nil }

func (d Default) resolve() any {
	if d.factory != nil {
		return d.factory()
	}
	return d.value
}

// Declaration describes a group of cells declared together.
type Declaration struct {
	// Names get Shared as their default unless listed in Each.
	Names []string
	// Shared is evaluated at most once per Declare call, and only if at
	// least one of Names does not exist yet.
	Shared Default
	// Each holds per-name defaults. Names appearing only here are declared
	// too.
	Each map[string]Default
}

// Store maps names to cells for one component instance.
type Store struct {
	owner    *Component
	runtime  *Runtime
	cells    map[string]*Cell
	order    []string
	released bool
}

func newStore(owner *Component, rt *Runtime) *Store {
	return &Store{
		owner:   owner,
		runtime: rt,
		cells:   make(map[string]*Cell),
	}
}

// Owner returns the component the store belongs to.
func (s *Store) Owner() *Component { return s.owner }

// Lookup returns the cell for name without creating it.
func (s *Store) Lookup(name string) (*Cell, bool) {
	cell, ok := s.cells[name]
	return cell, ok
}

// GetOrCreate returns the cell for name, creating it from d if absent. The
// default of an existing cell is ignored and never evaluated.
//
// A released store hands out detached cells: they hold the default but are
// not stored and ignore writes.
func (s *Store) GetOrCreate(name string, d Default) *Cell {
	if cell, ok := s.cells[name]; ok {
		return cell
	}
	cell := s.newCell(name, d.resolve())
	if s.released {
		return cell
	}
	s.insert(cell)
	return cell
}

// Declare creates every cell named by d that does not exist yet. Repeating
// a declaration is a no-op for names already present.
func (s *Store) Declare(d Declaration) []*Cell {
	names := slices.Clone(d.Names)
	for _, name := range slices.Sorted(maps.Keys(d.Each)) {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	var (
		shared   any
		resolved bool
		cells    = make([]*Cell, 0, len(names))
	)
	for _, name := range names {
		if cell, ok := s.cells[name]; ok {
			log.Debug(log.CatState, "declaration ignored", "cell", cell.key())
			cells = append(cells, cell)
			continue
		}
		if each, ok := d.Each[name]; ok {
			cells = append(cells, s.GetOrCreate(name, each))
			continue
		}
		if !resolved {
			shared = d.Shared.resolve()
			resolved = true
		}
		cells = append(cells, s.GetOrCreate(name, Literal(shared)))
	}
	return cells
}

// Get returns the value of name. Inside a collecting render the read is
// tracked, and an undeclared name is created with a nil value so the
// dependency survives a later declaration. Outside of one an undeclared
// name reads as nil without creating anything.
func (s *Store) Get(name string) any {
	cell, ok := s.cells[name]
	if !ok {
		if !s.collectingFor() {
			return nil
		}
		cell = s.GetOrCreate(name, Default{})
	}
	return cell.Read()
}

// Set writes v to name, declaring it if needed, and returns the previous
// value.
func (s *Store) Set(name string, v any) any {
	if s.released {
		if cell, ok := s.cells[name]; ok {
			return cell.value
		}
		return nil
	}
	return s.GetOrCreate(name, Default{}).Write(v)
}

// Names returns cell names in creation order.
func (s *Store) Names() []string {
	return slices.Clone(s.order)
}

// Len returns the number of cells.
func (s *Store) Len() int { return len(s.cells) }

// Snapshot returns the current value of every cell. Reads are not tracked.
func (s *Store) Snapshot() gate.Snapshot {
	out := make(gate.Snapshot, len(s.cells))
	for name, cell := range s.cells {
		out[name] = cell.value
	}
	return out
}

// Release detaches the store. Later writes are ignored and the cells are
// dropped from the observer registry.
func (s *Store) Release() {
	if s.released {
		return
	}
	s.released = true
	if s.runtime != nil {
		for _, name := range s.order {
			s.runtime.registry.Forget(s.cells[name])
		}
	}
}

// Released reports whether Release has been called.
func (s *Store) Released() bool { return s.released }

func (s *Store) newCell(name string, v any) *Cell {
	cell := &Cell{name: name, owner: s.owner, runtime: s.runtime, value: v}
	if s.runtime != nil {
		s.runtime.seq++
		cell.seq = s.runtime.seq
	}
	return cell
}

func (s *Store) insert(cell *Cell) {
	s.cells[cell.name] = cell
	s.order = append(s.order, cell.name)
	log.Debug(log.CatState, "cell created", "cell", cell.key())
}

func (s *Store) collectingFor() bool {
	if s.runtime == nil {
		return false
	}
	frame, ok := s.runtime.context.Current()
	return ok && frame.Collecting
}
