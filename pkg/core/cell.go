package core

import (
	"fmt"

	"github.com/go-drift/reactbind/internal/log"
	"github.com/go-drift/reactbind/pkg/gate"
)

// Cell is a single named, observable state value. Reads made while a
// component renders in a collecting frame subscribe that component; writes
// schedule a commit for every subscriber.
//
// Cells belong to a store. Cells created with Runtime.Watch have no owner.
type Cell struct {
	name       string
	owner      *Component
	runtime    *Runtime
	value      any
	generation uint64
	seq        uint64
	onChange   func(prev, next any)
}

// Name returns the cell name.
func (c *Cell) Name() string { return c.name }

// Owner returns the component whose store holds the cell, or nil.
func (c *Cell) Owner() *Component { return c.owner }

// Generation counts writes, including writes of an equal value.
func (c *Cell) Generation() uint64 { return c.generation }

// Read returns the current value and records a dependency when called from
// a collecting render.
func (c *Cell) Read() any {
	if c.runtime != nil {
		c.runtime.trackRead(c)
	}
	return c.value
}

// Peek returns the current value without recording a dependency.
func (c *Cell) Peek() any {
	return c.value
}

// Write stores v and returns the previous value. When v differs from the
// previous value, every subscriber is scheduled for a commit. Writing a
// cell whose owner has been released is a no-op.
func (c *Cell) Write(v any) any {
	prev := c.value
	if c.released() {
		log.Debug(log.CatState, "write after release ignored", "cell", c.key())
		return prev
	}

	c.value = v
	c.generation++
	c.warnRenderWrite()

	if gate.Equal(prev, v) {
		return prev
	}
	c.notify(prev, v)
	return prev
}

// Subscribers returns the components currently observing the cell.
func (c *Cell) Subscribers() []*Component {
	if c.runtime == nil {
		return nil
	}
	return c.runtime.registry.Subscribers(c)
}

func (c *Cell) String() string {
	return fmt.Sprintf("cell(%s)", c.key())
}

func (c *Cell) released() bool {
	return c.owner != nil && c.owner.store.released
}

// key is the cell name qualified by its owner's type.
func (c *Cell) key() string {
	if c.owner == nil {
		return c.name
	}
	return c.owner.typ.name + "." + c.name
}

// commitKey is the patch key a write publishes under for subscriber s.
// Subscribers reading their own cells see the bare name; foreign
// subscribers see the owner-qualified name.
func (c *Cell) commitKey(s *Component) string {
	if c.owner == s {
		return c.name
	}
	return c.key()
}

func (c *Cell) notify(prev, next any) {
	if c.runtime != nil {
		for _, s := range c.runtime.registry.Subscribers(c) {
			c.runtime.scheduler.Schedule(s, c.commitKey(s), next)
		}
	}
	if c.onChange != nil {
		c.onChange(prev, next)
	}
}

func (c *Cell) warnRenderWrite() {
	if c.runtime == nil {
		return
	}
	frame, ok := c.runtime.context.Current()
	if !ok || !frame.Collecting {
		return
	}
	log.WarnOnce(log.CatState, "render-write:"+c.key(), "state written during render",
		"cell", c.key(), "component", frame.Owner)
}
