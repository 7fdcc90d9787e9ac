package core

import "fmt"

// Value reads name from c's store and asserts it to T. A missing cell or a
// value of another type yields the zero T. The read is tracked like Get.
//
// Example:
//
//	render := func(c *core.Component) (core.Element, error) {
//	    return fmt.Sprintf("count: %d", core.Value[int](c, "count")), nil
//	}
func Value[T any](c *Component, name string) T {
	v, _ := c.Get(name).(T)
	return v
}

// Update applies fn to the current value of name and writes the result.
// It returns the previous value. The read is not tracked.
func Update[T any](c *Component, name string, fn func(T) T) T {
	var prev T
	if cell, ok := c.store.Lookup(name); ok {
		prev, _ = cell.Peek().(T)
	}
	c.Set(name, fn(prev))
	return prev
}

// UseDisposable creates a resource and registers its cleanup on c. The
// resource is closed when the component unmounts.
//
// Example:
//
//	core.BeforeMount(func(c *core.Component, _ core.Args) error {
//	    ticker := core.UseDisposable(c, func() *time.Ticker {
//	        return time.NewTicker(time.Second)
//	    }, (*time.Ticker).Stop)
//	    ...
//	})
func UseDisposable[R any](c *Component, create func() R, dispose func(R)) R {
	res := create()
	if dispose != nil {
		c.OnDispose(func() { dispose(res) })
	}
	return res
}

// Watch creates a cell that belongs to no store. Components reading it in
// a collecting render observe it like any store cell; onChange, if set, is
// called after subscribers are scheduled for every write that changes the
// value.
func (r *Runtime) Watch(name string, value any, onChange func(prev, next any)) *Cell {
	r.seq++
	if name == "" {
		name = fmt.Sprintf("watch#%d", r.seq)
	}
	return &Cell{
		name:     name,
		runtime:  r,
		value:    value,
		seq:      r.seq,
		onChange: onChange,
	}
}
