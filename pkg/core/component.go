package core

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/stoewer/go-strcase"

	"github.com/go-drift/reactbind/pkg/errors"
	"github.com/go-drift/reactbind/pkg/gate"
)

// Lifecycle is the mount state of a component instance.
type Lifecycle int

const (
	LifecycleUnmounted Lifecycle = iota
	LifecycleMounting
	LifecycleMounted
	LifecycleReceivingProps
	LifecycleUpdating
	LifecycleUnmounting
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleUnmounted:
		return "unmounted"
	case LifecycleMounting:
		return "mounting"
	case LifecycleMounted:
		return "mounted"
	case LifecycleReceivingProps:
		return "receiving_props"
	case LifecycleUpdating:
		return "updating"
	case LifecycleUnmounting:
		return "unmounting"
	default:
		return fmt.Sprintf("Lifecycle(%d)", int(l))
	}
}

// Component is one live instance of a Type. It owns a store and is the
// unit the registry subscribes and the scheduler commits to.
//
// Component is NOT thread-safe. It must only be used from the goroutine
// driving its runtime.
type Component struct {
	id        uuid.UUID
	seq       uint64
	typ       *Type
	runtime   *Runtime
	parent    *Component
	depth     int
	props     gate.Snapshot
	store     *Store
	lifecycle Lifecycle
	released  bool
	scoped    bool
	disposers []func()
}

func newComponent(rt *Runtime, t *Type, parent *Component, props gate.Snapshot, seq uint64) *Component {
	c := &Component{
		id:      uuid.New(),
		seq:     seq,
		typ:     t,
		runtime: rt,
		parent:  parent,
		props:   props,
	}
	if parent != nil {
		c.depth = parent.depth + 1
	}
	c.store = newStore(c, rt)
	return c
}

// ID returns the instance identifier.
func (c *Component) ID() string { return c.id.String() }

// Type returns the component type.
func (c *Component) Type() *Type { return c.typ }

// Parent returns the parent instance, or nil for a root.
func (c *Component) Parent() *Component { return c.parent }

// Depth is 0 for roots and parent depth + 1 otherwise.
func (c *Component) Depth() int { return c.depth }

// Store returns the instance store.
func (c *Component) Store() *Store { return c.store }

// Runtime returns the owning runtime.
func (c *Component) Runtime() *Runtime { return c.runtime }

// Lifecycle returns the current mount state.
func (c *Component) Lifecycle() Lifecycle { return c.lifecycle }

// IsMounted reports whether the first render has completed and the
// instance has not started unmounting.
func (c *Component) IsMounted() bool {
	switch c.lifecycle {
	case LifecycleMounted, LifecycleReceivingProps, LifecycleUpdating:
		return true
	}
	return false
}

// Released reports whether the instance has been unmounted and torn down.
func (c *Component) Released() bool { return c.released }

// Get reads a cell of this instance. See Store.Get.
func (c *Component) Get(name string) any { return c.store.Get(name) }

// Set writes a cell of this instance and returns the previous value.
func (c *Component) Set(name string, v any) any { return c.store.Set(name, v) }

// Declare creates the named cells with d as their shared default.
func (c *Component) Declare(names []string, d Default) []*Cell {
	return c.store.Declare(Declaration{Names: names, Shared: d})
}

// Props returns the props the host holds for the instance. Without a host
// these are the props it was created with.
func (c *Component) Props() gate.Snapshot {
	if h := c.runtime.host; h != nil {
		return h.Props(c)
	}
	return c.props
}

// InitialProps returns the props the instance was created with, merged
// over the type's default props.
func (c *Component) InitialProps() gate.Snapshot { return c.props.Clone() }

// State returns the state the host holds for the instance.
func (c *Component) State() gate.Snapshot {
	if h := c.runtime.host; h != nil {
		return h.State(c)
	}
	return nil
}

// OnDispose registers a cleanup function run when the instance unmounts.
// Returns an unregister function. Cleanups run once, in reverse order.
// Registering on a released instance runs cleanup immediately.
func (c *Component) OnDispose(cleanup func()) func() {
	if cleanup == nil {
		return func() {}
	}
	if c.released {
		cleanup()
		return func() {}
	}

	index := len(c.disposers)
	c.disposers = append(c.disposers, cleanup)
	return func() {
		if index < len(c.disposers) {
			c.disposers[index] = nil
		}
	}
}

func (c *Component) runDisposers() {
	for i := len(c.disposers) - 1; i >= 0; i-- {
		if fn := c.disposers[i]; fn != nil {
			func() {
				defer errors.Recover("component.dispose")
				fn()
			}()
		}
	}
	c.disposers = nil
}

// release tears the instance down. It is idempotent.
func (c *Component) release() {
	if c.released {
		return
	}
	c.runDisposers()
	c.store.Release()
	c.runtime.registry.Release(c)
	c.runtime.scheduler.Cancel(c)
	c.released = true
	c.lifecycle = LifecycleUnmounted
}

// EventProp returns the prop name Emit looks up for event:
// "submit" -> "onSubmit", "value_changed" -> "onValueChanged".
func EventProp(event string) string {
	return "on" + strcase.UpperCamelCase(event)
}

// Emit calls the handler prop for event with args and returns its result.
// A missing handler yields errors.ErrNoHandler; handler failures are
// returned as-is and are not contained.
func (c *Component) Emit(event string, args ...any) (any, error) {
	prop := EventProp(event)
	handler := c.Props()[prop]
	if handler == nil {
		return nil, fmt.Errorf("%s: emit %q: %w (prop %s)", c, event, errors.ErrNoHandler, prop)
	}

	switch fn := handler.(type) {
	case func(...any) any:
		return fn(args...), nil
	case func(...any) (any, error):
		return fn(args...)
	case func(...any) error:
		return nil, fn(args...)
	case func(...any):
		fn(args...)
		return nil, nil
	}
	return callHandler(handler, args)
}

func (c *Component) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%s", c.typ.name, c.id.String()[:8])
}

var errorType = reflect.TypeFor[error]()

// callHandler invokes an arbitrary func value, converting args to the
// parameter types. The last result, if it is an error, is returned as the
// error; the first other result is returned as the value.
func callHandler(handler any, args []any) (any, error) {
	fv := reflect.ValueOf(handler)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler is %T, not a func: %w", handler, errors.ErrNoHandler)
	}
	ft := fv.Type()
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!ft.IsVariadic() && len(args) > fixed) {
		return nil, fmt.Errorf("handler %s called with %d arguments", ft, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := ft.In(min(i, ft.NumIn()-1))
		if i >= fixed {
			pt = pt.Elem()
		}
		if a == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		av := reflect.ValueOf(a)
		switch {
		case av.Type().AssignableTo(pt):
		case av.Type().ConvertibleTo(pt):
			av = av.Convert(pt)
		default:
			return nil, fmt.Errorf("handler %s: argument %d is %T", ft, i, a)
		}
		in[i] = av
	}

	var (
		result any
		err    error
	)
	for i, out := range fv.Call(in) {
		if i == ft.NumOut()-1 && ft.Out(i) == errorType {
			if !out.IsNil() {
				err = out.Interface().(error)
			}
			continue
		}
		if result == nil {
			result = out.Interface()
		}
	}
	return result, err
}
