package core

import (
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/go-drift/reactbind/pkg/errors"
	"github.com/go-drift/reactbind/pkg/gate"
)

// Phase names a lifecycle step.
type Phase string

const (
	PhaseWillMount        Phase = "will_mount"
	PhaseRender           Phase = "render"
	PhaseReplay           Phase = "replay"
	PhaseDidMount         Phase = "did_mount"
	PhaseWillReceiveProps Phase = "will_receive_props"
	PhaseShouldUpdate     Phase = "should_update"
	PhaseWillUpdate       Phase = "will_update"
	PhaseDidUpdate        Phase = "did_update"
	PhaseWillUnmount      Phase = "will_unmount"
)

// Args is passed to every lifecycle callback. Props and State hold the
// incoming snapshots for "will" phases and the previous ones for "did"
// phases.
type Args struct {
	Props gate.Snapshot
	State gate.Snapshot
}

// Hook is a lifecycle callback.
type Hook func(c *Component, args Args) error

// Callback is a named Hook. The name appears in error reports.
type Callback struct {
	Name string
	Hook Hook
}

// Named returns a Callback with an explicit name.
func Named(name string, hook Hook) Callback {
	return Callback{Name: name, Hook: hook}
}

// RenderFunc produces a component's element.
type RenderFunc func(c *Component) (Element, error)

// NeedsUpdateFunc overrides the default update gate.
type NeedsUpdateFunc func(c *Component, t gate.Transition) bool

var errNoRender = errors.New("no render defined")

// Type is a component definition: a render function plus ordered callback
// chains per phase. Types are immutable once defined and shared by all of
// their instances.
type Type struct {
	name         string
	render       RenderFunc
	chains       map[Phase][]Callback
	declarations []Declaration
	needsUpdate  NeedsUpdateFunc
	defaultProps gate.Snapshot
}

// TypeOption configures a Type.
type TypeOption func(*Type)

// Define creates a component type.
func Define(name string, opts ...TypeOption) *Type {
	t := &Type{
		name:   name,
		chains: make(map[Phase][]Callback),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithRender sets the render function.
func WithRender(fn RenderFunc) TypeOption {
	return func(t *Type) { t.render = fn }
}

// WithCallbacks appends named callbacks to the chain for phase.
func WithCallbacks(phase Phase, cbs ...Callback) TypeOption {
	return func(t *Type) {
		for _, cb := range cbs {
			if cb.Hook == nil {
				continue
			}
			if cb.Name == "" {
				cb.Name = hookName(cb.Hook)
			}
			t.chains[phase] = append(t.chains[phase], cb)
		}
	}
}

func withHooks(phase Phase, hooks []Hook) TypeOption {
	cbs := make([]Callback, len(hooks))
	for i, h := range hooks {
		cbs[i] = Callback{Hook: h}
	}
	return WithCallbacks(phase, cbs...)
}

// BeforeMount appends callbacks run before the first render.
func BeforeMount(hooks ...Hook) TypeOption { return withHooks(PhaseWillMount, hooks) }

// AfterMount appends callbacks run after the first render.
func AfterMount(hooks ...Hook) TypeOption { return withHooks(PhaseDidMount, hooks) }

// BeforeReceiveProps appends callbacks run when new props arrive.
func BeforeReceiveProps(hooks ...Hook) TypeOption {
	return withHooks(PhaseWillReceiveProps, hooks)
}

// BeforeUpdate appends callbacks run before an accepted re-render.
func BeforeUpdate(hooks ...Hook) TypeOption { return withHooks(PhaseWillUpdate, hooks) }

// AfterUpdate appends callbacks run after a re-render.
func AfterUpdate(hooks ...Hook) TypeOption { return withHooks(PhaseDidUpdate, hooks) }

// BeforeUnmount appends callbacks run before the instance is released.
func BeforeUnmount(hooks ...Hook) TypeOption { return withHooks(PhaseWillUnmount, hooks) }

// DefineState declares cells on every new instance.
func DefineState(d Declaration) TypeOption {
	return func(t *Type) { t.declarations = append(t.declarations, d) }
}

// WithNeedsUpdate replaces the default update gate.
func WithNeedsUpdate(fn NeedsUpdateFunc) TypeOption {
	return func(t *Type) { t.needsUpdate = fn }
}

// WithDefaultProps sets props merged under the props given at creation.
func WithDefaultProps(p gate.Snapshot) TypeOption {
	return func(t *Type) { t.defaultProps = p.Clone() }
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Callbacks returns a copy of the chain registered for phase.
func (t *Type) Callbacks(phase Phase) []Callback {
	return slices.Clone(t.chains[phase])
}

// Declarations returns a copy of the type-level declarations.
func (t *Type) Declarations() []Declaration {
	return slices.Clone(t.declarations)
}

// DefaultProps returns a copy of the default props.
func (t *Type) DefaultProps() gate.Snapshot {
	return t.defaultProps.Clone()
}

func (t *Type) String() string { return t.name }

func (t *Type) renderFunc() RenderFunc {
	if t.render != nil {
		return t.render
	}
	return func(*Component) (Element, error) { return nil, errNoRender }
}

// hookName derives a readable name from a function value, e.g.
// "pkg.(*T).method" or "pkg.Func.func1".
func hookName(h Hook) string {
	fn := runtime.FuncForPC(reflect.ValueOf(h).Pointer())
	if fn == nil {
		return "anonymous"
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
