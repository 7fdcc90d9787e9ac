package core

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/go-drift/reactbind/pkg/gate"
)

// Runtime owns every piece of engine state for one host binding: the
// rendering context stack, the observer registry, the commit scheduler and
// the lifecycle dispatcher. Nothing is process-global, so independent
// runtimes can coexist in one process.
//
// A Runtime is single-threaded. All calls must come from the goroutine
// driving the host.
type Runtime struct {
	ctx        context.Context
	host       Host
	clock      Clock
	tracer     trace.Tracer
	extensions []Extension

	context    *RenderingContext
	registry   *Registry
	scheduler  *Scheduler
	dispatcher *Dispatcher

	seq uint64
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithHost binds the runtime to a host.
func WithHost(h Host) Option {
	return func(r *Runtime) { r.host = h }
}

// WithClock overrides the clock used for sentinel stamps.
func WithClock(c Clock) Option {
	return func(r *Runtime) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithTracer sets the tracer used for per-phase spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runtime) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithContext sets the parent context of every phase span.
func WithContext(ctx context.Context) Option {
	return func(r *Runtime) {
		if ctx != nil {
			r.ctx = ctx
		}
	}
}

// WithExtension registers an extension.
func WithExtension(ext Extension) Option {
	return func(r *Runtime) {
		if ext != nil {
			r.extensions = append(r.extensions, ext)
		}
	}
}

// NewRuntime creates a runtime. Without WithHost, commits are discarded and
// components report the props they were created with.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		ctx:    context.Background(),
		clock:  systemClock{},
		tracer: noop.NewTracerProvider().Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	slices.SortStableFunc(r.extensions, func(a, b Extension) int {
		return a.Order() - b.Order()
	})

	r.context = &RenderingContext{}
	r.registry = newRegistry()
	r.scheduler = newScheduler(r.clock, r.commit)
	r.dispatcher = &Dispatcher{runtime: r}
	return r
}

// SetHost rebinds the runtime. Hosts that need the runtime during their
// own construction create it first and attach themselves here.
func (r *Runtime) SetHost(h Host) {
	r.host = h
}

// Host returns the bound host, or nil.
func (r *Runtime) Host() Host { return r.host }

// Clock returns the runtime clock.
func (r *Runtime) Clock() Clock { return r.clock }

// Tracer returns the tracer used for phase spans.
func (r *Runtime) Tracer() trace.Tracer { return r.tracer }

// Context returns the rendering context stack.
func (r *Runtime) Context() *RenderingContext { return r.context }

// Registry returns the observer registry.
func (r *Runtime) Registry() *Registry { return r.registry }

// Scheduler returns the commit scheduler.
func (r *Runtime) Scheduler() *Scheduler { return r.scheduler }

// Dispatcher returns the lifecycle dispatcher.
func (r *Runtime) Dispatcher() *Dispatcher { return r.dispatcher }

// AddExtension registers ext after construction.
func (r *Runtime) AddExtension(ext Extension) {
	if ext == nil {
		return
	}
	r.extensions = append(r.extensions, ext)
	slices.SortStableFunc(r.extensions, func(a, b Extension) int {
		return a.Order() - b.Order()
	})
}

// Extensions returns the registered extensions in execution order.
func (r *Runtime) Extensions() []Extension {
	return slices.Clone(r.extensions)
}

// NewComponent creates an unmounted instance of t. Declarations attached to
// t are applied to the fresh store before the instance is returned.
func (r *Runtime) NewComponent(t *Type, parent *Component, props gate.Snapshot) *Component {
	r.seq++
	c := newComponent(r, t, parent, gate.Merge(t.defaultProps, props), r.seq)
	for _, decl := range t.declarations {
		c.store.Declare(decl)
	}
	return c
}

// Flush delivers every pending patch to the host. See Scheduler.Flush.
func (r *Runtime) Flush() int {
	return r.scheduler.Flush()
}

// Reset drops all observer edges, pending commits and rendering frames.
// Components stay usable; their stores are untouched.
func (r *Runtime) Reset() {
	r.registry.Reset()
	r.scheduler.Reset()
	r.context.reset()
}

func (r *Runtime) commit(c *Component, patch gate.Snapshot) {
	for _, ext := range r.extensions {
		ext.OnCommit(c, patch)
	}
	if r.host != nil {
		r.host.Commit(c, patch)
	}
}

// trackRead attributes a read of cell to the component rendering in the
// innermost frame, if that frame collects dependencies.
func (r *Runtime) trackRead(cell *Cell) {
	frame, ok := r.context.Current()
	if !ok || !frame.Collecting || frame.Owner == nil {
		return
	}
	r.registry.Record(frame.Owner, cell)
}
