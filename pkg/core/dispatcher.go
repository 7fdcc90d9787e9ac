package core

import (
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-drift/reactbind/internal/log"
	"github.com/go-drift/reactbind/pkg/errors"
	"github.com/go-drift/reactbind/pkg/gate"
)

// TracerName is the instrumentation name of the default tracer.
const TracerName = "github.com/go-drift/reactbind/pkg/core"

// Span attribute keys.
const (
	AttrComponentID   = "component.id"
	AttrComponentType = "component.type"
	AttrPhase         = "lifecycle.phase"
	AttrCallback      = "lifecycle.callback"
	AttrUpdate        = "gate.update"
)

// Result is the outcome of a dispatched phase. A failed phase carries the
// PhaseError that was reported for it.
type Result struct {
	Phase Phase
	Err   *errors.PhaseError
}

// OK reports whether the phase completed without failure.
func (r Result) OK() bool { return r.Err == nil }

// Error returns the failure as an error, or nil.
func (r Result) Error() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

// Dispatcher runs lifecycle phases for the host. Every entry point binds
// the component in the rendering context, runs the phase's callback chain
// and contains failures: the first failing callback stops its chain, the
// failure is reported once through errors.Report and returned in the
// Result. Entry points never panic and never return errors to the host.
type Dispatcher struct {
	runtime *Runtime
}

var (
	fromUnmounted = []Lifecycle{LifecycleUnmounted}
	fromMounting  = []Lifecycle{LifecycleMounting}
	fromUpdating  = []Lifecycle{LifecycleUpdating}
	fromIdle      = []Lifecycle{LifecycleMounted, LifecycleReceivingProps}
	fromRenderable = []Lifecycle{
		LifecycleMounting, LifecycleMounted, LifecycleReceivingProps, LifecycleUpdating,
	}
	fromLive = []Lifecycle{
		LifecycleUnmounted, LifecycleMounting, LifecycleMounted,
		LifecycleReceivingProps, LifecycleUpdating,
	}
)

// WillMount runs the before-mount chain.
func (d *Dispatcher) WillMount(c *Component) Result {
	return d.run(c, PhaseWillMount, fromUnmounted, LifecycleMounting, Args{Props: c.Props(), State: c.State()}, nil)
}

// Render runs the render function in a collecting frame. Cells read during
// the render become the component's dependencies once the next after-phase
// reconciles them. A failed render yields a nil element.
func (d *Dispatcher) Render(c *Component) (Element, Result) {
	return d.render(c, PhaseRender, true)
}

// Replay re-runs the render function without collecting dependencies.
func (d *Dispatcher) Replay(c *Component) (Element, Result) {
	return d.render(c, PhaseReplay, false)
}

// DidMount runs the after-mount chain and prunes stale dependencies.
func (d *Dispatcher) DidMount(c *Component) Result {
	return d.run(c, PhaseDidMount, fromMounting, LifecycleMounted, Args{Props: c.Props(), State: c.State()}, d.reconcile)
}

// WillReceiveProps runs the receive-props chain with the incoming props.
func (d *Dispatcher) WillReceiveProps(c *Component, nextProps gate.Snapshot) Result {
	return d.run(c, PhaseWillReceiveProps, fromIdle, LifecycleReceivingProps, Args{Props: nextProps, State: c.State()}, nil)
}

// ShouldComponentUpdate decides whether the pending transition re-renders.
// A type-level NeedsUpdateFunc replaces the default gate and runs without
// containment.
func (d *Dispatcher) ShouldComponentUpdate(c *Component, nextProps, nextState gate.Snapshot) bool {
	t := gate.Transition{
		PrevProps: c.Props(),
		NextProps: nextProps,
		PrevState: c.State(),
		NextState: nextState,
	}
	var update bool
	if c.typ.needsUpdate != nil {
		update = c.typ.needsUpdate(c, t)
	} else {
		update = t.ShouldUpdate()
	}

	_, span := d.runtime.tracer.Start(d.runtime.ctx, spanName(PhaseShouldUpdate),
		trace.WithAttributes(append(spanAttrs(c, PhaseShouldUpdate), attribute.Bool(AttrUpdate, update))...))
	span.End()

	log.Debug(log.CatGate, "update decided", "component", c, "update", update)
	return update
}

// WillUpdate runs the before-update chain with the incoming snapshots.
func (d *Dispatcher) WillUpdate(c *Component, nextProps, nextState gate.Snapshot) Result {
	return d.run(c, PhaseWillUpdate, fromIdle, LifecycleUpdating, Args{Props: nextProps, State: nextState}, nil)
}

// DidUpdate runs the after-update chain with the previous snapshots and
// prunes stale dependencies.
func (d *Dispatcher) DidUpdate(c *Component, prevProps, prevState gate.Snapshot) Result {
	return d.run(c, PhaseDidUpdate, fromUpdating, LifecycleMounted, Args{Props: prevProps, State: prevState}, d.reconcile)
}

// WillUnmount runs the before-unmount chain and then releases the instance:
// disposers, store, observer edges and pending commits. Release happens
// even when the chain fails, but not when the instance is inside another
// of its own phases.
func (d *Dispatcher) WillUnmount(c *Component) Result {
	if c.released || c.lifecycle == LifecycleUnmounting {
		return d.reject(c, PhaseWillUnmount)
	}
	result, entered := d.enter(c, PhaseWillUnmount, fromLive, LifecycleUnmounting, Args{Props: c.Props(), State: c.State()}, nil)
	if entered {
		c.release()
	}
	return result
}

func (d *Dispatcher) run(c *Component, phase Phase, from []Lifecycle, to Lifecycle, args Args, after func(*Component)) Result {
	result, _ := d.enter(c, phase, from, to, args, after)
	return result
}

// enter runs the chain for phase and reports whether the scope was
// entered. A re-entrant call leaves lifecycle and dependencies untouched.
func (d *Dispatcher) enter(c *Component, phase Phase, from []Lifecycle, to Lifecycle, args Args, after func(*Component)) (Result, bool) {
	if c.released || !slices.Contains(from, c.lifecycle) {
		return d.reject(c, phase), false
	}

	entered := false
	span := d.begin(c, phase)
	_, err := RunScoped(d.runtime.context, c, false, func() (struct{}, error) {
		entered = true
		c.lifecycle = to
		for _, cb := range c.typ.chains[phase] {
			if perr := d.invoke(c, phase, cb, args); perr != nil {
				return struct{}{}, perr
			}
		}
		return struct{}{}, nil
	})
	if entered && after != nil {
		after(c)
	}
	return d.end(c, phase, span, d.contain(c, phase, err)), entered
}

func (d *Dispatcher) render(c *Component, phase Phase, collecting bool) (Element, Result) {
	if c.released || !slices.Contains(fromRenderable, c.lifecycle) {
		return nil, d.reject(c, phase)
	}

	span := d.begin(c, phase)
	render := c.typ.renderFunc()
	el, err := RunScoped(d.runtime.context, c, collecting, func() (Element, error) {
		if collecting {
			d.runtime.registry.BeginPass(c)
		}
		return d.safeRender(c, phase, render)
	})
	perr := d.contain(c, phase, err)
	if perr != nil {
		el = nil
	}
	return el, d.end(c, phase, span, perr)
}

// safeRender executes a render function with panic recovery.
func (d *Dispatcher) safeRender(c *Component, phase Phase, render RenderFunc) (el Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			el = nil
			err = d.phaseError(c, phase, "", errors.KindPanic, r, nil)
		}
	}()
	el, err = render(c)
	if err != nil {
		return nil, d.phaseError(c, phase, "", errors.KindRender, nil, err)
	}
	return el, nil
}

// invoke runs one callback with panic recovery.
func (d *Dispatcher) invoke(c *Component, phase Phase, cb Callback, args Args) (perr *errors.PhaseError) {
	defer func() {
		if r := recover(); r != nil {
			perr = d.phaseError(c, phase, cb.Name, errors.KindPanic, r, nil)
		}
	}()
	if err := cb.Hook(c, args); err != nil {
		return d.phaseError(c, phase, cb.Name, errors.KindLifecycle, nil, err)
	}
	return nil
}

// contain turns whatever a scoped body returned into a PhaseError.
func (d *Dispatcher) contain(c *Component, phase Phase, err error) *errors.PhaseError {
	if err == nil {
		return nil
	}
	var perr *errors.PhaseError
	if errors.As(err, &perr) {
		return perr
	}
	kind := errors.KindUnknown
	if errors.Is(err, errors.ErrReentrantRender) {
		kind = errors.KindReentrant
	}
	return d.phaseError(c, phase, "", kind, nil, err)
}

func (d *Dispatcher) reject(c *Component, phase Phase) Result {
	state := c.lifecycle.String()
	if c.released {
		state = "released"
	}
	err := fmt.Errorf("%w: %s while %s", errors.ErrInvalidTransition, phase, state)
	span := d.begin(c, phase)
	return d.end(c, phase, span, d.phaseError(c, phase, "", errors.KindTransition, nil, err))
}

func (d *Dispatcher) phaseError(c *Component, phase Phase, callback string, kind errors.ErrorKind, recovered any, err error) *errors.PhaseError {
	perr := &errors.PhaseError{
		Phase:     string(phase),
		Component: c.ID(),
		Type:      c.typ.name,
		Callback:  callback,
		Kind:      kind,
		Recovered: recovered,
		Err:       err,
		Timestamp: time.Now(),
	}
	if kind == errors.KindPanic || DebugMode {
		perr.StackTrace = errors.CaptureStack()
	}
	return perr
}

func (d *Dispatcher) reconcile(c *Component) {
	d.runtime.registry.Reconcile(c)
}

func (d *Dispatcher) begin(c *Component, phase Phase) trace.Span {
	for _, ext := range d.runtime.extensions {
		ext.OnPhaseStart(c, phase)
	}
	_, span := d.runtime.tracer.Start(d.runtime.ctx, spanName(phase),
		trace.WithAttributes(spanAttrs(c, phase)...))
	log.Debug(log.CatLifecycle, "phase start", "phase", phase, "component", c)
	return span
}

// end reports perr exactly once and closes the phase.
func (d *Dispatcher) end(c *Component, phase Phase, span trace.Span, perr *errors.PhaseError) Result {
	result := Result{Phase: phase, Err: perr}
	if perr != nil {
		errors.Report(perr)
		for _, ext := range d.runtime.extensions {
			ext.OnError(perr)
		}
		if perr.Callback != "" {
			span.SetAttributes(attribute.String(AttrCallback, perr.Callback))
		}
		span.RecordError(perr)
		span.SetStatus(codes.Error, perr.Kind.String())
	}
	span.End()
	for _, ext := range d.runtime.extensions {
		ext.OnPhaseEnd(c, phase, result)
	}
	log.Debug(log.CatLifecycle, "phase end", "phase", phase, "component", c, "ok", result.OK())
	return result
}

func spanName(phase Phase) string {
	return "lifecycle." + string(phase)
}

func spanAttrs(c *Component, phase Phase) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrComponentID, c.ID()),
		attribute.String(AttrComponentType, c.typ.name),
		attribute.String(AttrPhase, string(phase)),
	}
}
