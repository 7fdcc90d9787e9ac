package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/go-drift/reactbind/pkg/errors"
	"github.com/go-drift/reactbind/pkg/gate"
)

func recordHook(log *[]string, name string) Hook {
	return func(*Component, Args) error {
		*log = append(*log, name)
		return nil
	}
}

func TestDispatcher_MountSequence(t *testing.T) {
	rt, _, rec := newTestRuntime(t)
	var calls []string
	typ := Define("Widget",
		BeforeMount(recordHook(&calls, "will1"), recordHook(&calls, "will2")),
		WithRender(func(*Component) (Element, error) {
			calls = append(calls, "render")
			return "ok", nil
		}),
		AfterMount(recordHook(&calls, "did")),
	)
	c := rt.NewComponent(typ, nil, nil)
	d := rt.Dispatcher()

	require.Equal(t, LifecycleUnmounted, c.Lifecycle())
	require.True(t, d.WillMount(c).OK())
	require.Equal(t, LifecycleMounting, c.Lifecycle())
	require.False(t, c.IsMounted())

	el, res := d.Render(c)
	require.True(t, res.OK())
	require.Equal(t, "ok", el)

	require.True(t, d.DidMount(c).OK())
	require.True(t, c.IsMounted())
	require.Equal(t, []string{"will1", "will2", "render", "did"}, calls)

	calls = nil
	again := rt.NewComponent(typ, nil, nil)
	require.True(t, d.WillMount(again).OK())
	_, res = d.Render(again)
	require.True(t, res.OK())
	require.True(t, d.DidMount(again).OK())
	require.Equal(t, []string{"will1", "will2", "render", "did"}, calls, "chain order holds for every instance")
	require.Empty(t, rec.PhaseErrors())
}

func TestDispatcher_ChainStopsAtFirstFailure(t *testing.T) {
	rt, _, rec := newTestRuntime(t)
	var calls []string
	typ := Define("Widget",
		WithCallbacks(PhaseWillMount,
			Named("first", recordHook(&calls, "first")),
			Named("second", func(*Component, Args) error { return fmt.Errorf("nope") }),
			Named("third", recordHook(&calls, "third")),
		),
		WithRender(func(*Component) (Element, error) { return "still renders", nil }),
	)
	c := rt.NewComponent(typ, nil, nil)
	d := rt.Dispatcher()

	res := d.WillMount(c)
	require.False(t, res.OK())
	require.Equal(t, PhaseWillMount, res.Phase)
	require.Equal(t, "second", res.Err.Callback)
	require.Equal(t, errors.KindLifecycle, res.Err.Kind)
	require.EqualError(t, res.Err.Err, "nope")
	require.Equal(t, []string{"first"}, calls)

	reported := rec.PhaseErrors()
	require.Len(t, reported, 1, "a failure is reported exactly once")
	require.Same(t, res.Err, reported[0])

	// The host carries on with the next phase.
	el, renderRes := d.Render(c)
	require.True(t, renderRes.OK())
	require.Equal(t, "still renders", el)
}

func TestDispatcher_PanicIsContained(t *testing.T) {
	rt, _, rec := newTestRuntime(t)
	typ := Define("Widget",
		AfterMount(func(*Component, Args) error { panic("kaboom") }),
		WithRender(func(*Component) (Element, error) { return nil, nil }),
	)
	c := rt.NewComponent(typ, nil, nil)
	d := rt.Dispatcher()
	d.WillMount(c)
	d.Render(c)

	var res Result
	require.NotPanics(t, func() { res = d.DidMount(c) })
	require.Equal(t, errors.KindPanic, res.Err.Kind)
	require.Equal(t, "kaboom", res.Err.Recovered)
	require.NotEmpty(t, res.Err.StackTrace)
	require.True(t, c.IsMounted(), "phase still advances the lifecycle")
	require.Len(t, rec.PhaseErrors(), 1)
	require.Zero(t, rt.Context().Depth())
}

func TestDispatcher_RenderFailureYieldsNil(t *testing.T) {
	tests := []struct {
		name   string
		render RenderFunc
		kind   errors.ErrorKind
	}{
		{
			name:   "error",
			render: func(*Component) (Element, error) { return "partial", fmt.Errorf("bad input") },
			kind:   errors.KindRender,
		},
		{
			name:   "panic",
			render: func(*Component) (Element, error) { panic("render blew up") },
			kind:   errors.KindPanic,
		},
		{
			name: "missing",
			kind: errors.KindRender,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, _, rec := newTestRuntime(t)
			c := rt.NewComponent(Define("Widget", WithRender(tt.render)), nil, nil)
			d := rt.Dispatcher()
			d.WillMount(c)

			el, res := d.Render(c)

			require.Nil(t, el)
			require.Equal(t, tt.kind, res.Err.Kind)
			require.Len(t, rec.PhaseErrors(), 1)
			require.Zero(t, rt.Context().Depth())
		})
	}
}

func TestDispatcher_ReentrantRender(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	var inner Result
	typ := Define("Recursive", WithRender(func(c *Component) (Element, error) {
		_, inner = c.Runtime().Dispatcher().Render(c)
		return "outer", nil
	}))
	c := rt.NewComponent(typ, nil, nil)
	d := rt.Dispatcher()
	d.WillMount(c)

	el, res := d.Render(c)

	require.True(t, res.OK())
	require.Equal(t, "outer", el)
	require.False(t, inner.OK())
	require.Equal(t, errors.KindReentrant, inner.Err.Kind)
	require.ErrorIs(t, inner.Err, errors.ErrReentrantRender)
}

func TestDispatcher_ReentrantUnmountIsRejected(t *testing.T) {
	rt, _, rec := newTestRuntime(t)
	var calls []string
	var inner Result
	typ := Define("Widget",
		WithRender(func(*Component) (Element, error) { return "ok", nil }),
		AfterMount(
			func(c *Component, _ Args) error {
				inner = c.Runtime().Dispatcher().WillUnmount(c)
				return nil
			},
			func(c *Component, _ Args) error {
				calls = append(calls, fmt.Sprintf("second released=%v", c.Released()))
				c.Set("after", 1)
				return nil
			},
		),
		BeforeUnmount(recordHook(&calls, "will_unmount")),
	)
	c := rt.NewComponent(typ, nil, nil)
	d := rt.Dispatcher()
	d.WillMount(c)
	d.Render(c)

	require.True(t, d.DidMount(c).OK())
	require.Equal(t, errors.KindReentrant, inner.Err.Kind)
	require.Equal(t, []string{"second released=false"}, calls)
	require.False(t, c.Released())
	require.Equal(t, LifecycleMounted, c.Lifecycle())
	require.Equal(t, 1, c.Get("after"))
	require.Len(t, rec.PhaseErrors(), 1)

	require.True(t, d.WillUnmount(c).OK())
	require.True(t, c.Released())
	require.Equal(t, []string{"second released=false", "will_unmount"}, calls)
}

func TestDispatcher_ReentrantPhaseKeepsLifecycle(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	var inner Result
	var during Lifecycle
	typ := Define("Widget",
		WithRender(func(*Component) (Element, error) { return "ok", nil }),
		AfterMount(func(c *Component, _ Args) error {
			inner = c.Runtime().Dispatcher().WillReceiveProps(c, gate.Snapshot{"x": 1})
			during = c.Lifecycle()
			return nil
		}),
	)
	c := rt.NewComponent(typ, nil, nil)
	d := rt.Dispatcher()
	d.WillMount(c)
	d.Render(c)

	require.True(t, d.DidMount(c).OK())
	require.Equal(t, errors.KindReentrant, inner.Err.Kind)
	require.Equal(t, LifecycleMounted, during)
	require.Equal(t, LifecycleMounted, c.Lifecycle())
}

func TestDispatcher_InvalidTransition(t *testing.T) {
	rt, _, rec := newTestRuntime(t)
	c := rt.NewComponent(Define("Widget"), nil, nil)
	d := rt.Dispatcher()

	res := d.DidUpdate(c, nil, nil)
	require.Equal(t, errors.KindTransition, res.Err.Kind)
	require.ErrorIs(t, res.Err, errors.ErrInvalidTransition)
	require.Equal(t, LifecycleUnmounted, c.Lifecycle(), "rejected phases leave the state alone")

	_, renderRes := d.Render(c)
	require.Equal(t, errors.KindTransition, renderRes.Err.Kind)
	require.Len(t, rec.PhaseErrors(), 2)
}

func TestDispatcher_UpdateCycle(t *testing.T) {
	rt, host, _ := newTestRuntime(t)
	var got []Args
	capture := func(c *Component, args Args) error {
		got = append(got, args)
		return nil
	}
	typ := Define("Widget",
		BeforeReceiveProps(capture),
		BeforeUpdate(capture),
		AfterUpdate(capture),
		WithRender(func(c *Component) (Element, error) { return c.Props()["label"], nil }),
	)
	c, _ := mount(t, rt, typ, nil, gate.Snapshot{"label": "a"})
	d := rt.Dispatcher()
	next := gate.Snapshot{"label": "b"}

	require.True(t, d.WillReceiveProps(c, next).OK())
	require.Equal(t, LifecycleReceivingProps, c.Lifecycle())
	require.True(t, d.ShouldComponentUpdate(c, next, nil))
	el := rerender(t, rt, host, c, next, nil)

	require.Equal(t, "b", el)
	require.Equal(t, LifecycleMounted, c.Lifecycle())
	require.Len(t, got, 3)
	require.Equal(t, next, got[0].Props)
	require.Equal(t, next, got[1].Props)
	require.Equal(t, gate.Snapshot{"label": "a"}, got[2].Props, "did_update sees the previous props")
}

func TestDispatcher_ShouldComponentUpdate(t *testing.T) {
	rt, host, _ := newTestRuntime(t)
	c, _ := mount(t, rt, Define("Widget", WithRender(getter("x"))), nil, gate.Snapshot{"a": 1})
	host.state[c] = gate.Snapshot{"x": 1}
	d := rt.Dispatcher()

	require.False(t, d.ShouldComponentUpdate(c, gate.Snapshot{"a": 1}, gate.Snapshot{"x": 1}))
	require.True(t, d.ShouldComponentUpdate(c, gate.Snapshot{"a": 2}, gate.Snapshot{"x": 1}))
	require.True(t, d.ShouldComponentUpdate(c, gate.Snapshot{"a": 1}, gate.Snapshot{"x": 2}))
	require.True(t, d.ShouldComponentUpdate(c, gate.Snapshot{"a": 1},
		gate.Snapshot{"x": 1, gate.ForceUpdateKey: 1.5}))
}

func TestDispatcher_NeedsUpdateOverride(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	var seen gate.Transition
	typ := Define("Static",
		WithRender(func(*Component) (Element, error) { return nil, nil }),
		WithNeedsUpdate(func(c *Component, tr gate.Transition) bool {
			seen = tr
			return false
		}),
	)
	c, _ := mount(t, rt, typ, nil, gate.Snapshot{"a": 1})

	update := rt.Dispatcher().ShouldComponentUpdate(c, gate.Snapshot{"a": 2}, nil)

	require.False(t, update)
	require.True(t, seen.PropsChanged())
	require.Equal(t, gate.Snapshot{"a": 1}, seen.PrevProps)
}

func TestDispatcher_UnmountReleasesEverything(t *testing.T) {
	rt, host, rec := newTestRuntime(t)
	var order []string
	typ := Define("Widget",
		BeforeUnmount(func(*Component, Args) error { return fmt.Errorf("cleanup failed") }),
		WithRender(getter("x")),
	)
	parent, _ := mount(t, rt, Define("Parent", WithRender(getter("shared"))), nil, nil)
	c, _ := mount(t, rt, Define("Reader", WithRender(func(c *Component) (Element, error) {
		return c.Parent().Get("shared"), nil
	})), parent, nil)
	own, _ := mount(t, rt, typ, nil, nil)
	own.OnDispose(func() { order = append(order, "first") })
	own.OnDispose(func() { order = append(order, "second") })

	parent.Set("shared", 1)
	own.Set("x", 1)

	res := rt.Dispatcher().WillUnmount(own)
	require.False(t, res.OK())
	require.True(t, own.Released())
	require.Equal(t, LifecycleUnmounted, own.Lifecycle())
	require.True(t, own.Store().Released())
	require.Empty(t, rt.Registry().Dependencies(own))
	require.Nil(t, rt.Scheduler().Pending(own))
	require.Equal(t, []string{"second", "first"}, order)

	require.True(t, rt.Dispatcher().WillUnmount(c).OK())
	rt.Flush()
	require.Len(t, host.commitsFor(parent), 1)
	require.Empty(t, host.commitsFor(c), "unmounted observers get no commits")

	again := rt.Dispatcher().WillUnmount(c)
	require.Equal(t, errors.KindTransition, again.Err.Kind)
	require.Len(t, rec.PhaseErrors(), 2)
}

func TestDispatcher_ReplayDoesNotCollect(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	c, _ := mount(t, rt, Define("Widget",
		DefineState(Declaration{Names: []string{"mode"}, Shared: Literal("a")}),
		WithRender(func(c *Component) (Element, error) {
			return c.Get(c.Store().Get("mode").(string)), nil
		}),
	), nil, nil)
	deps := rt.Registry().Dependencies(c)

	cell, _ := c.Store().Lookup("mode")
	cell.Write("b")
	rt.Scheduler().Reset()

	_, res := rt.Dispatcher().Replay(c)
	require.True(t, res.OK())
	require.Equal(t, deps, rt.Registry().Dependencies(c))
}

type phaseLog struct {
	BaseExtension
	order  int
	events *[]string
}

func (p *phaseLog) Order() int { return p.order }

func (p *phaseLog) OnPhaseStart(c *Component, phase Phase) {
	*p.events = append(*p.events, fmt.Sprintf("%s:start:%s", p.Name(), phase))
}

func (p *phaseLog) OnPhaseEnd(c *Component, phase Phase, res Result) {
	*p.events = append(*p.events, fmt.Sprintf("%s:end:%s:%t", p.Name(), phase, res.OK()))
}

func (p *phaseLog) OnError(err *errors.PhaseError) {
	*p.events = append(*p.events, fmt.Sprintf("%s:error:%s", p.Name(), err.Phase))
}

func TestDispatcher_Extensions(t *testing.T) {
	var events []string
	rt, _, _ := newTestRuntime(t,
		WithExtension(&phaseLog{BaseExtension: NewBaseExtension("late"), order: 20, events: &events}),
		WithExtension(&phaseLog{BaseExtension: NewBaseExtension("early"), order: 10, events: &events}),
	)
	c := rt.NewComponent(Define("Widget",
		BeforeMount(func(*Component, Args) error { return fmt.Errorf("x") }),
	), nil, nil)

	rt.Dispatcher().WillMount(c)

	require.Equal(t, []string{
		"early:start:will_mount",
		"late:start:will_mount",
		"early:error:will_mount",
		"late:error:will_mount",
		"early:end:will_mount:false",
		"late:end:will_mount:false",
	}, events)
}

func TestDispatcher_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	rt, _, _ := newTestRuntime(t, WithTracer(tp.Tracer(TracerName)))
	c := rt.NewComponent(Define("Widget",
		WithCallbacks(PhaseDidMount, Named("explode", func(*Component, Args) error { panic("x") })),
		WithRender(func(*Component) (Element, error) { return nil, nil }),
	), nil, nil)
	d := rt.Dispatcher()
	d.WillMount(c)
	d.Render(c)
	d.DidMount(c)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	names := []string{spans[0].Name(), spans[1].Name(), spans[2].Name()}
	require.Equal(t, []string{"lifecycle.will_mount", "lifecycle.render", "lifecycle.did_mount"}, names)

	failed := spans[2]
	require.Equal(t, codes.Error, failed.Status().Code)
	require.Contains(t, failed.Attributes(), attribute.String(AttrComponentType, "Widget"))
	require.Contains(t, failed.Attributes(), attribute.String(AttrComponentID, c.ID()))
	require.Contains(t, failed.Attributes(), attribute.String(AttrCallback, "explode"))
}
