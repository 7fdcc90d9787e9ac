package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/reactbind/pkg/errors"
	"github.com/go-drift/reactbind/pkg/gate"
)

func TestEventProp(t *testing.T) {
	tests := []struct {
		event string
		want  string
	}{
		{"submit", "onSubmit"},
		{"value_changed", "onValueChanged"},
		{"item-selected", "onItemSelected"},
		{"Close", "onClose"},
	}
	for _, tt := range tests {
		if got := EventProp(tt.event); got != tt.want {
			t.Errorf("EventProp(%q) = %q, want %q", tt.event, got, tt.want)
		}
	}
}

func TestComponent_Emit(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	var received []any
	props := gate.Snapshot{
		"onSubmit": func(args ...any) any {
			received = args
			return "accepted"
		},
		"onReset":  func(...any) {},
		"onFail":   func(...any) error { return fmt.Errorf("handler failed") },
		"onResize": func(w, h int) string { return fmt.Sprintf("%dx%d", w, h) },
		"onSave":   func(name string) (int, error) { return len(name), nil },
		"onBroken": "not a func",
	}
	c := rt.NewComponent(Define("Form"), nil, props)

	got, err := c.Emit("submit", 1, "two")
	require.NoError(t, err)
	require.Equal(t, "accepted", got)
	require.Equal(t, []any{1, "two"}, received)

	got, err = c.Emit("reset")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = c.Emit("fail")
	require.EqualError(t, err, "handler failed")

	got, err = c.Emit("resize", 3, 4)
	require.NoError(t, err)
	require.Equal(t, "3x4", got)

	got, err = c.Emit("save", "draft")
	require.NoError(t, err)
	require.Equal(t, 5, got)

	_, err = c.Emit("resize", 3)
	require.Error(t, err)

	_, err = c.Emit("broken")
	require.ErrorIs(t, err, errors.ErrNoHandler)
}

func TestComponent_EmitWithoutHandler(t *testing.T) {
	rt, _, rec := newTestRuntime(t)
	c := rt.NewComponent(Define("Form"), nil, nil)

	_, err := c.Emit("submit")

	require.ErrorIs(t, err, errors.ErrNoHandler)
	require.Contains(t, err.Error(), "onSubmit")
	require.Empty(t, rec.PhaseErrors(), "emit failures are not contained")
}

func TestComponent_OnDispose(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	c, _ := mount(t, rt, Define("Widget", WithRender(getter("x"))), nil, nil)

	var calls []string
	c.OnDispose(func() { calls = append(calls, "a") })
	unregister := c.OnDispose(func() { calls = append(calls, "b") })
	c.OnDispose(func() { panic("ignored") })
	c.OnDispose(func() { calls = append(calls, "c") })
	unregister()

	rt.Dispatcher().WillUnmount(c)
	require.Equal(t, []string{"c", "a"}, calls)

	late := false
	c.OnDispose(func() { late = true })
	require.True(t, late, "disposers registered after release run immediately")
}

func TestComponent_Tree(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	typ := Define("Node", WithDefaultProps(gate.Snapshot{"size": "m", "color": "red"}))

	root := rt.NewComponent(typ, nil, gate.Snapshot{"color": "blue"})
	child := rt.NewComponent(typ, root, nil)

	require.Zero(t, root.Depth())
	require.Equal(t, 1, child.Depth())
	require.Same(t, root, child.Parent())
	require.Equal(t, gate.Snapshot{"size": "m", "color": "blue"}, root.InitialProps())
	require.NotEqual(t, root.ID(), child.ID())
	require.Contains(t, root.String(), "Node#")
}

func TestComponent_PropsWithoutHost(t *testing.T) {
	rt := NewRuntime()
	c := rt.NewComponent(Define("Node"), nil, gate.Snapshot{"a": 1})

	require.Equal(t, gate.Snapshot{"a": 1}, c.Props())
	require.Nil(t, c.State())
}

func TestType_CallbacksIsACopy(t *testing.T) {
	typ := Define("Widget", BeforeMount(func(*Component, Args) error { return nil }))

	cbs := typ.Callbacks(PhaseWillMount)
	require.Len(t, cbs, 1)
	require.Contains(t, cbs[0].Name, "TestType_CallbacksIsACopy")

	cbs[0] = Named("replaced", nil)
	require.NotEqual(t, "replaced", typ.Callbacks(PhaseWillMount)[0].Name)
	require.Empty(t, typ.Callbacks(PhaseDidUpdate))
}

func TestLifecycleString(t *testing.T) {
	require.Equal(t, "receiving_props", LifecycleReceivingProps.String())
	require.Equal(t, "Lifecycle(42)", Lifecycle(42).String())
}
