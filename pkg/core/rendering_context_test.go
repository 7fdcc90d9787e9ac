package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/reactbind/pkg/errors"
)

func TestRunScoped_BindsOwner(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	rc := rt.Context()
	a := rt.NewComponent(Define("A"), nil, nil)
	b := rt.NewComponent(Define("B"), a, nil)

	got, err := RunScoped(rc, a, true, func() (string, error) {
		require.Same(t, a, rc.Owner())
		require.True(t, rc.Collecting())
		return RunScoped(rc, b, false, func() (string, error) {
			require.Same(t, b, rc.Owner())
			require.False(t, rc.Collecting())
			require.Equal(t, 2, rc.Depth())
			return "inner", nil
		})
	})

	require.NoError(t, err)
	require.Equal(t, "inner", got)
	require.Zero(t, rc.Depth())
	require.Nil(t, rc.Owner())
}

func TestRunScoped_PopsOnError(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	rc := rt.Context()
	a := rt.NewComponent(Define("A"), nil, nil)

	_, err := RunScoped(rc, a, true, func() (int, error) {
		return 0, fmt.Errorf("boom")
	})

	require.EqualError(t, err, "boom")
	require.Zero(t, rc.Depth())
}

func TestRunScoped_PopsOnPanic(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	rc := rt.Context()
	a := rt.NewComponent(Define("A"), nil, nil)

	require.Panics(t, func() {
		_, _ = RunScoped(rc, a, true, func() (int, error) {
			panic("boom")
		})
	})
	require.Zero(t, rc.Depth())

	// The owner can be scoped again.
	_, err := RunScoped(rc, a, true, func() (int, error) { return 1, nil })
	require.NoError(t, err)
}

func TestRunScoped_RejectsReentry(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	rc := rt.Context()
	a := rt.NewComponent(Define("A"), nil, nil)

	ran := false
	_, err := RunScoped(rc, a, true, func() (int, error) {
		return RunScoped(rc, a, true, func() (int, error) {
			ran = true
			return 1, nil
		})
	})

	require.ErrorIs(t, err, errors.ErrReentrantRender)
	require.False(t, ran)
	require.Zero(t, rc.Depth())
}

func TestRunScoped_NilOwner(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	rc := rt.Context()

	_, err := RunScoped(rc, nil, true, func() (int, error) {
		require.Nil(t, rc.Owner())
		return 0, nil
	})
	require.NoError(t, err)
}
