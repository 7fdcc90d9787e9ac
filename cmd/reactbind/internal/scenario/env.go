package scenario

import (
	"fmt"

	"github.com/go-drift/reactbind/pkg/core"
	"github.com/go-drift/reactbind/pkg/gate"
)

// Env is what scenario expressions see.
//
// get and parent record dependencies when called from a render expression;
// peek and the props/state maps never do.
type Env struct {
	Props   map[string]any `expr:"props"`
	State   map[string]any `expr:"state"`
	Mounted bool           `expr:"mounted"`

	Get     func(name string) any                   `expr:"get"`
	Peek    func(name string) any                   `expr:"peek"`
	Set     func(name string, value any) any        `expr:"set"`
	Parent  func(name string) any                   `expr:"parent"`
	Emit    func(event string, args ...any) any     `expr:"emit"`
	Fail    func(msg string) error                  `expr:"fail"`
	Sprintf func(format string, args ...any) string `expr:"sprintf"`

	// Args holds the callback's snapshots.
	Args ArgsEnv `expr:"args"`
	// Event holds the arguments of the event being handled.
	Event []any `expr:"event"`

	// Transition fields are set for needs_update expressions.
	NextProps    map[string]any `expr:"next_props"`
	NextState    map[string]any `expr:"next_state"`
	PropsChanged bool           `expr:"props_changed"`
	StateChanged bool           `expr:"state_changed"`
}

// ArgsEnv mirrors core.Args.
type ArgsEnv struct {
	Props map[string]any `expr:"props"`
	State map[string]any `expr:"state"`
}

// ErrExpressionFailed is returned by callbacks that call fail().
type ErrExpressionFailed struct {
	Message string
}

func (e *ErrExpressionFailed) Error() string { return e.Message }

func newEnv(c *core.Component) Env {
	return Env{
		Props:   c.Props(),
		State:   c.Store().Snapshot(),
		Mounted: c.IsMounted(),
		Get:     c.Get,
		Peek: func(name string) any {
			if cell, ok := c.Store().Lookup(name); ok {
				return cell.Peek()
			}
			return nil
		},
		Set: c.Set,
		Parent: func(name string) any {
			if p := c.Parent(); p != nil {
				return p.Get(name)
			}
			return nil
		},
		Emit: func(event string, args ...any) any {
			out, err := c.Emit(event, args...)
			if err != nil {
				return err
			}
			return out
		},
		Fail: func(msg string) error {
			return &ErrExpressionFailed{Message: msg}
		},
		Sprintf: fmt.Sprintf,
	}
}

func argsEnv(c *core.Component, args core.Args) Env {
	env := newEnv(c)
	env.Args = ArgsEnv{Props: args.Props, State: args.State}
	return env
}

func transitionEnv(c *core.Component, t gate.Transition) Env {
	env := newEnv(c)
	env.NextProps = t.NextProps
	env.NextState = t.NextState
	env.PropsChanged = t.PropsChanged()
	env.StateChanged = t.StateChanged()
	return env
}

func eventEnv(c *core.Component, args []any) Env {
	env := newEnv(c)
	env.Event = args
	return env
}
