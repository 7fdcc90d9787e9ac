package scenario

import (
	"fmt"
	"maps"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/go-drift/reactbind/internal/log"
	"github.com/go-drift/reactbind/pkg/core"
	"github.com/go-drift/reactbind/pkg/gate"
)

// Program is a compiled scenario, ready to run any number of times.
type Program struct {
	scenario *Scenario
	types    map[string]*core.Type
	handlers map[int]map[string]*vm.Program
	expects  map[int]*vm.Program
}

// Scenario returns the source scenario.
func (p *Program) Scenario() *Scenario { return p.scenario }

// Type returns the compiled component type with the given name.
func (p *Program) Type(name string) (*core.Type, bool) {
	t, ok := p.types[name]
	return t, ok
}

// Compile compiles every expression in s and defines its component types.
func Compile(s *Scenario) (*Program, error) {
	p := &Program{
		scenario: s,
		types:    make(map[string]*core.Type, len(s.Components)),
		handlers: make(map[int]map[string]*vm.Program),
		expects:  make(map[int]*vm.Program),
	}

	for _, name := range slices.Sorted(maps.Keys(s.Components)) {
		t, err := compileType(name, s.Components[name])
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
		p.types[name] = t
	}

	for i, step := range s.Steps {
		switch {
		case step.Mount != nil && len(step.Mount.On) > 0:
			progs := make(map[string]*vm.Program, len(step.Mount.On))
			for event, src := range step.Mount.On {
				prog, err := compileExpr(src)
				if err != nil {
					return nil, fmt.Errorf("step %d: handler %s: %w", i+1, event, err)
				}
				progs[event] = prog
			}
			p.handlers[i] = progs
		case step.Expect != nil && step.Expect.Expr != "":
			prog, err := compileExpr(step.Expect.Expr, expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("step %d: expect: %w", i+1, err)
			}
			p.expects[i] = prog
		}
	}

	log.Debug(log.CatScenario, "scenario compiled", "name", s.Name, "types", len(p.types), "steps", len(s.Steps))
	return p, nil
}

func compileExpr(src string, opts ...expr.Option) (*vm.Program, error) {
	return expr.Compile(src, append([]expr.Option{expr.Env(Env{})}, opts...)...)
}

func compileType(name string, comp *Component) (*core.Type, error) {
	render, err := compileExpr(comp.Render)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	opts := []core.TypeOption{
		core.WithRender(func(c *core.Component) (core.Element, error) {
			return expr.Run(render, newEnv(c))
		}),
	}

	if len(comp.State) > 0 {
		each := make(map[string]core.Default, len(comp.State))
		for k, v := range comp.State {
			each[k] = core.Literal(v)
		}
		opts = append(opts, core.DefineState(core.Declaration{Each: each}))
	}
	if len(comp.Props) > 0 {
		opts = append(opts, core.WithDefaultProps(gate.Snapshot(comp.Props)))
	}

	for _, phase := range callbackPhases {
		sources := comp.Callbacks[string(phase)]
		if len(sources) == 0 {
			continue
		}
		cbs := make([]core.Callback, 0, len(sources))
		for i, src := range sources {
			prog, err := compileExpr(src)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", phase, i, err)
			}
			cbs = append(cbs, core.Named(fmt.Sprintf("%s.%s[%d]", name, phase, i), callbackHook(prog)))
		}
		opts = append(opts, core.WithCallbacks(phase, cbs...))
	}

	if comp.NeedsUpdate != "" {
		prog, err := compileExpr(comp.NeedsUpdate, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("needs_update: %w", err)
		}
		opts = append(opts, core.WithNeedsUpdate(func(c *core.Component, t gate.Transition) bool {
			out, err := expr.Run(prog, transitionEnv(c, t))
			if err != nil {
				log.ErrorErr(log.CatScenario, "needs_update failed, updating", err, "component", c)
				return true
			}
			update, _ := out.(bool)
			return update
		}))
	}

	return core.Define(name, opts...), nil
}

// callbackHook runs prog as a lifecycle callback. An expression that
// evaluates to an error fails the callback.
func callbackHook(prog *vm.Program) core.Hook {
	return func(c *core.Component, args core.Args) error {
		out, err := expr.Run(prog, argsEnv(c, args))
		if err != nil {
			return err
		}
		if err, ok := out.(error); ok {
			return err
		}
		return nil
	}
}

func handlerFunc(prog *vm.Program, target func() *core.Component) func(args ...any) any {
	return func(args ...any) any {
		out, err := expr.Run(prog, eventEnv(target(), args))
		if err != nil {
			return err
		}
		return out
	}
}
