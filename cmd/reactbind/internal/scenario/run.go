package scenario

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/expr-lang/expr"

	"github.com/go-drift/reactbind/internal/log"
	"github.com/go-drift/reactbind/pkg/core"
	"github.com/go-drift/reactbind/pkg/gate"
	rbtest "github.com/go-drift/reactbind/pkg/testing"
)

// Run executes the program on a fresh harness. Steps keep running after a
// failed expectation; a cancelled context stops the run.
func (p *Program) Run(ctx context.Context, opts ...core.Option) *Report {
	start := time.Now()
	h := rbtest.NewHarness(append([]core.Option{core.WithContext(ctx)}, opts...)...)
	defer h.Cleanup()

	r := &runner{
		program: p,
		harness: h,
		refs:    make(map[string]*core.Component),
		report:  &Report{Name: p.scenario.Name, Path: p.scenario.Path},
	}
	for i, step := range p.scenario.Steps {
		if err := ctx.Err(); err != nil {
			r.fail(i, "run", fmt.Sprintf("cancelled: %v", err), "")
			break
		}
		log.Debug(log.CatScenario, "step", "scenario", p.scenario.Name, "index", i+1, "action", step.Action())
		r.step(i, step)
		r.report.Steps++
	}

	r.report.Errors = h.Errors()
	r.report.Duration = time.Since(start)
	return r.report
}

type runner struct {
	program *Program
	harness *rbtest.Harness
	refs    map[string]*core.Component
	report  *Report
}

func (r *runner) fail(i int, action, msg, diff string) {
	r.report.Failures = append(r.report.Failures, Failure{
		Step:    i + 1,
		Action:  action,
		Message: msg,
		Diff:    diff,
	})
}

func (r *runner) step(i int, step Step) {
	h := r.harness
	switch {
	case step.Mount != nil:
		r.mount(i, step.Mount)
	case step.Props != nil:
		h.SetProps(r.refs[step.Props.ID], r.props(step.Props.ID, step.Props.Props))
	case step.Set != nil:
		r.refs[step.Set.ID].Set(step.Set.Name, step.Set.Value)
	case step.Emit != nil:
		if _, err := r.refs[step.Emit.ID].Emit(step.Emit.Event, step.Emit.Args...); err != nil {
			r.fail(i, "emit", err.Error(), "")
		}
	case step.Pump != nil:
		cycles, err := h.Pump()
		if err != nil {
			r.fail(i, "pump", err.Error(), "")
			return
		}
		if want := step.Pump.Cycles; want != nil && *want != cycles {
			r.fail(i, "pump", fmt.Sprintf("cycles = %d, want %d", cycles, *want), "")
		}
	case step.Advance != "":
		d, _ := time.ParseDuration(step.Advance)
		h.Clock().Advance(d)
	case step.Unmount != nil:
		if c := r.refs[step.Unmount.ID]; !c.Released() {
			h.Unmount(c)
		}
	case step.Expect != nil:
		r.expect(i, step.Expect)
	}
}

func (r *runner) mount(i int, m *MountStep) {
	t, _ := r.program.Type(m.Type)
	props := gate.Snapshot(maps.Clone(m.Props))

	var self *core.Component
	parent := r.refs[m.Parent]
	target := func() *core.Component {
		if parent != nil {
			return parent
		}
		return self
	}
	for event, prog := range r.program.handlers[i] {
		if props == nil {
			props = gate.Snapshot{}
		}
		props[core.EventProp(event)] = handlerFunc(prog, target)
	}

	if parent != nil {
		self = r.harness.MountChild(parent, t, props)
	} else {
		self = r.harness.Mount(t, props)
	}
	r.refs[m.ID] = self
}

// props carries the event handlers installed at mount over to new props.
func (r *runner) props(id string, next map[string]any) gate.Snapshot {
	out := gate.Snapshot(maps.Clone(next))
	if out == nil {
		out = gate.Snapshot{}
	}
	for k, v := range r.harness.Props(r.refs[id]) {
		if _, ok := out[k]; ok {
			continue
		}
		if isHandler(v) {
			out[k] = v
		}
	}
	return out
}

func isHandler(v any) bool {
	_, ok := v.(func(args ...any) any)
	return ok
}

func (r *runner) expect(i int, e *ExpectStep) {
	h := r.harness
	if e.Errors != nil {
		if got := len(h.Errors()); got != *e.Errors {
			r.fail(i, "expect", fmt.Sprintf("errors = %d, want %d", got, *e.Errors), describeErrors(h))
		}
	}
	if e.ID == "" {
		return
	}

	c := r.refs[e.ID]
	if e.Render != nil {
		got := fmt.Sprint(h.Output(c))
		if got != *e.Render {
			r.fail(i, "expect", fmt.Sprintf("%s: render mismatch", e.ID), rbtest.LineDiff(*e.Render+"\n", got+"\n"))
		}
	}
	if e.Renders != nil {
		if got := h.RenderCount(c); got != *e.Renders {
			r.fail(i, "expect", fmt.Sprintf("%s: renders = %d, want %d", e.ID, got, *e.Renders), "")
		}
	}
	if e.Lifecycle != "" && c.Lifecycle().String() != e.Lifecycle {
		r.fail(i, "expect", fmt.Sprintf("%s: lifecycle = %s, want %s", e.ID, c.Lifecycle(), e.Lifecycle), "")
	}
	if len(e.State) > 0 {
		state := h.State(c)
		for _, k := range slices.Sorted(maps.Keys(e.State)) {
			got, ok := state[k]
			if !ok {
				r.fail(i, "expect", fmt.Sprintf("%s: state %s not committed", e.ID, k), "")
				continue
			}
			if !gate.Equal(got, e.State[k]) {
				r.fail(i, "expect", fmt.Sprintf("%s: state %s = %v, want %v", e.ID, k, got, e.State[k]), "")
			}
		}
	}
	if prog := r.program.expects[i]; prog != nil {
		out, err := expr.Run(prog, newEnv(c))
		switch {
		case err != nil:
			r.fail(i, "expect", fmt.Sprintf("%s: %v", e.ID, err), "")
		case out != true:
			r.fail(i, "expect", fmt.Sprintf("%s: %s is false", e.ID, e.Expr), "")
		}
	}
}

func describeErrors(h *rbtest.Harness) string {
	var out string
	for _, err := range h.Errors() {
		out += err.Error() + "\n"
	}
	return out
}
