// Package scenario loads, compiles and runs YAML scenario files.
//
// A scenario declares component types and a list of steps:
//
//	version: v1
//	name: counter
//	components:
//	  Counter:
//	    state:
//	      count: 0
//	    render: 'sprintf("%v: %v", props.label, get("count"))'
//	    callbacks:
//	      did_update:
//	        - 'set("updates", peek("updates") + 1)'
//	steps:
//	  - mount: {id: c, type: Counter, props: {label: clicks}}
//	  - set: {id: c, name: count, value: 1}
//	  - pump: {}
//	  - expect: {id: c, render: "clicks: 1", renders: 2}
//
// Expressions use github.com/expr-lang/expr; see Env for the names they
// can reference.
package scenario

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/reactbind/pkg/core"
	"github.com/go-drift/reactbind/pkg/errors"
)

// CurrentVersion is the newest scenario format this package understands.
const CurrentVersion = "v1"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid scenario")

// Scenario is a parsed scenario file.
type Scenario struct {
	Version    string                `yaml:"version,omitempty"`
	Name       string                `yaml:"name"`
	Components map[string]*Component `yaml:"components"`
	Steps      []Step                `yaml:"steps"`

	// Path is the file the scenario was loaded from, if any.
	Path string `yaml:"-"`
}

// Component describes one component type.
type Component struct {
	State       map[string]any      `yaml:"state,omitempty"`
	Props       map[string]any      `yaml:"props,omitempty"`
	Render      string              `yaml:"render"`
	Callbacks   map[string][]string `yaml:"callbacks,omitempty"`
	NeedsUpdate string              `yaml:"needs_update,omitempty"`
}

// Step is one scenario action. Exactly one field is set.
type Step struct {
	Mount   *MountStep  `yaml:"mount,omitempty"`
	Props   *PropsStep  `yaml:"props,omitempty"`
	Set     *SetStep    `yaml:"set,omitempty"`
	Emit    *EmitStep   `yaml:"emit,omitempty"`
	Pump    *PumpStep   `yaml:"pump,omitempty"`
	Advance string      `yaml:"advance,omitempty"`
	Unmount *RefStep    `yaml:"unmount,omitempty"`
	Expect  *ExpectStep `yaml:"expect,omitempty"`
}

// MountStep mounts a component. On maps event names to handler expressions
// evaluated against the parent, or the component itself for roots.
type MountStep struct {
	ID     string            `yaml:"id"`
	Type   string            `yaml:"type"`
	Parent string            `yaml:"parent,omitempty"`
	Props  map[string]any    `yaml:"props,omitempty"`
	On     map[string]string `yaml:"on,omitempty"`
}

// PropsStep delivers new props.
type PropsStep struct {
	ID    string         `yaml:"id"`
	Props map[string]any `yaml:"props"`
}

// SetStep writes a state cell.
type SetStep struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Value any    `yaml:"value"`
}

// EmitStep emits an event from a component.
type EmitStep struct {
	ID    string `yaml:"id"`
	Event string `yaml:"event"`
	Args  []any  `yaml:"args,omitempty"`
}

// PumpStep runs pending update cycles. Cycles, when set, is the expected
// number of update cycles.
type PumpStep struct {
	Cycles *int `yaml:"cycles,omitempty"`
}

// RefStep names a mounted component.
type RefStep struct {
	ID string `yaml:"id"`
}

// ExpectStep asserts on a component or on the whole run.
type ExpectStep struct {
	ID        string         `yaml:"id,omitempty"`
	Render    *string        `yaml:"render,omitempty"`
	Renders   *int           `yaml:"renders,omitempty"`
	State     map[string]any `yaml:"state,omitempty"`
	Lifecycle string         `yaml:"lifecycle,omitempty"`
	Expr      string         `yaml:"expr,omitempty"`
	Errors    *int           `yaml:"errors,omitempty"`
}

// Action names the step's action.
func (s Step) Action() string {
	actions := s.actions()
	if len(actions) != 1 {
		return ""
	}
	return actions[0]
}

func (s Step) actions() []string {
	var out []string
	if s.Mount != nil {
		out = append(out, "mount")
	}
	if s.Props != nil {
		out = append(out, "props")
	}
	if s.Set != nil {
		out = append(out, "set")
	}
	if s.Emit != nil {
		out = append(out, "emit")
	}
	if s.Pump != nil {
		out = append(out, "pump")
	}
	if s.Advance != "" {
		out = append(out, "advance")
	}
	if s.Unmount != nil {
		out = append(out, "unmount")
	}
	if s.Expect != nil {
		out = append(out, "expect")
	}
	return out
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// callbackPhases are the phases a scenario may attach callbacks to.
var callbackPhases = []core.Phase{
	core.PhaseWillMount,
	core.PhaseDidMount,
	core.PhaseWillReceiveProps,
	core.PhaseWillUpdate,
	core.PhaseDidUpdate,
	core.PhaseWillUnmount,
}

// Validate checks the structure of s. An empty version means
// CurrentVersion.
func (s *Scenario) Validate() error {
	if s.Version == "" {
		s.Version = CurrentVersion
	}
	if !semver.IsValid(s.Version) {
		return fmt.Errorf("%w: version %q is not a semantic version", ErrInvalid, s.Version)
	}
	if semver.Major(s.Version) != semver.Major(CurrentVersion) {
		return fmt.Errorf("%w: unsupported version %s (want %s.x)", ErrInvalid, s.Version, semver.Major(CurrentVersion))
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(s.Components) == 0 {
		return fmt.Errorf("%w: at least one component is required", ErrInvalid)
	}

	for name, comp := range s.Components {
		if comp == nil || strings.TrimSpace(comp.Render) == "" {
			return fmt.Errorf("%w: component %s: render is required", ErrInvalid, name)
		}
		for phase := range comp.Callbacks {
			if !slices.Contains(callbackPhases, core.Phase(phase)) {
				return fmt.Errorf("%w: component %s: unknown callback phase %q", ErrInvalid, name, phase)
			}
		}
	}

	ids := make(map[string]bool)
	for i, step := range s.Steps {
		actions := step.actions()
		if len(actions) != 1 {
			return fmt.Errorf("%w: step %d: want exactly one action, got %d", ErrInvalid, i+1, len(actions))
		}
		if err := s.validateStep(step, ids); err != nil {
			return fmt.Errorf("%w: step %d (%s): %w", ErrInvalid, i+1, actions[0], err)
		}
	}
	return nil
}

func (s *Scenario) validateStep(step Step, ids map[string]bool) error {
	ref := func(id string) error {
		if id == "" {
			return fmt.Errorf("id is required")
		}
		if !ids[id] {
			return fmt.Errorf("unknown component %q", id)
		}
		return nil
	}

	switch {
	case step.Mount != nil:
		m := step.Mount
		if m.ID == "" {
			return fmt.Errorf("id is required")
		}
		if ids[m.ID] {
			return fmt.Errorf("duplicate id %q", m.ID)
		}
		if _, ok := s.Components[m.Type]; !ok {
			return fmt.Errorf("unknown type %q", m.Type)
		}
		if m.Parent != "" {
			if err := ref(m.Parent); err != nil {
				return err
			}
		}
		ids[m.ID] = true
		return nil
	case step.Props != nil:
		return ref(step.Props.ID)
	case step.Set != nil:
		if step.Set.Name == "" {
			return fmt.Errorf("name is required")
		}
		return ref(step.Set.ID)
	case step.Emit != nil:
		if step.Emit.Event == "" {
			return fmt.Errorf("event is required")
		}
		return ref(step.Emit.ID)
	case step.Advance != "":
		if _, err := time.ParseDuration(step.Advance); err != nil {
			return err
		}
		return nil
	case step.Unmount != nil:
		return ref(step.Unmount.ID)
	case step.Expect != nil:
		e := step.Expect
		if e.ID == "" {
			if e.Render != nil || e.Renders != nil || e.State != nil || e.Lifecycle != "" || e.Expr != "" {
				return fmt.Errorf("component assertions need an id")
			}
			return nil
		}
		return ref(e.ID)
	}
	return nil
}
