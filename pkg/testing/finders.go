package testing

import (
	"fmt"
	"strings"

	"github.com/go-drift/reactbind/pkg/core"
	"github.com/go-drift/reactbind/pkg/gate"
)

// Finder locates mounted components.
type Finder interface {
	// Matches reports whether c is selected.
	Matches(h *Harness, c *core.Component) bool
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	components []*core.Component
	finder     Finder
}

// Find evaluates a finder against the live components in mount order.
func (h *Harness) Find(finder Finder) FinderResult {
	var out []*core.Component
	for _, c := range h.mounted {
		if finder.Matches(h, c) {
			out = append(out, c)
		}
	}
	return FinderResult{components: out, finder: finder}
}

// First returns the first match. Panics if no matches.
func (r FinderResult) First() *core.Component {
	if len(r.components) == 0 {
		desc := "unknown"
		if r.finder != nil {
			desc = r.finder.Description()
		}
		panic(fmt.Sprintf("Finder found no components: %s", desc))
	}
	return r.components[0]
}

// FirstOrNil returns the first match, or nil if none.
func (r FinderResult) FirstOrNil() *core.Component {
	if len(r.components) == 0 {
		return nil
	}
	return r.components[0]
}

// All returns every match.
func (r FinderResult) All() []*core.Component {
	return r.components
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.components)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.components) > 0
}

type predicateFinder struct {
	fn   func(h *Harness, c *core.Component) bool
	desc string
}

func (f *predicateFinder) Matches(h *Harness, c *core.Component) bool { return f.fn(h, c) }

func (f *predicateFinder) Description() string { return f.desc }

// ByType matches components whose type has the given name.
func ByType(name string) Finder {
	return &predicateFinder{
		fn:   func(_ *Harness, c *core.Component) bool { return c.Type().Name() == name },
		desc: fmt.Sprintf("ByType(%s)", name),
	}
}

// ByOutput matches components whose latest render output formats as text.
func ByOutput(text string) Finder {
	return &predicateFinder{
		fn: func(h *Harness, c *core.Component) bool {
			out := h.Output(c)
			return out != nil && fmt.Sprint(out) == text
		},
		desc: fmt.Sprintf("ByOutput(%q)", text),
	}
}

// ByOutputContaining matches components whose latest render output
// contains substring.
func ByOutputContaining(substring string) Finder {
	return &predicateFinder{
		fn: func(h *Harness, c *core.Component) bool {
			out := h.Output(c)
			return out != nil && strings.Contains(fmt.Sprint(out), substring)
		},
		desc: fmt.Sprintf("ByOutputContaining(%q)", substring),
	}
}

// ByProp matches components whose prop key equals value.
func ByProp(key string, value any) Finder {
	return &predicateFinder{
		fn: func(h *Harness, c *core.Component) bool {
			v, ok := h.Props(c)[key]
			return ok && gate.Equal(v, value)
		},
		desc: fmt.Sprintf("ByProp(%s=%v)", key, value),
	}
}

// ByPredicate matches components satisfying fn.
func ByPredicate(fn func(*core.Component) bool) Finder {
	return &predicateFinder{
		fn:   func(_ *Harness, c *core.Component) bool { return fn(c) },
		desc: "ByPredicate",
	}
}
