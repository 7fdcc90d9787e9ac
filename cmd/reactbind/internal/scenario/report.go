package scenario

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-drift/reactbind/pkg/errors"
)

// Report is the outcome of one scenario run.
type Report struct {
	Name     string
	Path     string
	Steps    int
	Failures []Failure
	// Errors are the lifecycle errors contained during the run. They fail
	// the run only through an expect step's errors count.
	Errors   []*errors.PhaseError
	Duration time.Duration
}

// Failure is one failed step.
type Failure struct {
	Step    int
	Action  string
	Message string
	Diff    string
}

func (f Failure) String() string {
	return fmt.Sprintf("step %d (%s): %s", f.Step, f.Action, f.Message)
}

// Passed reports whether every step succeeded.
func (r *Report) Passed() bool { return len(r.Failures) == 0 }

// Summary is a one-line description of the run.
func (r *Report) Summary() string {
	status := "ok"
	if !r.Passed() {
		status = fmt.Sprintf("%d failed", len(r.Failures))
	}
	return fmt.Sprintf("%s: %s (%d steps, %d contained errors, %s)",
		r.Name, status, r.Steps, len(r.Errors), r.Duration.Round(time.Microsecond))
}

func (r *Report) String() string {
	var b strings.Builder
	b.WriteString(r.Summary())
	b.WriteByte('\n')
	for _, f := range r.Failures {
		b.WriteString("  ")
		b.WriteString(f.String())
		b.WriteByte('\n')
		if f.Diff != "" {
			for _, line := range strings.Split(strings.TrimSuffix(f.Diff, "\n"), "\n") {
				b.WriteString("    ")
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}
