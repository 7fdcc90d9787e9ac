package testing

import (
	"slices"
	"testing"

	"github.com/go-drift/reactbind/pkg/core"
	rberrors "github.com/go-drift/reactbind/pkg/errors"
	"github.com/go-drift/reactbind/pkg/gate"
)

// MaxPumpRounds bounds the number of commit rounds a single Pump runs.
const MaxPumpRounds = 100

// ErrPumpLimit is returned when Pump exceeds MaxPumpRounds, which usually
// means an update callback writes state on every update.
var ErrPumpLimit = rberrors.New("Pump did not settle: commits keep scheduling commits")

// record is what the harness, acting as host, keeps per component.
type record struct {
	props   gate.Snapshot
	state   gate.Snapshot
	output  core.Element
	renders int
}

// Harness is an in-memory host. It mounts components, keeps their props
// and state, applies committed patches through the full update cycle and
// records every render output and contained error.
type Harness struct {
	runtime     *core.Runtime
	clock       *FakeClock
	recorder    *rberrors.Recorder
	prevHandler rberrors.ErrorHandler
	records     map[*core.Component]*record
	mounted     []*core.Component
	pending     map[*core.Component]gate.Snapshot
	queue       []*core.Component
}

// NewHarness creates a harness with a fake clock and an error recorder
// installed as the global error handler. Call Cleanup() when done, or use
// NewHarnessWithT() instead.
func NewHarness(opts ...core.Option) *Harness {
	h := &Harness{
		clock:    NewFakeClock(),
		recorder: &rberrors.Recorder{},
		records:  make(map[*core.Component]*record),
		pending:  make(map[*core.Component]gate.Snapshot),
	}
	all := append([]core.Option{core.WithClock(h.clock)}, opts...)
	h.runtime = core.NewRuntime(append(all, core.WithHost(h))...)
	h.prevHandler = rberrors.SetHandler(h.recorder)
	return h
}

// NewHarnessWithT creates a harness that auto-cleans up via t.Cleanup().
// This is the recommended constructor for tests.
func NewHarnessWithT(t *testing.T, opts ...core.Option) *Harness {
	h := NewHarness(opts...)
	t.Cleanup(h.Cleanup)
	return h
}

// Cleanup unmounts every remaining component and restores the previous
// error handler.
func (h *Harness) Cleanup() {
	for _, c := range slices.Backward(slices.Clone(h.mounted)) {
		if !c.Released() {
			h.Unmount(c)
		}
	}
	rberrors.SetHandler(h.prevHandler)
}

// Runtime returns the runtime driven by the harness.
func (h *Harness) Runtime() *core.Runtime { return h.runtime }

// Clock returns the fake clock used for sentinel stamps.
func (h *Harness) Clock() *FakeClock { return h.clock }

// Errors returns every phase error reported so far.
func (h *Harness) Errors() []*rberrors.PhaseError { return h.recorder.PhaseErrors() }

// Panics returns every panic recovered outside a phase, e.g. in disposers.
func (h *Harness) Panics() []*rberrors.PanicError { return h.recorder.Panics() }

// ResetErrors forgets recorded errors.
func (h *Harness) ResetErrors() { h.recorder.Reset() }

// Mount creates a root instance of t and runs the mount sequence.
func (h *Harness) Mount(t *core.Type, props gate.Snapshot) *core.Component {
	return h.MountChild(nil, t, props)
}

// MountChild creates an instance of t under parent and runs the mount
// sequence.
func (h *Harness) MountChild(parent *core.Component, t *core.Type, props gate.Snapshot) *core.Component {
	c := h.runtime.NewComponent(t, parent, props)
	h.records[c] = &record{props: c.InitialProps(), state: gate.Snapshot{}}
	h.mounted = append(h.mounted, c)

	d := h.runtime.Dispatcher()
	d.WillMount(c)
	h.render(c)
	d.DidMount(c)
	return c
}

// SetProps delivers new props to c. Patches already committed for c are
// folded into the same update cycle. Reports whether c re-rendered.
func (h *Harness) SetProps(c *core.Component, props gate.Snapshot) bool {
	rec := h.records[c]
	if rec == nil || !c.IsMounted() {
		return false
	}
	h.runtime.Flush()
	h.runtime.Dispatcher().WillReceiveProps(c, props)
	return h.update(c, props, gate.Merge(rec.state, h.take(c)))
}

// Pump flushes pending commits and runs an update cycle for every
// committed component, repeating until nothing is scheduled. It returns the
// number of update cycles run.
func (h *Harness) Pump() (int, error) {
	cycles := 0
	for range MaxPumpRounds {
		h.runtime.Flush()
		if len(h.queue) == 0 {
			return cycles, nil
		}
		queue := h.queue
		h.queue = nil
		for _, c := range queue {
			rec := h.records[c]
			patch := h.take(c)
			if rec == nil || patch == nil || !c.IsMounted() {
				continue
			}
			h.update(c, rec.props, gate.Merge(rec.state, patch))
			cycles++
		}
	}
	return cycles, ErrPumpLimit
}

// Unmount unmounts c and every descendant, deepest first.
func (h *Harness) Unmount(c *core.Component) {
	for _, child := range slices.Backward(slices.Clone(h.mounted)) {
		if child.Parent() == c && !child.Released() {
			h.Unmount(child)
		}
	}
	h.runtime.Dispatcher().WillUnmount(c)
	delete(h.records, c)
	delete(h.pending, c)
	h.mounted = slices.DeleteFunc(h.mounted, func(m *core.Component) bool { return m == c })
}

// Output returns the latest render output of c.
func (h *Harness) Output(c *core.Component) core.Element {
	if rec := h.records[c]; rec != nil {
		return rec.output
	}
	return nil
}

// RenderCount returns how many times c has rendered.
func (h *Harness) RenderCount(c *core.Component) int {
	if rec := h.records[c]; rec != nil {
		return rec.renders
	}
	return 0
}

// Mounted returns the live components in mount order.
func (h *Harness) Mounted() []*core.Component {
	return slices.Clone(h.mounted)
}

// Commit implements core.Host.
func (h *Harness) Commit(c *core.Component, patch gate.Snapshot) {
	if _, ok := h.pending[c]; !ok {
		h.queue = append(h.queue, c)
	}
	h.pending[c] = gate.Merge(h.pending[c], patch)
}

// Props implements core.Host.
func (h *Harness) Props(c *core.Component) gate.Snapshot {
	if rec := h.records[c]; rec != nil {
		return rec.props
	}
	return c.InitialProps()
}

// State implements core.Host.
func (h *Harness) State(c *core.Component) gate.Snapshot {
	if rec := h.records[c]; rec != nil {
		return rec.state
	}
	return nil
}

func (h *Harness) take(c *core.Component) gate.Snapshot {
	patch, ok := h.pending[c]
	if !ok {
		return nil
	}
	delete(h.pending, c)
	return patch
}

// update runs the gated update cycle. The host adopts the next snapshots
// whether or not the gate lets the render through.
func (h *Harness) update(c *core.Component, props, state gate.Snapshot) bool {
	rec := h.records[c]
	d := h.runtime.Dispatcher()
	if !d.ShouldComponentUpdate(c, props, state) {
		rec.props, rec.state = props, state
		return false
	}

	d.WillUpdate(c, props, state)
	prevProps, prevState := rec.props, rec.state
	rec.props, rec.state = props, state
	h.render(c)
	d.DidUpdate(c, prevProps, prevState)
	return true
}

func (h *Harness) render(c *core.Component) {
	el, _ := h.runtime.Dispatcher().Render(c)
	rec := h.records[c]
	rec.output = el
	rec.renders++
}
