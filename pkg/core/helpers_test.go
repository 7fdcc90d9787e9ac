package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/reactbind/pkg/errors"
	"github.com/go-drift/reactbind/pkg/gate"
)

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

type commitRecord struct {
	c     *Component
	patch gate.Snapshot
}

// recordingHost keeps props and state per component and records commits
// without running update cycles.
type recordingHost struct {
	props   map[*Component]gate.Snapshot
	state   map[*Component]gate.Snapshot
	commits []commitRecord
}

func newRecordingHost() *recordingHost {
	return &recordingHost{
		props: make(map[*Component]gate.Snapshot),
		state: make(map[*Component]gate.Snapshot),
	}
}

func (h *recordingHost) Commit(c *Component, patch gate.Snapshot) {
	h.commits = append(h.commits, commitRecord{c: c, patch: patch})
}

func (h *recordingHost) Props(c *Component) gate.Snapshot {
	if p, ok := h.props[c]; ok {
		return p
	}
	return c.InitialProps()
}

func (h *recordingHost) State(c *Component) gate.Snapshot {
	return h.state[c]
}

func (h *recordingHost) commitsFor(c *Component) []gate.Snapshot {
	var out []gate.Snapshot
	for _, rec := range h.commits {
		if rec.c == c {
			out = append(out, rec.patch)
		}
	}
	return out
}

// newTestRuntime returns a runtime bound to a recording host, with a
// frozen clock and an error recorder installed for the test.
func newTestRuntime(t *testing.T, opts ...Option) (*Runtime, *recordingHost, *errors.Recorder) {
	t.Helper()
	host := newRecordingHost()
	rec := &errors.Recorder{}
	prev := errors.SetHandler(rec)
	t.Cleanup(func() { errors.SetHandler(prev) })

	base := []Option{
		WithHost(host),
		WithClock(&stepClock{now: time.Unix(1_700_000_000, 0)}),
	}
	return NewRuntime(append(base, opts...)...), host, rec
}

// mount runs the mount sequence and fails the test on any phase error.
func mount(t *testing.T, rt *Runtime, typ *Type, parent *Component, props gate.Snapshot) (*Component, Element) {
	t.Helper()
	c := rt.NewComponent(typ, parent, props)
	d := rt.Dispatcher()
	require.True(t, d.WillMount(c).OK())
	el, res := d.Render(c)
	require.True(t, res.OK(), "render: %v", res.Error())
	require.True(t, d.DidMount(c).OK())
	return c, el
}

// rerender runs an accepted update cycle with the given snapshots.
func rerender(t *testing.T, rt *Runtime, host *recordingHost, c *Component, props, state gate.Snapshot) Element {
	t.Helper()
	d := rt.Dispatcher()
	prevProps, prevState := c.Props(), c.State()
	require.True(t, d.WillUpdate(c, props, state).OK())
	host.props[c], host.state[c] = props, state
	el, res := d.Render(c)
	require.True(t, res.OK(), "render: %v", res.Error())
	require.True(t, d.DidUpdate(c, prevProps, prevState).OK())
	return el
}

func getter(name string) RenderFunc {
	return func(c *Component) (Element, error) {
		return c.Get(name), nil
	}
}
