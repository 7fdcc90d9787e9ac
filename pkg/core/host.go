package core

import (
	"time"

	"github.com/go-drift/reactbind/pkg/gate"
)

// Element is whatever a render function produces. The engine never inspects
// it; it is handed back to the host unchanged.
type Element = any

// Host is the view layer the engine is bound to. The host owns the
// authoritative props and state snapshots of every component and decides
// when to run update cycles for committed patches.
type Host interface {
	// Commit delivers a batched state patch for c. The patch always carries
	// gate.ForceUpdateKey with a fresh timestamp.
	Commit(c *Component, patch gate.Snapshot)
	// Props returns the props the host currently holds for c.
	Props(c *Component) gate.Snapshot
	// State returns the state the host currently holds for c.
	State(c *Component) gate.Snapshot
}

// Clock provides the current time for sentinel stamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
