package core

import (
	"github.com/go-drift/reactbind/pkg/errors"
	"github.com/go-drift/reactbind/pkg/gate"
)

// Extension observes the dispatcher and scheduler. Hooks run synchronously
// on the dispatching goroutine, in ascending Order.
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines execution order (lower = earlier)
	Order() int

	// OnPhaseStart is called before a lifecycle phase runs its callbacks.
	OnPhaseStart(c *Component, phase Phase)

	// OnPhaseEnd is called after a phase finishes, successful or not.
	OnPhaseEnd(c *Component, phase Phase, result Result)

	// OnCommit is called before a batched patch is handed to the host.
	OnCommit(c *Component, patch gate.Snapshot)

	// OnError is called once for every contained phase failure.
	OnError(err *errors.PhaseError)
}

// BaseExtension provides no-op implementations for Extension methods.
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) OnPhaseStart(c *Component, phase Phase) {}

func (e *BaseExtension) OnPhaseEnd(c *Component, phase Phase, result Result) {}

func (e *BaseExtension) OnCommit(c *Component, patch gate.Snapshot) {}

func (e *BaseExtension) OnError(err *errors.PhaseError) {}
