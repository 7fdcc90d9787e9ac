// Package core provides the reactive state engine and lifecycle dispatcher
// for binding components to a virtual-DOM host.
//
// # Core Types
//
// A Type is an immutable component definition: a render function plus
// ordered callback chains per lifecycle phase. A Component is one live
// instance of a Type, owning a Store of named Cells.
//
// A Runtime owns everything else: the RenderingContext stack that decides
// which component a read is attributed to, the Registry of observer edges,
// the Scheduler that batches commits, and the Dispatcher the host calls
// into for every lifecycle phase.
//
// # State
//
// Cells are declared per type or per instance and read during render:
//
//	counter := core.Define("Counter",
//	    core.DefineState(core.Declaration{
//	        Names:  []string{"count"},
//	        Shared: core.Literal(0),
//	    }),
//	    core.WithRender(func(c *core.Component) (core.Element, error) {
//	        return fmt.Sprintf("%d", core.Value[int](c, "count")), nil
//	    }),
//	)
//
// Reading a cell while rendering subscribes the rendering component.
// Writing it schedules a commit carrying the new value and a fresh
// gate.ForceUpdateKey stamp for every subscriber. Runtime.Flush hands the
// batched patches to the Host, shallowest component first.
//
// # Lifecycle
//
// The host drives each component through
//
//	WillMount -> Render -> DidMount
//	WillReceiveProps -> ShouldComponentUpdate -> WillUpdate -> Render -> DidUpdate
//	WillUnmount
//
// Callback failures and panics never escape the dispatcher. Each is
// reported once through errors.Report and returned as a Result.
//
// # Threading
//
// A Runtime and everything it owns must be used from a single goroutine.
package core
