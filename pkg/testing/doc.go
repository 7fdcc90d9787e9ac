// Package testing provides an in-memory host for testing components.
//
// # Quick Start
//
// Create a harness, mount a component, and make assertions:
//
//	func TestCounter(t *testing.T) {
//	    h := rbtest.NewHarnessWithT(t)
//	    c := h.Mount(counterType, gate.Snapshot{"label": "clicks"})
//
//	    c.Set("count", 1)
//	    h.Pump()
//
//	    if h.Output(c) != "clicks: 1" {
//	        t.Errorf("unexpected output %v", h.Output(c))
//	    }
//	}
//
// The harness acts as the Host: it keeps props and state per component,
// applies committed patches through ShouldComponentUpdate, WillUpdate,
// Render and DidUpdate, and records every contained error.
//
// # Snapshot Testing
//
// Capture and compare the mounted component tree:
//
//	snapshot := h.CaptureSnapshot()
//	snapshot.MatchesFile(t, "testdata/counter.snapshot.json")
//
// Update snapshots with:
//
//	REACTBIND_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Time
//
// Sentinel stamps come from a fake clock:
//
//	h.Clock().Advance(time.Second)
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import rbtest "github.com/go-drift/reactbind/pkg/testing"
package testing
