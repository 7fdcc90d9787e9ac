package core

import (
	"fmt"

	"github.com/go-drift/reactbind/pkg/errors"
)

// Frame is one entry of the rendering context stack.
type Frame struct {
	// Owner is the component the frame is bound to.
	Owner *Component
	// Collecting is true for the dependency-collecting render pass. Reads
	// made in a collecting frame become observer edges.
	Collecting bool
}

// RenderingContext is the stack of active component scopes. The innermost
// frame decides which component a cell read is attributed to.
type RenderingContext struct {
	stack []Frame
}

// Current returns the innermost frame.
func (rc *RenderingContext) Current() (Frame, bool) {
	if len(rc.stack) == 0 {
		return Frame{}, false
	}
	return rc.stack[len(rc.stack)-1], true
}

// Owner returns the component of the innermost frame, or nil.
func (rc *RenderingContext) Owner() *Component {
	f, _ := rc.Current()
	return f.Owner
}

// Collecting reports whether the innermost frame collects dependencies.
func (rc *RenderingContext) Collecting() bool {
	f, _ := rc.Current()
	return f.Collecting
}

// Depth returns the number of active frames.
func (rc *RenderingContext) Depth() int {
	return len(rc.stack)
}

func (rc *RenderingContext) push(f Frame) {
	rc.stack = append(rc.stack, f)
}

func (rc *RenderingContext) pop() {
	rc.stack[len(rc.stack)-1] = Frame{}
	rc.stack = rc.stack[:len(rc.stack)-1]
}

func (rc *RenderingContext) reset() {
	for _, f := range rc.stack {
		if f.Owner != nil {
			f.Owner.scoped = false
		}
	}
	rc.stack = nil
}

// RunScoped runs body with owner bound as the current component. The frame
// is popped on every exit path, including panics.
//
// A component can hold at most one frame at a time. Entering a second scope
// for an owner that already has one returns errors.ErrReentrantRender
// without running body.
func RunScoped[T any](rc *RenderingContext, owner *Component, collecting bool, body func() (T, error)) (T, error) {
	var zero T
	if owner != nil {
		if owner.scoped {
			return zero, fmt.Errorf("%s: %w", owner, errors.ErrReentrantRender)
		}
		owner.scoped = true
		defer func() { owner.scoped = false }()
	}

	rc.push(Frame{Owner: owner, Collecting: collecting})
	defer rc.pop()

	return body()
}
