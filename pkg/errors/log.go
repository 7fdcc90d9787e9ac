package errors

import (
	"fmt"
	"io"
	"os"

	"github.com/go-drift/reactbind/internal/log"
)

// LogHandler is an ErrorHandler that writes errors to stderr and the
// structured log.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
	// Out overrides the destination; nil means os.Stderr.
	Out io.Writer
}

func (h *LogHandler) out() io.Writer {
	if h.Out != nil {
		return h.Out
	}
	return os.Stderr
}

// HandlePhaseError logs a PhaseError.
func (h *LogHandler) HandlePhaseError(err *PhaseError) {
	if err == nil {
		return
	}
	log.Error(log.CatLifecycle, "phase failed",
		"phase", err.Phase,
		"type", err.Type,
		"component", err.Component,
		"callback", err.Callback,
		"kind", err.Kind,
		"error", err.Error(),
	)
	fmt.Fprintf(h.out(), "[reactbind error] %s\n", err.Error())
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(h.out(), "Stack trace:\n%s\n", err.StackTrace)
	}
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	log.Error(log.CatLifecycle, "panic recovered", "op", err.Op, "value", err.Value)
	if err.Op != "" {
		fmt.Fprintf(h.out(), "[reactbind panic] %s: %v\n", err.Op, err.Value)
	} else {
		fmt.Fprintf(h.out(), "[reactbind panic] %v\n", err.Value)
	}
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(h.out(), "Stack trace:\n%s\n", err.StackTrace)
	}
}
