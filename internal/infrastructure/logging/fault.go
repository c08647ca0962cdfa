package logging

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrPanic wraps a recovered panic value returned by Guard.
var ErrPanic = errors.New("unhandled panic")

// IsInterrupt reports whether err stems from the root context being
// cancelled by SIGINT/SIGTERM. Interrupts are a clean exit, not a fault.
func IsInterrupt(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Guard is the process-wide fault boundary around the main loop.
//
// It runs fn and:
//   - recovers a panic, logs it at CRITICAL with the stack and returns it wrapped in ErrPanic
//   - logs any other returned error at CRITICAL
//   - passes interrupts through without logging them as faults
//
// Parameters:
//   - fn: The work to guard, normally the poll loop
//
// Returns:
//   - error: nil, the interrupt, or the fault that ended fn
func (l *Logger) Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.Critical("unhandled exception",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	err = fn()
	if err != nil && !IsInterrupt(err) {
		l.Critical("unhandled exception", "error", err)
	}
	return err
}
