package report

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for a malformed scan summary before any
	// layout work starts.
	ErrInvalidInput = errors.New("invalid report input")

	// ErrGenerationFailure is the single user-facing failure for anything
	// that goes wrong during layout or finalization.
	ErrGenerationFailure = errors.New("report generation failed, try again")
)

// ChartCaptureError reports that a chart slot produced no usable bitmap.
// It is never returned from Generate; the slot falls back to a text list.
type ChartCaptureError struct {
	Slot ChartSlot
	Err  error
}

func (e *ChartCaptureError) Error() string {
	return fmt.Sprintf("chart capture failed for %q: %v", e.Slot.Title(), e.Err)
}

func (e *ChartCaptureError) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
