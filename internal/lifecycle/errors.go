package lifecycle

import (
	"context"
	"errors"

	"github.com/zpdzap/berth/internal/compose"
)

var (
	// ErrSingleService is returned by commands that act on exactly one service.
	ErrSingleService = errors.New("this command only takes one service as an argument")
	// ErrNoContainers is returned by Shell when the service has nothing running.
	ErrNoContainers = errors.New("no containers running")
	// ErrCancelled is returned when the user backs out of a prompt. It is a
	// normal exit, not a failure.
	ErrCancelled = errors.New("cancelled")
)

// fatal reports errors that make continuing to the next service pointless:
// the tool is missing or the run was interrupted.
func fatal(err error) bool {
	return errors.Is(err, compose.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
