package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNoMove        = errors.New("engine returned no move")
	ErrTimeout       = errors.New("engine timed out")
	ErrProtocol      = errors.New("unexpected engine output")
	ErrIllegalMove   = errors.New("engine returned an illegal move")
	ErrNotStarted    = errors.New("engine not started")
	ErrProcessExited = errors.New("engine process exited")
	ErrNoEngine      = errors.New("no engine available")
)

// OpError tags an engine failure with the operation that failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return fmt.Sprintf("engine %s: %v", e.Op, e.Err) }

// Cause lets errors.Cause see through the operation tag.
func (e *OpError) Cause() error { return errors.Cause(e.Err) }

func (e *OpError) Unwrap() error { return e.Err }
