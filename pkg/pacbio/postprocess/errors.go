package postprocess

import (
	"errors"
	"fmt"

	"github.com/quatton/qseq/pkg/qerr"
)

// ErrClaimed means another worker holds the run.
var ErrClaimed = errors.New("run is claimed by another worker")

// Error reports the run that failed and the last stage it completed.
type Error struct {
	RunName string
	Stage   Stage
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("post-processing %s failed after %s: %v", e.RunName, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(runName string, stage Stage, err error) error {
	return qerr.New(qerr.CodePostProcessing, &Error{RunName: runName, Stage: stage, Err: err})
}

// StageOf returns the stage a failed run last completed.
func StageOf(err error) (Stage, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage, true
	}
	return StageFailed, false
}
