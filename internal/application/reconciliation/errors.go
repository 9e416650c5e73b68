package reconciliation

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteFetch wraps a failed primary listing from the ERP
	ErrRemoteFetch = errors.New("reconciliation: remote fetch failed")
	// ErrSyncInProgress is returned when a run is requested while another one is active
	ErrSyncInProgress = errors.New("reconciliation: a sync run is already in progress")
	// ErrInvalidConfig is returned when the engine is built without a required collaborator
	ErrInvalidConfig = errors.New("reconciliation: invalid engine configuration")
)

// StageError reports the stage at which a run stopped
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
