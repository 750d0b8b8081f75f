package domain

import (
	"errors"
	"fmt"
)

// ErrNoCandidates means the candidate pool came back empty for the current
// filter set. Callers relax filters and retry once before showing an
// empty state.
var ErrNoCandidates = errors.New("no candidates available")

// ErrAssignmentConflict is internal to the experiment manager: a concurrent
// first assignment won the insert race. Resolved by re-reading, never
// surfaced to callers.
var ErrAssignmentConflict = errors.New("assignment already exists")

// ErrExperimentNotFound is returned for lookups of unknown experiment ids.
var ErrExperimentNotFound = errors.New("experiment not found")

// ErrExperimentNotActive rejects variant assignment against an experiment
// that is not currently running. Mapped to a conflict at the API layer.
var ErrExperimentNotActive = errors.New("experiment is not active")

// CandidateFetchTimeoutError wraps a store deadline on the candidate query.
// The request fails fast instead of degrading to stale data; callers may
// retry once with a smaller pool.
type CandidateFetchTimeoutError struct {
	Err error
}

func (e *CandidateFetchTimeoutError) Error() string {
	return fmt.Sprintf("candidate fetch timed out: %v", e.Err)
}

func (e *CandidateFetchTimeoutError) Unwrap() error { return e.Err }

// InvalidExperimentConfigError rejects a malformed experiment definition at
// creation time. Runtime assignment never sees an invalid config.
type InvalidExperimentConfigError struct {
	Reason string
}

func (e *InvalidExperimentConfigError) Error() string {
	return fmt.Sprintf("invalid experiment config: %s", e.Reason)
}

// InvalidTransitionError rejects an experiment lifecycle move the state
// machine does not allow.
type InvalidTransitionError struct {
	From, To string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid experiment transition: %s -> %s", e.From, e.To)
}
