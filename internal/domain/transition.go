package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by snapshot source errors for jobs the worker does not know.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is wrapped by every rejected status transition.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError reports a status change the state machine refused.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// jobTransitions is the allowed-transition table. Terminal success and
// cancellation states have no outgoing edges; FAILED may be retried.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusDraft:     {JobStatusScheduled, JobStatusRunning, JobStatusCancelled},
	JobStatusScheduled: {JobStatusRunning, JobStatusCancelled},
	JobStatusRunning: {
		JobStatusPaused,
		JobStatusCompleted,
		JobStatusCompletedWithErrors,
		JobStatusFailed,
		JobStatusCancelled,
	},
	JobStatusPaused: {JobStatusRunning, JobStatusCancelled, JobStatusFailed},
	JobStatusFailed: {JobStatusRunning, JobStatusCancelled},
}

var folderTransitions = map[FolderStatus][]FolderStatus{
	FolderStatusPending:    {FolderStatusInProgress, FolderStatusCompleted, FolderStatusFailed},
	FolderStatusInProgress: {FolderStatusCompleted, FolderStatusFailed},
	FolderStatusFailed:     {FolderStatusInProgress, FolderStatusCompleted},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, s := range jobTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when from -> to is not allowed.
// A same-status "transition" is not a transition and is always accepted.
func ValidateTransition(from, to JobStatus) error {
	if from == to || CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: string(from), To: string(to)}
}

// ValidateFolderTransition is the folder-level counterpart of ValidateTransition.
func ValidateFolderTransition(from, to FolderStatus) error {
	if from == to {
		return nil
	}
	for _, s := range folderTransitions[from] {
		if s == to {
			return nil
		}
	}
	return &TransitionError{From: string(from), To: string(to)}
}
