package ids

import "errors"

var (
	// ErrAllocationExhausted means no collision-free identifier could be produced
	ErrAllocationExhausted = errors.New("identifier allocation exhausted")

	// ErrCandidateTaken means a candidate identifier is already a record key
	ErrCandidateTaken = errors.New("candidate identifier already in use")
)

// StepStatus is the result of a best-effort step
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepSkipped   StepStatus = "skipped"
	StepFailed    StepStatus = "failed"
)

// StepOutcome records what happened in a step whose failure does not fail the caller
type StepOutcome struct {
	Step   string
	Status StepStatus
	Err    error
}
