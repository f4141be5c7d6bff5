package membership

import (
	"errors"
	"fmt"

	"trip-planner-api/internal/repositories"
)

var (
	// ErrMemberNotFound means the value to remove is not in the expected list
	ErrMemberNotFound = errors.New("member not found")

	// ErrDuplicateApplication means the user already applied to or belongs to the trip
	ErrDuplicateApplication = errors.New("duplicate application")

	// ErrAlreadyApproved means the approval append found the user already approved
	ErrAlreadyApproved = errors.New("user already approved")
)

// MemberNotFoundError names the list a removal target was missing from
type MemberNotFoundError struct {
	Ref   repositories.ListRef
	Value int64
	Err   error
}

func (e *MemberNotFoundError) Error() string {
	return fmt.Sprintf("%d not found in %s", e.Value, e.Ref)
}

// Unwrap exposes ErrMemberNotFound and the store error
func (e *MemberNotFoundError) Unwrap() []error {
	return []error{ErrMemberNotFound, e.Err}
}
