// Package membership moves users between the awaiting and approved lists of trips.
package membership

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// Editor removes single values from membership lists
type Editor struct {
	store  repositories.MembershipStore
	logger *logrus.Logger
}

// NewEditor creates an Editor
func NewEditor(store repositories.MembershipStore, logger *logrus.Logger) *Editor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Editor{store: store, logger: logger}
}

// RemoveMember removes value from the approved or awaiting list of the record
// keyed by lookupID in the users table (keyIsUser) or the trips table.
// A missing value or record yields a *MemberNotFoundError.
func (e *Editor) RemoveMember(ctx context.Context, keyIsUser bool, lookupID, value int64, fromApproved bool) error {
	ref := repositories.ListRef{
		Entity: repositories.EntityTrip,
		ID:     lookupID,
		List:   models.ListFor(fromApproved),
	}
	if keyIsUser {
		ref.Entity = repositories.EntityUser
	}

	err := e.store.RemoveFromList(ctx, ref, value)
	if err == nil {
		e.logger.WithFields(logrus.Fields{"list": ref.String(), "value": value}).Debug("Removed member")
		return nil
	}
	if repositories.IsValueAbsent(err) || repositories.IsNotFound(err) {
		return &MemberNotFoundError{Ref: ref, Value: value, Err: err}
	}
	return fmt.Errorf("remove %d from %s: %w", value, ref, err)
}
