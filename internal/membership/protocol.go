package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"trip-planner-api/internal/models"
	"trip-planner-api/internal/repositories"
)

// Protocol drives a (user, trip) pair through NONE, AWAITING and APPROVED.
// Appends go through one all-or-nothing transaction per transition; removals
// are independent single-list edits.
type Protocol struct {
	store  repositories.MembershipStore
	editor *Editor
	logger *logrus.Logger
}

// NewProtocol creates a Protocol
func NewProtocol(store repositories.MembershipStore, logger *logrus.Logger) *Protocol {
	if logger == nil {
		logger = logrus.New()
	}
	return &Protocol{
		store:  store,
		editor: NewEditor(store, logger),
		logger: logger,
	}
}

// Editor returns the list editor used by the protocol
func (p *Protocol) Editor() *Editor {
	return p.editor
}

func refs(userID, tripID int64, list models.MembershipList) []repositories.ListAppend {
	return []repositories.ListAppend{
		{Ref: repositories.ListRef{Entity: repositories.EntityUser, ID: userID, List: list}, Value: tripID},
		{Ref: repositories.ListRef{Entity: repositories.EntityTrip, ID: tripID, List: list}, Value: userID},
	}
}

// Apply moves the pair from NONE to AWAITING
func (p *Protocol) Apply(ctx context.Context, userID, tripID int64) error {
	err := p.store.AppendAll(ctx, refs(userID, tripID, models.ListAwaitingApproval)...)
	if repositories.IsConditionFailed(err) {
		return fmt.Errorf("%w: user %d, trip %d", ErrDuplicateApplication, userID, tripID)
	}
	if err != nil {
		return fmt.Errorf("apply user %d to trip %d: %w", userID, tripID, err)
	}

	p.logger.WithFields(logrus.Fields{"user_id": userID, "trip_id": tripID}).Info("User applied to trip")
	return nil
}

// Decide resolves an AWAITING pair: approved moves it to APPROVED, otherwise to NONE.
// The pair must be awaiting on both sides or a *MemberNotFoundError is returned.
func (p *Protocol) Decide(ctx context.Context, tripID, userID int64, approved bool) error {
	if err := p.editor.RemoveMember(ctx, false, tripID, userID, false); err != nil {
		return err
	}
	if err := p.editor.RemoveMember(ctx, true, userID, tripID, false); err != nil {
		return err
	}

	fields := logrus.Fields{"user_id": userID, "trip_id": tripID, "approved": approved}
	if !approved {
		p.logger.WithFields(fields).Info("Application rejected")
		return nil
	}

	err := p.store.AppendAll(ctx, refs(userID, tripID, models.ListApproved)...)
	if repositories.IsConditionFailed(err) {
		return fmt.Errorf("%w: user %d, trip %d", ErrAlreadyApproved, userID, tripID)
	}
	if err != nil {
		return fmt.Errorf("approve user %d on trip %d: %w", userID, tripID, err)
	}

	p.logger.WithFields(fields).Info("Application approved")
	return nil
}

// Withdraw returns the pair to NONE from any state. It tries all four
// removals and never fails; the report says what each one did.
func (p *Protocol) Withdraw(ctx context.Context, userID, tripID int64) *Report {
	report := &Report{}
	for _, fromApproved := range []bool{false, true} {
		report.add(p.editor.RemoveMember(ctx, false, tripID, userID, fromApproved), tripID, userID, repositories.EntityTrip, fromApproved)
		report.add(p.editor.RemoveMember(ctx, true, userID, tripID, fromApproved), userID, tripID, repositories.EntityUser, fromApproved)
	}

	p.log(report, logrus.Fields{"user_id": userID, "trip_id": tripID}, "User withdrawn from trip")
	return report
}

// Dissolve removes a trip from the lists of every user the trip lists as a member
func (p *Protocol) Dissolve(ctx context.Context, trip *models.Trip) *Report {
	report := &Report{}
	for _, userID := range trip.AwaitingApproval {
		report.add(p.editor.RemoveMember(ctx, true, userID, trip.TripID, false), userID, trip.TripID, repositories.EntityUser, false)
	}
	for _, userID := range trip.Approved {
		report.add(p.editor.RemoveMember(ctx, true, userID, trip.TripID, true), userID, trip.TripID, repositories.EntityUser, true)
	}

	p.log(report, logrus.Fields{"trip_id": trip.TripID}, "Trip memberships dissolved")
	return report
}

func (p *Protocol) log(report *Report, fields logrus.Fields, msg string) {
	fields["removed"] = report.Removed()
	entry := p.logger.WithFields(fields)
	if err := report.Err(); err != nil {
		entry.WithError(err).Warn(msg + " with failures")
		return
	}
	entry.Info(msg)
}

// RemovalStatus is the outcome of one list removal
type RemovalStatus string

const (
	RemovalRemoved    RemovalStatus = "removed"
	RemovalNotPresent RemovalStatus = "not_present"
	RemovalFailed     RemovalStatus = "failed"
)

// RemovalResult is one removal within a multi-step operation
type RemovalResult struct {
	Ref    repositories.ListRef
	Value  int64
	Status RemovalStatus
	Err    error
}

// Report collects removal results
type Report struct {
	Results []RemovalResult
}

func (r *Report) add(err error, lookupID, value int64, entity repositories.Entity, fromApproved bool) {
	result := RemovalResult{
		Ref:   repositories.ListRef{Entity: entity, ID: lookupID, List: models.ListFor(fromApproved)},
		Value: value,
	}
	switch {
	case err == nil:
		result.Status = RemovalRemoved
	case errors.Is(err, ErrMemberNotFound):
		result.Status = RemovalNotPresent
	default:
		result.Status = RemovalFailed
		result.Err = err
	}
	r.Results = append(r.Results, result)
}

// Removed counts the removals that took effect
func (r *Report) Removed() int {
	n := 0
	for _, result := range r.Results {
		if result.Status == RemovalRemoved {
			n++
		}
	}
	return n
}

// Err joins the errors of failed removals. Values that were simply not present are not errors.
func (r *Report) Err() error {
	var errs []error
	for _, result := range r.Results {
		if result.Status == RemovalFailed {
			errs = append(errs, result.Err)
		}
	}
	return errors.Join(errs...)
}
