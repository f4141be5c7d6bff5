package models

import (
	"fmt"
	"strings"
)

// Trip represents a planned trip with an admin and two membership lists
type Trip struct {
	TripID           int64   `json:"trip_id" dynamodbav:"trip_id"`
	AdminID          int64   `json:"admin_id" dynamodbav:"admin_id"`
	StartDate        int64   `json:"start_date" dynamodbav:"start_date"`
	EndDate          int64   `json:"end_date" dynamodbav:"end_date"`
	Location         string  `json:"location" dynamodbav:"location"`
	Title            string  `json:"title" dynamodbav:"title"`
	Description      string  `json:"description" dynamodbav:"description"`
	AwaitingApproval []int64 `json:"awaiting_approval" dynamodbav:"awaiting_approval"`
	Approved         []int64 `json:"approved" dynamodbav:"approved"`
}

// NewTrip creates a trip with normalized location and title and empty membership lists
func NewTrip(id, adminID, startDate, endDate int64, location, title, description string) *Trip {
	return &Trip{
		TripID:           id,
		AdminID:          adminID,
		StartDate:        startDate,
		EndDate:          endDate,
		Location:         TitleCase(location),
		Title:            TitleCase(title),
		Description:      strings.TrimSpace(description),
		AwaitingApproval: []int64{},
		Approved:         []int64{},
	}
}

// Validate validates the trip data
func (t *Trip) Validate() error {
	if t.TripID <= 0 {
		return fmt.Errorf("trip ID must be positive")
	}
	if t.AdminID <= 0 {
		return fmt.Errorf("admin ID must be positive")
	}
	if t.EndDate <= t.StartDate {
		return fmt.Errorf("end date must be after start date")
	}
	if t.Location == "" {
		return fmt.Errorf("location is required")
	}
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// MembershipOf returns the given user's state on this trip
func (t *Trip) MembershipOf(userID int64) MembershipState {
	return membershipIn(userID, t.AwaitingApproval, t.Approved)
}

// TripMembership pairs a trip with one member's state on it
type TripMembership struct {
	Trip   *Trip           `json:"trip"`
	Status MembershipState `json:"status"`
}
