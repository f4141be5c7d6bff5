package models

import (
	"strconv"
	"strings"
	"unicode"
)

// Identifier constants
const (
	// CacheRecordID is the users-table key holding the pre-generated ID cache.
	// No real user is ever given this ID.
	CacheRecordID int64 = 0

	// UserIDMin and UserIDMax bound the range user IDs are drawn from
	UserIDMin int64 = 1
	UserIDMax int64 = 100000000000

	// TripIDSpread is the multiplier applied to the unix time when building trip IDs
	TripIDSpread int64 = 10000
)

// MembershipState is the state of a (user, trip) pair
type MembershipState string

const (
	MembershipNone     MembershipState = "none"
	MembershipAwaiting MembershipState = "awaiting_approval"
	MembershipApproved MembershipState = "approved"
)

// MembershipList names one of the two membership lists carried by users and trips
type MembershipList string

const (
	ListAwaitingApproval MembershipList = "awaiting_approval"
	ListApproved         MembershipList = "approved"
)

// ListFor returns the list attribute matching approved
func ListFor(approved bool) MembershipList {
	if approved {
		return ListApproved
	}
	return ListAwaitingApproval
}

func membershipIn(id int64, awaiting, approved []int64) MembershipState {
	if IndexOf(approved, id) >= 0 {
		return MembershipApproved
	}
	if IndexOf(awaiting, id) >= 0 {
		return MembershipAwaiting
	}
	return MembershipNone
}

// IndexOf returns the position of value in list, or -1
func IndexOf(list []int64, value int64) int {
	for i, v := range list {
		if v == value {
			return i
		}
	}
	return -1
}

// ParseID parses an identifier held as a decimal string
func ParseID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// TitleCase capitalizes the first letter of every word and lower-cases the rest.
// Runs of whitespace collapse to a single space.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
