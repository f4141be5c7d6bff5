package models

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// User represents an account holder and the trips they belong to
type User struct {
	UserID           int64   `json:"user_id" dynamodbav:"user_id" validate:"required,gt=0"`
	Email            string  `json:"email" dynamodbav:"email" validate:"required,email"`
	PasswordHash     string  `json:"-" dynamodbav:"password"`
	AwaitingApproval []int64 `json:"awaiting_approval" dynamodbav:"awaiting_approval"`
	Approved         []int64 `json:"approved" dynamodbav:"approved"`
}

// NewUser creates a user with empty membership lists. The password is hashed with bcrypt.
func NewUser(id int64, email, password string) (*User, error) {
	user := &User{
		UserID:           id,
		Email:            NormalizeEmail(email),
		AwaitingApproval: []int64{},
		Approved:         []int64{},
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	return user, nil
}

// SetPassword replaces the stored password hash
func (u *User) SetPassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Validate validates the user data
func (u *User) Validate() error {
	if u.UserID <= CacheRecordID {
		return fmt.Errorf("user ID must be positive")
	}
	if strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	return nil
}

// MembershipOf returns the user's state for the given trip
func (u *User) MembershipOf(tripID int64) MembershipState {
	return membershipIn(tripID, u.AwaitingApproval, u.Approved)
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
