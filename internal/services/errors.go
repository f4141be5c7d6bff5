package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a request fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailTaken is returned when registering an email that already has an account
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when a password does not match
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
