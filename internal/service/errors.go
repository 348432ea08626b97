// Package service holds the business logic sitting between the HTTP
// handlers and the repositories
package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyVerified    = errors.New("this email is already verified")
	ErrAccountExists      = errors.New("an account with this email already exists, log in with your password first")
	ErrUnknownProvider    = errors.New("unknown or unconfigured OAuth provider")
	ErrInvalidState       = errors.New("invalid or expired state")
	ErrMailQueueFull      = errors.New("mail queue full")
	ErrMailQueueClosed    = errors.New("mail queue closed")
)

// ValidationError marks input the client has to fix
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError is returned when an OAuth provider answers with anything
// but success
type UpstreamError struct {
	Provider string
	Step     string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s request failed: %s", e.Provider, e.Step, e.Body)
	}

	return fmt.Sprintf("%s %s request failed with status %d", e.Provider, e.Step, e.Status)
}
