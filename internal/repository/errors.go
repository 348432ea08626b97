// Package repository wraps every database query the app runs
package repository

import "errors"

var (
	ErrEmailTaken     = errors.New("this email is already registered")
	ErrUserNotFound   = errors.New("user not found")
	ErrReviewExists   = errors.New("you already left a review")
	ErrReviewNotFound = errors.New("review not found")
	ErrResendCooldown = errors.New("please wait before requesting another code")
	ErrResendBlocked  = errors.New("too many codes requested today")
)
