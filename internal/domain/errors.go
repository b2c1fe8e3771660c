package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidPlan      = errors.New("invalid plan")
	ErrEmptyCompletion  = errors.New("completion returned no choices")
	ErrCheckoutDisabled = errors.New("checkout not configured")
)
