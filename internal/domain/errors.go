package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrAlreadyConverted      = errors.New("attribution click already converted")
	ErrNotAttributable       = errors.New("payment is not attributable to a referrer")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrSignatureTimeout      = errors.New("webhook signature verification timed out")
	ErrStaleStats            = errors.New("member stats changed since snapshot")
	ErrInvalidTransition     = errors.New("commission status transition not allowed")
	ErrDuplicateReferralCode = errors.New("referral code already taken")
)

// ValidationError описывает отклонённый ввод. errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError - отсутствующая сущность. errors.Is(err, ErrNotFound) == true.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}
