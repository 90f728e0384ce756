// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested account does not exist.
var ErrNotFound = errors.New("account not found")

// ErrStoreUnavailable is returned when the credential store cannot be reached.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// ErrDuplicate matches any *DuplicateError via errors.Is.
var ErrDuplicate = errors.New("duplicate account")

// DuplicateError reports a unique-constraint violation on Field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

// Is reports whether target is ErrDuplicate.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// Kind classifies a failed auth operation.
type Kind int

// Outcome kinds.
const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindStoreUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindStoreUnavailable:
		return "store_unavailable"
	default:
		return "internal"
	}
}

// User-facing messages.
const (
	msgUnauthorized     = "Invalid User ID or password."
	msgEmailTaken       = "An account with that email address already exists. Try signing in instead."
	msgInternal         = "An unexpected server error occurred. Please try again later."
	msgStoreUnavailable = "Service temporarily unavailable. Please try again later."
)

// FieldError is a single field failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the outcome of a failed Register or Login.
type Error struct {
	Kind Kind
	// Message is safe to show to the end user.
	Message string
	// Fields lists the failing fields in presentation order. Set for
	// validation and conflict outcomes.
	Fields []FieldError
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying store or hashing error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the Kind of err. Errors that are not *Error are KindInternal.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInternal
}

func validationFailed(errs ValidationErrors) *Error {
	fields := errs.Ordered()
	return &Error{Kind: KindValidation, Message: fields[0].Message, Fields: fields}
}

func conflict(field, accountID string) *Error {
	msg := msgEmailTaken
	if field == FieldAccountID {
		msg = fmt.Sprintf("User ID %q is already taken. Please choose a different one.", accountID)
	}
	return &Error{
		Kind:    KindConflict,
		Message: msg,
		Fields:  []FieldError{{Field: field, Message: msg}},
	}
}

func unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Message: msgUnauthorized}
}

func internalFailure(cause error) *Error {
	if errors.Is(cause, ErrStoreUnavailable) {
		return &Error{Kind: KindStoreUnavailable, Message: msgStoreUnavailable, cause: cause}
	}
	return &Error{Kind: KindInternal, Message: msgInternal, cause: cause}
}
