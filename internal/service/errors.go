// Copyright (c) 2025-2026 IEEE Student Branch UCSC
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the portal's business logic: the flag challenge
// gate, team registration, admin authentication, and moderation.
package service

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected input field. The message is safe to
// show to the end user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ConflictError reports a uniqueness violation on the named field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s", e.Field)
}

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// ErrInvalidCredentials is returned for any failed admin login. Callers
// must not reveal which part of the credential pair was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AsValidation extracts a ValidationError from err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// AsConflict extracts a ConflictError from err, if any.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	ok := errors.As(err, &ce)
	return ce, ok
}

// AsNotFound extracts a NotFoundError from err, if any.
func AsNotFound(err error) (*NotFoundError, bool) {
	var ne *NotFoundError
	ok := errors.As(err, &ne)
	return ne, ok
}
