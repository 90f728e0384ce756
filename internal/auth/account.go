// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package auth

import (
	"context"
	"time"
)

// Field names used by validation, conflicts and the HTTP surface.
const (
	FieldAccountID   = "accountId"
	FieldDisplayName = "displayName"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldPassword    = "password"
)

// fieldOrder is the presentation order for field errors.
var fieldOrder = []string{FieldAccountID, FieldDisplayName, FieldEmail, FieldPhone, FieldPassword}

// Account is a registered user. Accounts are created once and never updated.
type Account struct {
	AccountID    string    `json:"accountId"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity is what a successful register or login hands back to the caller.
type Identity struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

func (a *Account) identity() Identity {
	return Identity{AccountID: a.AccountID, DisplayName: a.DisplayName}
}

// RegisterInput carries the raw registration fields as submitted.
type RegisterInput struct {
	AccountID   string
	DisplayName string
	Email       string
	Phone       string
	Password    string
}

func (in RegisterInput) fields() map[string]string {
	return map[string]string{
		FieldAccountID:   in.AccountID,
		FieldDisplayName: in.DisplayName,
		FieldEmail:       in.Email,
		FieldPhone:       in.Phone,
		FieldPassword:    in.Password,
	}
}

// AccountRepository is the credential store.
type AccountRepository interface {
	// FindByID returns the account with the given id.
	// Returns ErrNotFound if no such account exists.
	FindByID(ctx context.Context, accountID string) (*Account, error)

	// FindByEmail returns the account with the given normalised email.
	// Returns ErrNotFound if no account uses it.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Insert stores a new account and sets its CreatedAt.
	// A unique-constraint violation is reported as a *DuplicateError.
	Insert(ctx context.Context, account *Account) error
}
