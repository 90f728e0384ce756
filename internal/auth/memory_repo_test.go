// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/flickbox/flickbox/internal/auth"
)

// memoryRepo is an in-memory AccountRepository that enforces the same
// uniqueness rules as the accounts table.
type memoryRepo struct {
	mu       sync.Mutex
	byID     map[string]auth.Account
	emailIdx map[string]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byID: map[string]auth.Account{}, emailIdx: map[string]string{}}
}

func (r *memoryRepo) FindByID(_ context.Context, accountID string) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &a, nil
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	r.mu.Lock()
	id, ok := r.emailIdx[email]
	r.mu.Unlock()
	if !ok {
		return nil, auth.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *memoryRepo) Insert(_ context.Context, a *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.AccountID]; ok {
		return &auth.DuplicateError{Field: auth.FieldAccountID}
	}
	if _, ok := r.emailIdx[a.Email]; ok {
		return &auth.DuplicateError{Field: auth.FieldEmail}
	}
	a.CreatedAt = time.Now()
	r.byID[a.AccountID] = *a
	r.emailIdx[a.Email] = a.AccountID
	return nil
}

var _ auth.AccountRepository = (*memoryRepo)(nil)
