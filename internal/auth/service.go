// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/flickbox/flickbox/pkg/errutil"
)

// Operation names reported to the OutcomeRecorder.
const (
	OperationRegister = "register"
	OperationLogin    = "login"
)

// OutcomeRecorder receives one call per finished operation. outcome is
// "success" or a Kind string.
type OutcomeRecorder interface {
	RecordAuthOutcome(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthOutcome(string, string) {}

// dummyPassword is hashed once to produce the digest verified for unknown
// accounts, so an unknown id costs the same as a wrong password.
const dummyPassword = "Flickbox-timing-equalisation-0"

// Service registers and authenticates accounts.
type Service struct {
	accounts AccountRepository
	hasher   PasswordHasher
	logger   *slog.Logger
	recorder OutcomeRecorder

	registration *Validator
	login        *Validator

	dummyOnce   sync.Once
	dummyDigest string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for failures at the service boundary.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOutcomeRecorder sets the metrics sink for operation outcomes.
func WithOutcomeRecorder(r OutcomeRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates a Service.
func NewService(accounts AccountRepository, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	s := &Service{
		accounts:     accounts,
		hasher:       hasher,
		logger:       slog.Default(),
		recorder:     nopRecorder{},
		registration: NewRegistrationValidator(),
		login:        NewLoginValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register validates in, checks for an existing account id or email, hashes
// the password and stores the account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Identity, error) {
	id, err := s.register(ctx, in)
	s.record(OperationRegister, err)
	return id, err
}

func (s *Service) register(ctx context.Context, in RegisterInput) (Identity, error) {
	raw := in.fields()
	if errs := s.registration.Validate(raw); len(errs) > 0 {
		return Identity{}, validationFailed(errs)
	}
	fields := s.registration.Normalize(raw)

	account := &Account{
		AccountID:   fields[FieldAccountID],
		DisplayName: fields[FieldDisplayName],
		Email:       fields[FieldEmail],
		Phone:       fields[FieldPhone],
	}

	if _, err := s.accounts.FindByID(ctx, account.AccountID); err == nil {
		return Identity{}, conflict(FieldAccountID, account.AccountID)
	} else if !errors.Is(err, ErrNotFound) {
		return Identity{}, s.fail(ctx, OperationRegister, "find account by id", err)
	}

	if _, err := s.accounts.FindByEmail(ctx, account.Email); err == nil {
		return Identity{}, conflict(FieldEmail, account.AccountID)
	} else if !errors.Is(err, ErrNotFound) {
		return Identity{}, s.fail(ctx, OperationRegister, "find account by email", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Identity{}, s.fail(ctx, OperationRegister, "hash password", err)
	}
	account.PasswordHash = digest

	// The unique constraints settle races between the checks above and this insert.
	if err := s.accounts.Insert(ctx, account); err != nil {
		var dup *DuplicateError
		if errors.As(err, &dup) {
			return Identity{}, conflict(dup.Field, account.AccountID)
		}
		return Identity{}, s.fail(ctx, OperationRegister, "insert account", err)
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.AccountID)
	return account.identity(), nil
}

// Login checks accountID and password. Unknown accounts and wrong passwords
// produce the same Unauthorized outcome.
func (s *Service) Login(ctx context.Context, accountID, password string) (Identity, error) {
	id, err := s.authenticate(ctx, accountID, password)
	s.record(OperationLogin, err)
	return id, err
}

func (s *Service) authenticate(ctx context.Context, accountID, password string) (Identity, error) {
	raw := map[string]string{FieldAccountID: accountID, FieldPassword: password}
	if errs := s.login.Validate(raw); len(errs) > 0 {
		return Identity{}, validationFailed(errs)
	}
	accountID = s.login.Normalize(raw)[FieldAccountID]

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Identity{}, s.fail(ctx, OperationLogin, "find account by id", err)
		}
		s.hasher.Verify(password, s.dummy())
		return Identity{}, unauthorized()
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return Identity{}, unauthorized()
	}

	return account.identity(), nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn("failed to prepare dummy digest", "error", err)
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

// fail logs the detailed cause and returns the generic outcome for it.
func (s *Service) fail(ctx context.Context, operation, step string, err error) *Error {
	errutil.LogErrorContext(ctx, s.logger, operation+" failed", err, "operation", operation, "step", step)
	return internalFailure(err)
}

func (s *Service) record(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	s.recorder.RecordAuthOutcome(operation, outcome)
}
