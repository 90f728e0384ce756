// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

// Package postgres implements the credential store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/flickbox/flickbox/internal/auth"
)

// constraintEmail is the unique constraint on accounts.email. Any other
// unique violation on the table is the primary key.
const constraintEmail = "accounts_email_key"

// Querier is the subset of *pgxpool.Pool used by the repository.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db           Querier
	queryTimeout time.Duration
}

// NewAccountRepository creates a new AccountRepository. Each call runs under
// queryTimeout, which covers waiting for a pooled connection. Zero disables it.
func NewAccountRepository(db Querier, queryTimeout time.Duration) *AccountRepository {
	return &AccountRepository{db: db, queryTimeout: queryTimeout}
}

const selectAccount = `
	SELECT account_id, display_name, password_hash, email, phone, created_at
	FROM accounts
`

// FindByID retrieves an account by its id. Ids are compared case-sensitively.
func (r *AccountRepository) FindByID(ctx context.Context, accountID string) (*auth.Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRow(ctx, selectAccount+`WHERE account_id = $1`, accountID)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").With("account_id", accountID).Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("ACCOUNT_LOOKUP_FAILED").
			With("operation", "find account by id").
			With("account_id", accountID).
			Wrap(classify(err))
	}
	return account, nil
}

// FindByEmail retrieves an account by normalised email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	email = auth.NormalizeEmail(email)
	row := r.db.QueryRow(ctx, selectAccount+`WHERE email = $1`, email)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("ACCOUNT_LOOKUP_FAILED").
			With("operation", "find account by email").
			With("email", email).
			Wrap(classify(err))
	}
	return account, nil
}

// Insert stores a new account and sets CreatedAt from the database clock.
func (r *AccountRepository) Insert(ctx context.Context, account *auth.Account) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var createdAt time.Time
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (account_id, display_name, password_hash, email, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`,
		account.AccountID,
		account.DisplayName,
		account.PasswordHash,
		account.Email,
		account.Phone,
	).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == constraintEmail {
				return oops.Code("ACCOUNT_EMAIL_TAKEN").
					With("email", account.Email).
					Wrap(&auth.DuplicateError{Field: auth.FieldEmail})
			}
			return oops.Code("ACCOUNT_ID_TAKEN").
				With("account_id", account.AccountID).
				With("constraint", pgErr.ConstraintName).
				Wrap(&auth.DuplicateError{Field: auth.FieldAccountID})
		}
		return oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "insert account").
			With("account_id", account.AccountID).
			Wrap(classify(err))
	}

	account.CreatedAt = createdAt
	return nil
}

func (r *AccountRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

func scanAccount(row pgx.Row) (*auth.Account, error) {
	var a auth.Account
	if err := row.Scan(&a.AccountID, &a.DisplayName, &a.PasswordHash, &a.Email, &a.Phone, &a.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	return &a, nil
}

// classify marks errors that mean the database cannot serve requests right
// now so callers can tell an outage from a bug.
func classify(err error) error {
	if IsUnavailable(err) {
		return fmt.Errorf("%w: %w", auth.ErrStoreUnavailable, err)
	}
	return err
}

// IsUnavailable reports whether err means the database is unreachable,
// overloaded, shutting down or missing its schema.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UndefinedTable ||
			pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

var _ auth.AccountRepository = (*AccountRepository)(nil)
