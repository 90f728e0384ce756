// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package store

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

//go:embed migrations/000001_create_accounts.up.sql
var accountsSchemaSQL string

// Execer is implemented by *pgxpool.Pool and pgxmock pools.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the accounts table if it does not exist. It is safe
// to call on every start and makes a single attempt.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, accountsSchemaSQL); err != nil {
		return oops.Code("SCHEMA_INIT_FAILED").With("operation", "create accounts table").Wrap(err)
	}
	return nil
}
