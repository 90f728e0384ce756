// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/flickbox/flickbox/internal/store"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("flickbox_test"),
		postgres.WithUsername("flickbox"),
		postgres.WithPassword("flickbox"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(ctx) }()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get connection string: %v\n", err)
		return 1
	}

	testPool, err = store.NewPool(ctx, store.PoolConfig{DSN: connStr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := store.EnsureSchema(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create schema: %v\n", err)
		return 1
	}

	return m.Run()
}
