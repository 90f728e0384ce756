// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package main

import (
	"context"
	"io"
	"net"

	"github.com/prometheus/client_golang/prometheus"

	authpg "github.com/flickbox/flickbox/internal/auth/postgres"
	"github.com/flickbox/flickbox/internal/observability"
	"github.com/flickbox/flickbox/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory builds the database pool.
	// Default: store.NewPool
	PoolFactory func(ctx context.Context, cfg store.PoolConfig) (Pool, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, gatherer prometheus.Gatherer, ready observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// LogWriter receives structured logs.
	// Default: os.Stderr
	LogWriter io.Writer

	// OnListening is called with the bound API address once serving starts.
	OnListening func(addr string)
}

// Pool is the part of *pgxpool.Pool the service uses.
type Pool interface {
	store.Execer
	store.Pinger
	authpg.Querier
	Close()
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Status() (store.Status, error)
	Steps(n int) error
	Force(version int) error
	Close() error
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory connects a migrator to the database.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}
