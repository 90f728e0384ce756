// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

// Package store owns the PostgreSQL connection pool and the accounts schema.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// Pool defaults.
const (
	DefaultMaxConns          = 10
	DefaultConnectTimeout    = 30 * time.Second
	DefaultMaxConnIdleTime   = 60 * time.Second
	DefaultMaxConnLifetime   = 30 * time.Minute
	DefaultHealthCheckPeriod = 30 * time.Second
)

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnectTimeout  time.Duration
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxConnIdleTime <= 0 {
		c.MaxConnIdleTime = DefaultMaxConnIdleTime
	}
	if c.MaxConnLifetime <= 0 {
		c.MaxConnLifetime = DefaultMaxConnLifetime
	}
	return c
}

// ParsePoolConfig turns c into a pgxpool config without connecting.
func ParsePoolConfig(c PoolConfig) (*pgxpool.Config, error) {
	c = c.withDefaults()

	poolCfg, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	poolCfg.MaxConns = c.MaxConns
	poolCfg.MinConns = c.MinConns
	poolCfg.MaxConnIdleTime = c.MaxConnIdleTime
	poolCfg.MaxConnLifetime = c.MaxConnLifetime
	poolCfg.HealthCheckPeriod = DefaultHealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = c.ConnectTimeout
	return poolCfg, nil
}

// NewPool builds the pool. Connections are opened lazily, so an unreachable
// database does not fail here; use Ping to probe it.
func NewPool(ctx context.Context, c PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := ParsePoolConfig(c)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_POOL_FAILED").With("operation", "create pool").Wrap(err)
	}
	return pool, nil
}

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks connectivity within timeout.
func Ping(ctx context.Context, db Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		return oops.Code("DB_UNREACHABLE").With("timeout", timeout.String()).Wrap(err)
	}
	return nil
}
