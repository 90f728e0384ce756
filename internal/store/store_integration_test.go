// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/flickbox/flickbox/internal/store"
)

var _ = Describe("accounts schema", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
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
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		pool, err = store.NewPool(ctx, store.PoolConfig{DSN: connStr})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	countAccounts := func() int {
		var n int
		Expect(pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&n)).To(Succeed())
		return n
	}

	Describe("EnsureSchema", func() {
		It("is idempotent and keeps existing rows", func() {
			Expect(store.EnsureSchema(ctx, pool)).To(Succeed())

			_, err := pool.Exec(ctx, `
				INSERT INTO accounts (account_id, display_name, password_hash, email, phone)
				VALUES ('alice_01', 'Alice', 'digest', 'alice@example.com', '5550100')
			`)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.EnsureSchema(ctx, pool)).To(Succeed())
			Expect(countAccounts()).To(Equal(1))
		})

		It("names the uniqueness constraints", func() {
			rows, err := pool.Query(ctx, `
				SELECT conname FROM pg_constraint
				WHERE conrelid = 'accounts'::regclass AND contype IN ('p', 'u')
				ORDER BY conname
			`)
			Expect(err).NotTo(HaveOccurred())
			defer rows.Close()

			var names []string
			for rows.Next() {
				var name string
				Expect(rows.Scan(&name)).To(Succeed())
				names = append(names, name)
			}
			Expect(rows.Err()).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"accounts_email_key", "accounts_pkey"}))
		})
	})

	Describe("Bootstrap", func() {
		It("is ready after a successful first attempt", func() {
			b := store.NewBootstrap(pool)
			Expect(b.Start(ctx)).To(Succeed())
			Expect(b.Ready()).To(BeTrue())
		})
	})

	Describe("Ping", func() {
		It("reaches the database", func() {
			Expect(store.Ping(ctx, pool, 5*time.Second)).To(Succeed())
		})
	})

	Describe("Migrator", func() {
		It("adopts a schema created by EnsureSchema and rolls it back", func() {
			m, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = m.Close() }()

			Expect(m.Up()).To(Succeed())
			st, err := m.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Version).To(Equal(uint(1)))
			Expect(st.Dirty).To(BeFalse())
			Expect(st.Pending).To(BeEmpty())

			Expect(m.Steps(-1)).To(Succeed())
			var exists bool
			Expect(pool.QueryRow(ctx, `SELECT to_regclass('accounts') IS NOT NULL`).Scan(&exists)).To(Succeed())
			Expect(exists).To(BeFalse())

			Expect(m.Up()).To(Succeed())
			Expect(countAccounts()).To(Equal(0))
		})
	})
})
