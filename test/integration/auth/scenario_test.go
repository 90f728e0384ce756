// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

//go:build integration

package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/flickbox/flickbox/internal/store"
)

func post(path string, body map[string]string) (int, map[string]any) {
	payload, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	resp, err := http.Post(env.api.URL+path, "application/json", bytes.NewReader(payload)) //nolint:noctx // test
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return resp.StatusCode, out
}

func countAccounts() int {
	var n int
	Expect(env.pool.QueryRow(env.ctx, `SELECT count(*) FROM accounts`).Scan(&n)).To(Succeed())
	return n
}

var _ = Describe("Register and login", Ordered, func() {
	alice := map[string]string{
		"accountId":   "alice_01",
		"displayName": "Alice",
		"email":       "alice@example.com",
		"phone":       "+1 555 0100",
		"password":    "Secret123",
	}

	with := func(overrides map[string]string) map[string]string {
		out := map[string]string{}
		for k, v := range alice {
			out[k] = v
		}
		for k, v := range overrides {
			out[k] = v
		}
		return out
	}

	BeforeAll(func() {
		_, err := env.pool.Exec(env.ctx, `DELETE FROM accounts`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("reports healthy once the schema exists", func() {
		resp, err := http.Get(env.api.URL + "/api/health") //nolint:noctx // test
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = resp.Body.Close() }()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("registers a new account", func() {
		status, body := post("/api/register", alice)
		Expect(status).To(Equal(http.StatusCreated))
		Expect(body["success"]).To(BeTrue())
	})

	It("rejects a second account with the same id", func() {
		status, body := post("/api/register", with(map[string]string{"email": "other@example.com"}))
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body["message"]).To(ContainSubstring(`"alice_01" is already taken`))
	})

	It("rejects a second account with the same email in another case", func() {
		status, body := post("/api/register", with(map[string]string{"accountId": "alice_02", "email": "ALICE@Example.com"}))
		Expect(status).To(Equal(http.StatusConflict))
		Expect(body["message"]).To(Equal("An account with that email address already exists. Try signing in instead."))
	})

	It("logs in with the registered credentials", func() {
		status, body := post("/api/login", map[string]string{"accountId": "alice_01", "password": "Secret123"})
		Expect(status).To(Equal(http.StatusOK))
		Expect(body["account"]).To(Equal(map[string]any{"accountId": "alice_01", "displayName": "Alice"}))
	})

	It("gives the same answer for a wrong password and an unknown account", func() {
		wrongStatus, wrong := post("/api/login", map[string]string{"accountId": "alice_01", "password": "Secret124"})
		unknownStatus, unknown := post("/api/login", map[string]string{"accountId": "bob_99", "password": "Secret123"})

		Expect(wrongStatus).To(Equal(http.StatusUnauthorized))
		Expect(unknownStatus).To(Equal(http.StatusUnauthorized))
		Expect(wrong["message"]).To(Equal("Invalid User ID or password."))
		Expect(unknown["message"]).To(Equal(wrong["message"]))
	})

	It("rejects invalid registrations before touching the store", func() {
		before := countAccounts()
		status, body := post("/api/register", with(map[string]string{"accountId": "zz", "password": "weak"}))
		Expect(status).To(Equal(http.StatusUnprocessableEntity))
		Expect(body["errors"]).To(HaveLen(2))
		Expect(countAccounts()).To(Equal(before))
	})

	It("keeps accounts when the schema is created again", func() {
		before := countAccounts()
		Expect(store.EnsureSchema(env.ctx, env.pool)).To(Succeed())
		Expect(countAccounts()).To(Equal(before))
	})

	It("counts outcomes", func() {
		Expect(testutil.ToFloat64(env.metrics.AuthOutcomes.WithLabelValues("register", "success"))).To(BeNumerically("==", 1))
		Expect(testutil.ToFloat64(env.metrics.AuthOutcomes.WithLabelValues("register", "conflict"))).To(BeNumerically("==", 2))
		Expect(testutil.ToFloat64(env.metrics.AuthOutcomes.WithLabelValues("login", "unauthorized"))).To(BeNumerically("==", 2))
	})
})
