// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/flickbox/flickbox/internal/config"
)

const healthcheckTimeout = 5 * time.Second

// NewHealthcheckCmd creates the healthcheck subcommand, used as a container
// HEALTHCHECK against a running server.
func NewHealthcheckCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Exit non-zero unless the local server reports healthy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := baseURL
			if url == "" {
				cfg, err := config.Load(config.ResolvePath(configFile), nil)
				if err != nil {
					return err
				}
				url = "http://localhost:" + strconv.Itoa(cfg.HTTP.Port)
			}
			client := &http.Client{Timeout: healthcheckTimeout}
			return runHealthcheck(cmd.Context(), cmd, client, url+"/health")
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "server base URL (default: http://localhost:$PORT)")
	return cmd
}

func runHealthcheck(ctx context.Context, cmd *cobra.Command, client *http.Client, url string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return oops.Code("HEALTHCHECK_FAILED").With("url", url).Wrap(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return oops.Code("HEALTHCHECK_FAILED").With("url", url).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body) //nolint:errcheck // status code decides

	if resp.StatusCode != http.StatusOK {
		return oops.Code("HEALTHCHECK_FAILED").
			With("url", url).
			With("status", resp.StatusCode).
			Errorf("server unhealthy: status %d, database %q", resp.StatusCode, body.Database)
	}

	cmd.Printf("healthy: database %s\n", body.Database)
	return nil
}
