// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())

	for _, sub := range []string{"serve", "migrate", "healthcheck"} {
		assert.Contains(t, out.String(), sub)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestMigrateCommand_Subcommands(t *testing.T) {
	cmd := NewMigrateCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"up", "down", "status", "force"} {
		assert.True(t, names[want], "missing migrate %s", want)
	}
}
