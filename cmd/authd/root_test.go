package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	for _, sub := range []string{"serve", "sweep", "config"} {
		assert.Contains(t, buf.String(), sub)
	}
}

func TestConfigCommandHidesSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "super-secret-value-that-is-32-bytes!")

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"config", "--listen", ":7070"})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, ":7070")
	assert.Contains(t, out, "max_attempts: 5")
	assert.NotContains(t, out, "super-secret")
}

func TestSweepCommandOnMemoryStore(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"sweep", "--log-level", "error"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "removed 0 stale login-attempt records")
}

func TestScheduleSweepRejectsBadSpec(t *testing.T) {
	_, err := scheduleSweep(nil, "not a schedule", nil)
	assert.Error(t, err)

	c, err := scheduleSweep(nil, "", nil)
	require.NoError(t, err)
	assert.Empty(t, c.Entries())
}
