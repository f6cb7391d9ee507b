package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand_RequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--path", t.TempDir()})
	cmd.SilenceErrors = true

	err := cmd.Execute()
	assert.ErrorContains(t, err, "DATABASE_DSN or --dsn is required")
}

func TestMigrateSchema_UnknownDirection(t *testing.T) {
	err := migrateSchema("file://"+t.TempDir(), "postgres://localhost/wolam", "sideways", 0)
	assert.EqualError(t, err, "unknown direction: sideways")
}
