package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/burstcast/internal/app"
	"github.com/specialistvlad/burstcast/internal/cli"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}

func TestRun_LaunchMissingAssets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{
		"--env-file", filepath.Join(dir, "absent.env"),
		"--history-db", "",
		"launch", "--root", dir,
	})

	require.ErrorIs(t, err, app.ErrMissingAsset)
	require.Contains(t, err.Error(), "sample.mp4")
}

func TestRun_HistoryEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{
		"--env-file", filepath.Join(dir, "absent.env"),
		"--history-db", filepath.Join(dir, "history.db"),
		"history",
	})

	require.NoError(t, err)
	require.Contains(t, out.String(), "No runs recorded.")
}
