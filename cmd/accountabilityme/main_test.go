package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"accountabilityme"}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "Usage:")
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"accountabilityme", "bogus"}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "Unknown command")
}

func TestRun_VerifyChainOnEmptyMemoryLedger(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	var stdout, stderr bytes.Buffer
	code := Run([]string{"accountabilityme", "verify-chain"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), `"ledger_integrity_valid": true`)
}

func TestRun_CreateGenesisEditorRequiresUsername(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	var stdout, stderr bytes.Buffer
	code := Run([]string{"accountabilityme", "create-genesis-editor"}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "--username is required")
}

func TestRun_CreateGenesisEditorSucceeds(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	var stdout, stderr bytes.Buffer
	code := Run([]string{"accountabilityme", "create-genesis-editor", "-username", "alice"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "Genesis editor created.")
	require.Contains(t, stdout.String(), "PRIVATE KEY")
}

func TestRun_ExportEventsRequiresClaim(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	var stdout, stderr bytes.Buffer
	code := Run([]string{"accountabilityme", "export-events"}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "--claim is required")
}

func TestRun_RebuildProjectionsOnEmptyLedger(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "memory")
	var stdout, stderr bytes.Buffer
	code := Run([]string{"accountabilityme", "rebuild-projections"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.True(t, strings.Contains(stdout.String(), "Claims: 0"))
}
