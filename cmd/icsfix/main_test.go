package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const standup = "BEGIN:VEVENT\nDTSTART:20240101T090000\nDTEND:20240101T100000\nSUMMARY:Standup\nEND:VEVENT\n"

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerateToStdout(t *testing.T) {
	out, _, err := run(t, standup, "generate", "--weekly", "--count", "2", "--verify", "--out", "-")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "DTSTART:20240108T090000")
}

func TestGenerateIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.ics")
	require.NoError(t, os.WriteFile(in, []byte(standup), 0o600))

	_, stderr, err := run(t, "", "generate", in, "--start", "2024-06-01T08:00", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Standup -> ")

	data, err := os.ReadFile(filepath.Join(dir, "standup.ics"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "DTSTART:20240601T080000\r\n")
	assert.Contains(t, string(data), "DTEND:20240601T090000\r\n")
}

func TestGenerateEmptyInput(t *testing.T) {
	_, _, err := run(t, "  \n", "generate", "--out", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input is empty")
}

func TestInspectCommand(t *testing.T) {
	out, _, err := run(t, "BEGIN:VCALENDAR\n"+standup+"END:VCALENDAR\n", "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "1 event(s)")
	assert.Contains(t, out, "2024-01-01 09:00  Standup")
	assert.Contains(t, out, "missing UID: 1 event(s)")
}

func TestGenerateCountLimit(t *testing.T) {
	_, _, err := run(t, standup, "generate", "--weekly", "--count", "1000000", "--out", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--count must be at most 520")
}

func TestGenerateVerifyFallback(t *testing.T) {
	out, _, err := run(t, "SUMMARY:Loose notes\nDTSTART:20240101T090000\n", "generate", "--weekly", "--count", "2", "--verify", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "SUMMARY:Loose notes")
	assert.Equal(t, 2, strings.Count(out, "DTSTART:"))
}
