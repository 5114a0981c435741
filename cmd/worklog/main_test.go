package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklog/internal/colorsched"
	"worklog/internal/jobs"
)

const threeCrews = `
jobs:
  - id: late
    title: Roof tarp
    start: 2025-03-03T10:00:00Z
    end: 2025-03-03T14:00:00Z
  - id: early
    title: Water extraction
    start: 2025-03-03T08:00:00Z
    end: 2025-03-03T12:00:00Z
  - id: mid
    title: Moisture map
    start: 2025-03-03T09:00:00Z
    end: 2025-03-03T11:00:00Z
`

func writeJobs(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(threeCrews), 0o600))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func dataRows(out string) []string {
	var rows []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" || strings.HasPrefix(line, "ID") {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}

func TestScheduleCommand_SortedByStart(t *testing.T) {
	out, err := runCmd(t, "schedule", writeJobs(t))
	require.NoError(t, err)

	rows := dataRows(out)
	require.Len(t, rows, 3)
	assert.True(t, strings.HasPrefix(rows[0], "early"))
	assert.True(t, strings.HasPrefix(rows[1], "mid"))
	assert.True(t, strings.HasPrefix(rows[2], "late"))
	assert.Contains(t, rows[2], "#10b981", "late overlaps both early and mid")
	assert.NotContains(t, out, "palette exhausted")
}

func TestScheduleCommand_InputOrderAndOverflow(t *testing.T) {
	out, err := runCmd(t, "schedule", "--input-order", "--palette-size", "2", writeJobs(t))
	require.NoError(t, err)

	rows := dataRows(out)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.True(t, strings.HasPrefix(rows[0], "late"))
	assert.True(t, strings.HasPrefix(rows[1], "early"))
	assert.Contains(t, rows[0], "palette exhausted")
	assert.Contains(t, out, "3 jobs overlap at once but only 2 colors are available")
}

func TestPrintSchedule_SizeCappedAtPalette(t *testing.T) {
	list, err := jobs.Parse([]byte(threeCrews))
	require.NoError(t, err)

	var out bytes.Buffer
	palette := colorsched.Palette{"#111111", "#222222"}
	require.NoError(t, printSchedule(&out, list, palette, 5, false))

	rows := dataRows(out.String())
	require.GreaterOrEqual(t, len(rows), 3)
	assert.True(t, strings.HasPrefix(rows[2], "late"))
	assert.Contains(t, rows[2], "#111111")
	assert.Contains(t, rows[2], "palette exhausted")
	assert.Contains(t, out.String(), "3 jobs overlap at once but only 2 colors are available")
}

func TestScheduleCommand_MissingFile(t *testing.T) {
	_, err := runCmd(t, "schedule", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
