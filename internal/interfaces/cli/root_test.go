package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/efilo-ai/compliance-engine/internal/domain/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

func newTestCommand(format string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "test"}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	cliCtx := &CLIContext{
		Logger:       logging.NewNopLogger(),
		OutputFormat: format,
	}
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, cliCtx))

	return cmd, out
}

func TestRootCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "compliancectl", cmd.Use)
	for _, name := range []string{"config", "log-level", "output", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}

	format, err := cmd.PersistentFlags().GetString("output")
	require.NoError(t, err)
	assert.Equal(t, "text", format)
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "migrate")
	assert.Contains(t, names, "score")
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{Use: "bare"}
	cmd.SetContext(context.Background())

	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestPrintResult_JSON(t *testing.T) {
	cmd, out := newTestCommand("json")

	err := PrintResult(cmd, map[string]int{"score": 88})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":88}`, out.String())
}

func TestPrintResult_Table(t *testing.T) {
	cmd, out := newTestCommand("table")

	err := PrintResult(cmd, migrationStatus{Version: 2, Dirty: false})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "VERSION")
	assert.Contains(t, lines[2], "2")
	assert.Contains(t, lines[2], "false")
}

func TestPrintResult_TextStringer(t *testing.T) {
	cmd, out := newTestCommand("text")

	err := PrintResult(cmd, migrationStatus{Version: 5, Dirty: true})
	require.NoError(t, err)
	assert.Equal(t, "version=5 dirty=true\n", out.String())
}

func TestFormatTable_Alignment(t *testing.T) {
	out := FormatTable(
		[]string{"ID", "NAME"},
		[][]string{
			{"1", "general conditions"},
			{"22", "delay"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	// Every row pads to the widest cell in its column.
	assert.Equal(t, len(lines[1]), len(lines[2]))
	assert.True(t, strings.HasPrefix(lines[3], "22  delay"))
}

func TestFormatTable_Empty(t *testing.T) {
	assert.Empty(t, FormatTable(nil, nil))
}

func TestScoreView_Table(t *testing.T) {
	view := scoreView{&domain.ComplianceScore{
		ProjectID:     "proj-1",
		Score:         92,
		OnTimeCount:   11,
		TotalCount:    12,
		MissedCount:   1,
		CurrentStreak: 4,
		BestStreak:    7,
	}}

	rows := view.TableRows()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"proj-1", "92", "11", "12", "1", "4", "7"}, rows[0])
	assert.Len(t, view.TableHeaders(), len(rows[0]))
	assert.Contains(t, view.String(), "score=92")
}

func TestSnapshotList_Table(t *testing.T) {
	list := snapshotList{
		{
			SnapshotDate:  time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			PeriodType:    domain.PeriodDaily,
			Score:         80,
			OnTimeCount:   4,
			TotalCount:    5,
			CurrentStreak: 2,
		},
	}

	rows := list.TableRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-07-01", rows[0][0])
	assert.Equal(t, "daily", rows[0][1])
}
