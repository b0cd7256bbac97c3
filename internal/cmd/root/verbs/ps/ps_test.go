package ps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/iostreams"
	"github.com/kong/officectl/internal/log"
	"github.com/kong/officectl/internal/processes"
	testconfig "github.com/kong/officectl/test/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestNewPSCmd(t *testing.T) {
	t.Parallel()

	c, err := NewPSCmd()
	require.NoError(t, err)
	require.Equal(t, "ps", c.Use)
	require.Len(t, c.Commands(), 1)
}

func TestResolveTargets(t *testing.T) {
	t.Parallel()

	records := []processes.StoredRecord{
		{Record: processes.Record{PID: 100}},
		{Record: processes.Record{PID: 200}},
	}

	t.Run("single pid", func(t *testing.T) {
		t.Parallel()

		targets, err := (&psCmd{}).resolveTargets([]string{"100"}, records)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		require.Equal(t, 100, targets[0].PID)
	})

	t.Run("several pids", func(t *testing.T) {
		t.Parallel()

		targets, err := (&psCmd{}).resolveTargets([]string{"200", "100", "200"}, records)
		require.NoError(t, err)
		require.Len(t, targets, 2)
		require.Equal(t, 200, targets[0].PID)
		require.Equal(t, 100, targets[1].PID)
	})

	t.Run("all flag", func(t *testing.T) {
		t.Parallel()

		targets, err := (&psCmd{stopAll: true}).resolveTargets(nil, records)
		require.NoError(t, err)
		require.Len(t, targets, 2)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		_, err := (&psCmd{stopAll: true}).resolveTargets([]string{"100"}, records)
		require.Error(t, err)
		_, err = (&psCmd{}).resolveTargets(nil, records)
		require.Error(t, err)
		_, err = (&psCmd{}).resolveTargets([]string{"abc"}, records)
		require.ErrorContains(t, err, "invalid PID")
		_, err = (&psCmd{}).resolveTargets([]string{"300"}, records)
		require.ErrorContains(t, err, "no process record")
		_, err = (&psCmd{}).resolveTargets([]string{"100", "300"}, records)
		require.ErrorContains(t, err, "PID 300")
	})
}

// withContext wires the values root normally puts in the command context.
func withContext(c *cobra.Command, format string) *bytes.Buffer {
	streams, _, out, _ := iostreams.NewTestIOStreams()
	ctx := context.WithValue(context.Background(), config.ConfigKey, config.Hook(&testconfig.MockConfigHook{
		Values: map[string]any{common.OutputConfigPath: format},
	}))
	ctx = context.WithValue(ctx, iostreams.StreamsKey, streams)
	ctx = context.WithValue(ctx, log.LoggerKey, log.Nop())
	c.SetContext(ctx)
	return out
}

func TestListRecords(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, processes.WriteRecord(processes.PathForPID(dir, os.Getpid()), processes.Record{
		PID:        os.Getpid(),
		Role:       "helper",
		Port:       8765,
		Executable: "/usr/bin/python3",
		Args:       []string{"/opt/officectl/helper.py"},
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}))

	p := &psCmd{dir: func() (string, error) { return dir, nil }}
	c := newPSCmd(p)
	out := withContext(c, "json")

	require.NoError(t, p.runList(c, nil))

	var items []processListItem
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, processes.StatusRunning, items[0].Status)
	require.Equal(t, "helper", items[0].Role)
	require.Equal(t, "/usr/bin/python3 /opt/officectl/helper.py", items[0].Command)
}

func TestListEmptyText(t *testing.T) {
	p := &psCmd{dir: func() (string, error) { return t.TempDir(), nil }}
	c := newPSCmd(p)
	out := withContext(c, "text")

	require.NoError(t, p.runList(c, nil))
	require.Equal(t, "No officectl processes recorded.\n", out.String())
}

func TestStopFlagsBindToCommand(t *testing.T) {
	p := &psCmd{stopTimeout: 2 * time.Second}
	stop := newPSCmd(p).Commands()[0]
	require.Equal(t, "stop [pid...]", stop.Use)

	require.NoError(t, stop.Flags().Set("all", "true"))
	require.NoError(t, stop.Flags().Set("force", "true"))
	require.True(t, p.stopAll)
	require.True(t, p.force)
	require.Equal(t, 2*time.Second, p.stopTimeout)
}

func TestStopErrors(t *testing.T) {
	p := &psCmd{stopTimeout: time.Second, dir: func() (string, error) { return t.TempDir(), nil }}
	c := newPSCmd(p).Commands()[0]
	withContext(c, "json")

	var cfgErr *cmd.ConfigurationError
	require.ErrorAs(t, p.runStop(c, []string{"999999"}), &cfgErr)

	p.dir = func() (string, error) { return "", errors.New("no home directory") }
	var execErr *cmd.ExecutionError
	require.ErrorAs(t, p.runStop(c, []string{"1"}), &execErr)
	require.ErrorAs(t, p.runList(c, nil), &execErr)
}
