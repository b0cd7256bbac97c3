package processes

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteListAndRemoveRecord(t *testing.T) {
	dir := t.TempDir()
	recordPath := PathForPID(dir, 4242)

	record := Record{
		PID:        4242,
		Role:       "office",
		Port:       2002,
		Executable: "/usr/bin/collaboraoffice",
		Profile:    "default",
		Args:       []string{"--headless"},
	}
	require.NoError(t, WriteRecord(recordPath, record))

	records, err := ListRecords(dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 4242, records[0].PID)
	require.Equal(t, "office", records[0].Role)
	require.Equal(t, recordPath, records[0].File)
	require.False(t, records[0].CreatedAt.IsZero())

	info, err := os.Stat(recordPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, RemoveRecordByPath(recordPath))
	require.NoError(t, RemoveRecordByPath(recordPath))
	_, err = os.Stat(recordPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteRecordRejectsInvalidInput(t *testing.T) {
	require.Error(t, WriteRecord("", Record{PID: 1}))
	require.Error(t, WriteRecord(filepath.Join(t.TempDir(), "x.json"), Record{}))
}

func TestListRecordsOrdersNewestFirstAndSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC()

	require.NoError(t, WriteRecord(PathForPID(dir, 10), Record{PID: 10, Role: "office", CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, WriteRecord(PathForPID(dir, 20), Record{PID: 20, Role: "helper", CreatedAt: now}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))

	records, err := ListRecords(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 20, records[0].PID)
	require.Equal(t, 10, records[1].PID)
}

func TestListRecordsMissingDir(t *testing.T) {
	records, err := ListRecords(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestResolveDirUsesConfigHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	dir, err := ResolveDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(tmp, "officectl", "processes"), dir)
}

func TestJournalTrackAndForget(t *testing.T) {
	j := &Journal{Dir: t.TempDir(), Profile: "default", OwnerPID: os.Getpid()}

	require.NoError(t, j.Track("helper", os.Getpid(), 8765, "/usr/bin/python3", []string{"helper.py"}))

	records, err := j.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "helper", records[0].Role)
	require.Equal(t, 8765, records[0].Port)
	require.Equal(t, os.Getpid(), records[0].OwnerPID)

	require.NoError(t, j.Forget(os.Getpid()))
	records, err = j.Records()
	require.NoError(t, err)
	require.Empty(t, records)

	require.NoError(t, j.Forget(99999))
}
