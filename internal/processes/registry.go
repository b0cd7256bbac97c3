package processes

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kong/officectl/internal/config"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600

	rootDirName = "processes"
)

// Record describes a child process launched by a serve run.
type Record struct {
	PID            int       `json:"pid" yaml:"pid"`
	Role           string    `json:"role" yaml:"role"`
	Port           int       `json:"port,omitempty" yaml:"port,omitempty"`
	Executable     string    `json:"executable" yaml:"executable"`
	Args           []string  `json:"args,omitempty" yaml:"args,omitempty"`
	Profile        string    `json:"profile,omitempty" yaml:"profile,omitempty"`
	OwnerPID       int       `json:"owner_pid,omitempty" yaml:"owner_pid,omitempty"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	StartTimeTicks uint64    `json:"start_time_ticks,omitempty" yaml:"start_time_ticks,omitempty"`
}

// StoredRecord includes the record and backing file path.
type StoredRecord struct {
	Record
	File string `json:"file" yaml:"file"`
}

// ResolveDir returns the process record directory under the config path.
func ResolveDir() (string, error) {
	configDir, err := config.GetDefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("resolve default config path: %w", err)
	}
	return filepath.Join(configDir, rootDirName), nil
}

// PathForPID returns the record path for pid inside dir.
func PathForPID(dir string, pid int) string {
	return filepath.Join(dir, strconv.Itoa(pid)+".json")
}

// WriteRecord persists a process record atomically at path.
func WriteRecord(path string, record Record) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("process record path is required")
	}
	if record.PID <= 0 {
		return errors.New("process PID must be greater than zero")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.Role = strings.TrimSpace(record.Role)
	record.Profile = strings.TrimSpace(record.Profile)

	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal process record: %w", err)
	}
	return writeAtomic(path, raw, defaultFilePerm)
}

// RemoveRecordByPath removes a process record file. A missing file is not an
// error.
func RemoveRecordByPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ListRecords returns the records stored in dir, newest first. Unreadable
// files are skipped.
func ListRecords(dir string) ([]StoredRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	records := make([]StoredRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		record, err := loadRecord(path)
		if err != nil {
			continue
		}
		records = append(records, StoredRecord{Record: record, File: path})
	}

	slices.SortFunc(records, func(a, b StoredRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.PID, b.PID)
	})
	return records, nil
}

func loadRecord(path string) (Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, err
	}
	if record.PID <= 0 {
		return Record{}, errors.New("invalid process record PID")
	}
	return record, nil
}

func writeAtomic(path string, payload []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return fmt.Errorf("create process record directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".process-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp process record: %w", err)
	}
	tmpPath := tmpFile.Name()

	fail := func(step string, err error) error {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%s temp process record: %w", step, err)
	}

	if _, err := tmpFile.Write(payload); err != nil {
		return fail("write", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fail("chmod", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp process record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace process record: %w", err)
	}
	return nil
}
