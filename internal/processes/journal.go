package processes

import (
	"os"
	"slices"
	"sync"
	"time"
)

// Journal records the children of one serve run on disk so that a later
// `ps` can find them if the run dies without cleaning up.
type Journal struct {
	Dir      string
	Profile  string
	OwnerPID int

	mu    sync.Mutex
	paths map[int]string
}

// NewJournal returns a journal writing under the default record directory.
func NewJournal(profile string) (*Journal, error) {
	dir, err := ResolveDir()
	if err != nil {
		return nil, err
	}
	return &Journal{Dir: dir, Profile: profile, OwnerPID: os.Getpid()}, nil
}

// Track writes a record for a freshly launched child.
func (j *Journal) Track(role string, pid, port int, executable string, args []string) error {
	path := PathForPID(j.Dir, pid)
	err := WriteRecord(path, Record{
		PID:            pid,
		Role:           role,
		Port:           port,
		Executable:     executable,
		Args:           slices.Clone(args),
		Profile:        j.Profile,
		OwnerPID:       j.OwnerPID,
		CreatedAt:      time.Now().UTC(),
		StartTimeTicks: WaitForStartTimeTicks(pid, defaultStartProbeWait),
	})
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.paths == nil {
		j.paths = make(map[int]string)
	}
	j.paths[pid] = path
	return nil
}

// Forget removes the record for pid once the child has been stopped.
func (j *Journal) Forget(pid int) error {
	j.mu.Lock()
	path, ok := j.paths[pid]
	delete(j.paths, pid)
	j.mu.Unlock()

	if !ok {
		path = PathForPID(j.Dir, pid)
	}
	return RemoveRecordByPath(path)
}

// Records lists everything in the journal directory, including records left
// by other runs.
func (j *Journal) Records() ([]StoredRecord, error) {
	return ListRecords(j.Dir)
}
