package supervisor

import (
	"sync"
)

// fakeHandle is a Handle whose exit is driven by the test. With ignoreTerm
// set it only exits on Kill.
type fakeHandle struct {
	spec       Spec
	pid        int
	ignoreTerm bool
	log        *eventLog

	once sync.Once
	done chan struct{}
}

func newFakeHandle(role string, pid int, log *eventLog) *fakeHandle {
	return &fakeHandle{spec: Spec{Role: role, Path: "/bin/" + role}, pid: pid, log: log, done: make(chan struct{})}
}

func (h *fakeHandle) Role() string          { return h.spec.Role }
func (h *fakeHandle) PID() int              { return h.pid }
func (h *fakeHandle) Spec() Spec            { return h.spec }
func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *fakeHandle) exit() { h.once.Do(func() { close(h.done) }) }

func (h *fakeHandle) Terminate() error {
	h.log.add("terminate " + h.spec.Role)
	if !h.ignoreTerm {
		h.exit()
	}
	return nil
}

func (h *fakeHandle) Kill() error {
	h.log.add("kill " + h.spec.Role)
	h.exit()
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeLauncher struct {
	launched []Spec
	handle   *fakeHandle
	err      error
}

func (l *fakeLauncher) Launch(spec Spec) (Handle, error) {
	l.launched = append(l.launched, spec)
	if l.err != nil {
		return nil, l.err
	}
	l.handle.spec = spec
	return l.handle, nil
}

type fakeJournal struct {
	mu      sync.Mutex
	tracked map[int]string
	forgot  []int
}

func (j *fakeJournal) Track(role string, pid, _ int, _ string, _ []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.tracked == nil {
		j.tracked = map[int]string{}
	}
	j.tracked[pid] = role
	return nil
}

func (j *fakeJournal) Forget(pid int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.forgot = append(j.forgot, pid)
	return nil
}
