package supervisor

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

var (
	// ErrRoleOwned is returned when a second handle is registered for a role.
	ErrRoleOwned = errors.New("a process is already owned for this role")
	// ErrRegistryClosed is returned by Own after Shutdown has started.
	ErrRegistryClosed = errors.New("registry is shut down")
)

// killWait bounds how long Shutdown waits for a killed child to be reaped.
const killWait = 2 * time.Second

// Journal persists owned children outside the process. It is optional.
type Journal interface {
	Track(role string, pid, port int, executable string, args []string) error
	Forget(pid int) error
}

// Registry owns the children launched by one run. Only processes it launched
// are ever stopped.
type Registry struct {
	grace   time.Duration
	logger  *slog.Logger
	journal Journal

	mu     sync.Mutex
	owned  []Handle
	closed bool
}

func NewRegistry(grace time.Duration, logger *slog.Logger, journal Journal) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{grace: grace, logger: logger, journal: journal}
}

// Own takes ownership of h. A handle that cannot be owned, because the role
// is taken or Shutdown already ran, is stopped immediately.
func (r *Registry) Own(h Handle) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = r.stop(h)
		return fmt.Errorf("own %s: %w", h.Role(), ErrRegistryClosed)
	}
	if slices.ContainsFunc(r.owned, func(o Handle) bool { return o.Role() == h.Role() }) {
		r.mu.Unlock()
		_ = r.stop(h)
		return fmt.Errorf("own %s: %w", h.Role(), ErrRoleOwned)
	}
	r.owned = append(r.owned, h)
	r.mu.Unlock()

	if r.journal != nil {
		spec := h.Spec()
		if err := r.journal.Track(h.Role(), h.PID(), spec.Port, spec.Path, spec.Args); err != nil {
			r.logger.Warn("could not record process", "role", h.Role(), "pid", h.PID(), "error", err)
		}
	}
	return nil
}

// Owned returns the owned handles in ownership order.
func (r *Registry) Owned() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.owned)
}

// Shutdown stops owned children in reverse ownership order, each with
// terminate, a grace period, then kill. Calls after the first are no-ops.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	owned := r.owned
	r.owned = nil
	r.mu.Unlock()

	var errs []error
	for _, h := range slices.Backward(owned) {
		if err := r.stop(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) stop(h Handle) error {
	logger := r.logger.With("role", h.Role(), "pid", h.PID())
	defer r.forget(h)

	if h.Exited() {
		logger.Debug("process already exited")
		return nil
	}

	logger.Info("terminating")
	if err := h.Terminate(); err != nil {
		logger.Debug("terminate signal failed, killing", "error", err)
	} else {
		if r.await(h, r.grace) {
			return nil
		}
		logger.Warn("process did not exit within grace period, killing", "grace", r.grace)
	}

	if err := h.Kill(); err != nil {
		return fmt.Errorf("kill %s (pid %d): %w", h.Role(), h.PID(), err)
	}
	if !r.await(h, killWait) {
		return fmt.Errorf("%s (pid %d) still running after kill", h.Role(), h.PID())
	}
	return nil
}

func (r *Registry) await(h Handle, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-h.Done():
		return true
	case <-t.C:
		return false
	}
}

func (r *Registry) forget(h Handle) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Forget(h.PID()); err != nil {
		r.logger.Warn("could not remove process record", "role", h.Role(), "pid", h.PID(), "error", err)
	}
}
