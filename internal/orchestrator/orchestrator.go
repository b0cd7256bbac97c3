package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kong/officectl/internal/supervisor"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

// State is a phase of a control-plane run.
type State int

const (
	StateInit State = iota
	StateOfficeStarting
	StateHelperStarting
	StateServing
	StateShuttingDown
	StateExited
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateOfficeStarting:
		return "OFFICE_STARTING"
	case StateHelperStarting:
		return "HELPER_STARTING"
	case StateServing:
		return "SERVING"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	case StateExited:
		return "EXITED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Starter brings a process up. A nil handle with a nil error means the
// process was already running and is not ours.
type Starter interface {
	Ensure(ctx context.Context) (supervisor.Handle, error)
}

// Server blocks while the tool protocol is served.
type Server interface {
	Serve(ctx context.Context) error
}

type ServerFunc func(ctx context.Context) error

func (f ServerFunc) Serve(ctx context.Context) error { return f(ctx) }

// Owner keeps launched handles and stops them at shutdown.
type Owner interface {
	Own(h supervisor.Handle) error
	Shutdown() error
}

type Config struct {
	Office   Starter
	Helper   Starter
	Server   Server
	Registry Owner
	Logger   *slog.Logger
	// OnTransition, if set, observes every state change.
	OnTransition func(from, to State)
	// Suggest, if set, maps a startup error to a hint for the operator.
	Suggest func(err error) string
}

// Orchestrator runs office, helper and server in order and tears down what it
// started on every exit path.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{cfg: cfg, logger: logger}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run executes one control-plane lifetime and returns the process exit code:
// 0 after a clean or interrupted run, 1 when startup or serving failed.
func (o *Orchestrator) Run(ctx context.Context) (code int) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("control plane panicked", "panic", r, "state", o.State().String())
			code = ExitFailure
		}
		o.shutdown()
		o.transition(StateExited)
	}()

	phases := []struct {
		state   State
		starter Starter
		what    string
	}{
		{StateOfficeStarting, o.cfg.Office, "office suite"},
		{StateHelperStarting, o.cfg.Helper, "helper"},
	}
	for _, p := range phases {
		if ctx.Err() != nil {
			return o.interrupted()
		}
		o.transition(p.state)
		h, err := p.starter.Ensure(ctx)
		if h != nil {
			if ownErr := o.cfg.Registry.Own(h); ownErr != nil {
				err = errors.Join(err, ownErr)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return o.interrupted()
			}
			attrs := []any{"error", err}
			if o.cfg.Suggest != nil {
				if hint := o.cfg.Suggest(err); hint != "" {
					attrs = append(attrs, "suggestion", hint)
				}
			}
			o.logger.Error("failed to start "+p.what, attrs...)
			return ExitFailure
		}
	}

	if ctx.Err() != nil {
		return o.interrupted()
	}
	o.transition(StateServing)
	if err := o.cfg.Server.Serve(ctx); err != nil && ctx.Err() == nil {
		o.logger.Error("tool server stopped", "error", err)
		return ExitFailure
	}
	if ctx.Err() != nil {
		return o.interrupted()
	}
	o.logger.Info("tool server finished")
	return ExitOK
}

func (o *Orchestrator) interrupted() int {
	o.logger.Info("received interrupt, shutting down", "state", o.State().String())
	return ExitOK
}

func (o *Orchestrator) shutdown() {
	if o.State() >= StateShuttingDown {
		return
	}
	o.transition(StateShuttingDown)
	if err := o.cfg.Registry.Shutdown(); err != nil {
		o.logger.Warn("cleanup incomplete", "error", err)
	}
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	if from == to {
		o.mu.Unlock()
		return
	}
	o.state = to
	o.mu.Unlock()

	o.logger.Debug("state transition", "from", from.String(), "to", to.String())
	if o.cfg.OnTransition != nil {
		o.cfg.OnTransition(from, to)
	}
}
