package supervisor

import (
	"context"
	"fmt"
	"log/slog"
)

// Supervisor makes sure one role's process is listening on its port. A port
// that is already bound means someone else runs the process and it is left
// alone.
type Supervisor struct {
	Role      string
	Port      int
	Resolve   func() (Spec, error)
	Launcher  Launcher
	Probe     PortProbe
	Readiness Readiness
	Logger    *slog.Logger
}

// Ensure returns (nil, nil) when the port is already bound. Otherwise it
// resolves, launches and waits for the child. A context cancelled before the
// launch returns its error and starts nothing. When the readiness wait is
// interrupted the launched handle is returned together with the context
// error so the caller can still clean it up.
func (s *Supervisor) Ensure(ctx context.Context) (Handle, error) {
	logger := s.logger()

	if s.probe()(ctx, s.Port) {
		logger.Info("already running, not launching", "port", s.Port)
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spec, err := s.Resolve()
	if err != nil {
		return nil, err
	}
	spec.Role = s.Role
	spec.Port = s.Port

	launcher := s.Launcher
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	h, err := launcher.Launch(spec)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", s.Role, err)
	}
	logger.Info("launched", "pid", h.PID(), "port", s.Port, "command", spec.Command())

	if err := s.Readiness.Wait(ctx, s.Port, s.probe(), logger); err != nil {
		return h, err
	}
	return h, nil
}

func (s *Supervisor) probe() PortProbe {
	if s.Probe != nil {
		return s.Probe
	}
	return DialProbe
}

func (s *Supervisor) logger() *slog.Logger {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With("role", s.Role)
}
