package supervisor

import (
	"context"
	"log/slog"
	"time"
)

const (
	ModeDelay = "delay"
	ModePoll  = "poll"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Readiness decides when a freshly launched child is considered up. In delay
// mode it waits Delay. In poll mode it probes every PollInterval and gives up
// once Delay has passed on the clock, however long the probes took. Neither
// mode fails; only cancellation returns an error.
type Readiness struct {
	Mode         string
	Delay        time.Duration
	PollInterval time.Duration
	Sleep        Sleeper
	// Now defaults to time.Now.
	Now func() time.Time
}

func (r Readiness) Wait(ctx context.Context, port int, probe PortProbe, logger *slog.Logger) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	if r.Mode != ModePoll || probe == nil {
		return sleep(ctx, r.Delay)
	}

	now := r.Now
	if now == nil {
		now = time.Now
	}
	interval := r.PollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	start := now()
	deadline := start.Add(r.Delay)
	for {
		if probe(ctx, port) {
			logger.Debug("port is accepting connections", "port", port, "waited", now().Sub(start))
			return nil
		}
		remaining := deadline.Sub(now())
		if remaining <= 0 {
			logger.Warn("port still not bound after startup delay, continuing", "port", port, "delay", r.Delay)
			return nil
		}
		if err := sleep(ctx, min(interval, remaining)); err != nil {
			return err
		}
	}
}
