package cmdsock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTimeout          = 30 * time.Second
	DefaultMaxResponseBytes = 16384
)

// Client forwards requests to the helper. It keeps no connection state, so
// one Client may be shared by concurrent callers.
type Client struct {
	addr     string
	timeout  time.Duration
	maxBytes int
	logger   *slog.Logger
	dialer   net.Dialer
}

type ClientOption func(*Client)

// WithTimeout bounds each Forward call. Zero disables the bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithMaxResponseBytes bounds how much of a reply is read. Zero reads to EOF
// without a bound.
func WithMaxResponseBytes(n int) ClientOption {
	return func(c *Client) { c.maxBytes = n }
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns a client for the helper listening on localhost:port.
func NewClient(port int, opts ...ClientOption) *Client {
	c := &Client{
		addr:     net.JoinHostPort("localhost", strconv.Itoa(port)),
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxResponseBytes,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Addr() string { return c.addr }

// Forward sends req on a fresh connection and returns the helper's reply.
// Transport failures are reported as error responses, never as Go errors.
func (c *Client) Forward(ctx context.Context, req Request) Response {
	logger := c.logger.With("request_id", uuid.NewString(), "action", req.Action)
	start := time.Now()

	resp, err := c.roundTrip(ctx, req, logger)
	if err != nil {
		logger.Warn("forward failed", "error", err, "elapsed", time.Since(start))
		return Failure("%s", describe(err, c.addr))
	}
	logger.Debug("forwarded", "status", resp.Status, "elapsed", time.Since(start))
	return resp
}

func (c *Client) roundTrip(ctx context.Context, req Request, logger *slog.Logger) (Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := conn.Write(payload); err != nil {
		return Response{}, c.ctxErr(ctx, fmt.Errorf("send request: %w", err))
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return Response{}, c.ctxErr(ctx, fmt.Errorf("close write side: %w", err))
		}
	}

	raw, truncated, err := readBounded(conn, c.maxBytes)
	if err != nil {
		return Response{}, c.ctxErr(ctx, fmt.Errorf("read response: %w", err))
	}
	if truncated {
		logger.Warn("helper response exceeded bound and was truncated", "max_bytes", c.maxBytes)
	}
	return Decode(raw), nil
}

// ctxErr prefers the context's error when the deadline tripped the I/O.
func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// readBounded reads until EOF, keeping at most limit bytes when limit > 0.
// The rest of an oversized reply is drained so the helper is not reset.
func readBounded(r io.Reader, limit int) ([]byte, bool, error) {
	if limit <= 0 {
		b, err := io.ReadAll(r)
		return b, false, err
	}
	b, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return nil, false, err
	}
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, false, err
	}
	return b, n > 0, nil
}

func describe(err error, addr string) string {
	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Sprintf("helper is not running: connection to %s refused", addr)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Sprintf("helper did not respond in time (%s)", addr)
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return fmt.Sprintf("connection to helper at %s was reset", addr)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Sprintf("helper did not respond in time (%s)", addr)
	default:
		return fmt.Sprintf("failed to reach helper at %s: %v", addr, err)
	}
}
