package cmdsock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

// HandlerFunc executes one action. The returned string becomes the success
// message; an error becomes an error response carrying err.Error().
type HandlerFunc func(ctx context.Context, fields map[string]any) (string, error)

// CommandTable maps action names to handlers.
type CommandTable map[string]HandlerFunc

const (
	defaultMaxRequestBytes = 1 << 20
	defaultIOTimeout       = time.Minute
)

// Server is the helper side of the command socket: one request per
// connection, read to EOF, one response, close. Handlers run one at a time.
type Server struct {
	Commands        CommandTable
	Logger          *slog.Logger
	MaxRequestBytes int64
	IOTimeout       time.Duration

	mu sync.Mutex
	wg sync.WaitGroup
}

// ListenAndServe binds localhost:port and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes ln and waits
// for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	logger := s.logger()

	timeout := s.IOTimeout
	if timeout <= 0 {
		timeout = defaultIOTimeout
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	limit := s.MaxRequestBytes
	if limit <= 0 {
		limit = defaultMaxRequestBytes
	}
	raw, err := io.ReadAll(io.LimitReader(conn, limit))

	var resp Response
	if err != nil {
		resp = Failure("read request: %v", err)
	} else {
		resp = s.Dispatch(ctx, raw)
	}

	out, err := json.Marshal(resp)
	if err != nil {
		logger.Error("encode response", "error", err)
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if _, err := conn.Write(out); err != nil {
		logger.Warn("write response", "error", err)
	}
}

// Dispatch decodes raw and runs the matching handler.
func (s *Server) Dispatch(ctx context.Context, raw []byte) Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Failure("invalid request: %v", err)
	}
	handler, ok := s.Commands[req.Action]
	if !ok {
		return Failure("Unknown action: %s", req.Action)
	}
	return s.run(ctx, req, handler)
}

func (s *Server) run(ctx context.Context, req Request, handler HandlerFunc) (resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger().Error("handler panicked", "action", req.Action, "panic", r)
			resp = Failure("%v", r)
		}
	}()

	msg, err := handler(ctx, req.Fields)
	if err != nil {
		return Failure("%s", err.Error())
	}
	return Success(msg)
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}
