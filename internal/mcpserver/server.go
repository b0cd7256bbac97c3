package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kong/officectl/internal/cmdsock"
	"github.com/kong/officectl/internal/meta"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"

	sseShutdownTimeout = 5 * time.Second
)

// Forwarder sends a command to the helper. Failures come back as error
// responses.
type Forwarder interface {
	Forward(ctx context.Context, req cmdsock.Request) cmdsock.Response
}

// New builds an MCP server exposing every catalog tool through fwd.
func New(fwd Forwarder, version string, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		meta.ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, spec := range Catalog() {
		s.AddTool(ToolDefinition(spec), Handler(spec, fwd, logger))
	}
	return s
}

const instructions = `Tools in this server edit office documents (.odt text documents and .odp presentations) through a running office suite.
Always pass absolute file paths. Slide, table and paragraph indexes start at 0.`

// ToolDefinition renders spec as an MCP tool schema.
func ToolDefinition(spec ToolSpec) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
	for _, p := range spec.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		if len(p.Enum) > 0 {
			props = append(props, mcp.Enum(p.Enum...))
		}

		switch p.Kind {
		case KindNumber:
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case KindBoolean:
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		case KindTable:
			props = append(props, mcp.Items(map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			}))
			opts = append(opts, mcp.WithArray(p.Name, props...))
		default:
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(spec.Name, opts...)
}

// Handler forwards a tool call as {"action": spec.Name, ...arguments} and
// maps the helper's reply onto a tool result. Helper failures become tool
// errors, never protocol errors.
func Handler(spec ToolSpec, fwd Forwarder, logger *slog.Logger) server.ToolHandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if missing := spec.Missing(args); len(missing) > 0 {
			return mcp.NewToolResultError("missing required argument(s): " + strings.Join(missing, ", ")), nil
		}

		resp := fwd.Forward(ctx, cmdsock.NewRequest(spec.Name, args))
		if !resp.OK() {
			logger.Debug("tool call failed", "tool", spec.Name, "message", resp.Message)
			return mcp.NewToolResultError(resp.Message), nil
		}

		if !spec.Structured {
			return mcp.NewToolResultText(resp.Message), nil
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, []byte(resp.Message), "", "  "); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("helper returned invalid JSON for %s: %v", spec.Name, err)), nil
		}
		return mcp.NewToolResultText(pretty.String()), nil
	}
}

// ServeOptions selects the MCP transport.
type ServeOptions struct {
	Transport string
	// Listen is the host:port for the SSE transport.
	Listen string
	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger
}

// Serve runs s until ctx is done or the transport ends. Over stdio the
// transport ends when the client closes stdin.
func Serve(ctx context.Context, s *server.MCPServer, opts ServeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch opts.Transport {
	case "", TransportStdio:
		stdio := server.NewStdioServer(s)
		stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
		logger.Info("serving MCP over stdio")
		if err := stdio.Listen(ctx, opts.In, opts.Out); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case TransportSSE:
		return serveSSE(ctx, s, opts.Listen, logger)
	default:
		return fmt.Errorf("unknown MCP transport %q", opts.Transport)
	}
}

func serveSSE(ctx context.Context, s *server.MCPServer, listen string, logger *slog.Logger) error {
	sse := server.NewSSEServer(s, server.WithBaseURL("http://"+listen))

	errCh := make(chan error, 1)
	go func() { errCh <- sse.Start(listen) }()
	logger.Info("serving MCP over SSE", "listen", listen)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), sseShutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			logger.Warn("SSE shutdown", "error", err)
		}
		return ctx.Err()
	}
}
