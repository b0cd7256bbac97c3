package mcpserver

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/kong/officectl/internal/cmdsock"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

type recordingForwarder struct {
	got  []cmdsock.Request
	resp cmdsock.Response
}

func (f *recordingForwarder) Forward(_ context.Context, req cmdsock.Request) cmdsock.Response {
	f.got = append(f.got, req)
	return f.resp
}

func call(t *testing.T, name string, args map[string]any, fwd Forwarder) *mcp.CallToolResult {
	t.Helper()
	spec, ok := Lookup(name)
	require.True(t, ok, "unknown tool %s", name)

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := Handler(spec, fwd, nil)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHandlerForwardsActionAndArguments(t *testing.T) {
	fwd := &recordingForwarder{resp: cmdsock.Success("Heading added")}

	res := call(t, "add_heading", map[string]any{"file_path": "/tmp/a.odt", "text": "Chapter 1", "level": 1}, fwd)

	require.False(t, res.IsError)
	require.Equal(t, "Heading added", text(t, res))
	require.Equal(t, []cmdsock.Request{{
		Action: "add_heading",
		Fields: map[string]any{"file_path": "/tmp/a.odt", "text": "Chapter 1", "level": 1},
	}}, fwd.got)
}

func TestHandlerMapsHelperErrorsToToolErrors(t *testing.T) {
	fwd := &recordingForwarder{resp: cmdsock.Failure("File not found: /tmp/missing.odt")}

	res := call(t, "read_text_document", map[string]any{"file_path": "/tmp/missing.odt"}, fwd)

	require.True(t, res.IsError)
	require.Equal(t, "File not found: /tmp/missing.odt", text(t, res))
}

func TestHandlerRejectsMissingArguments(t *testing.T) {
	fwd := &recordingForwarder{}

	res := call(t, "copy_document", map[string]any{"source_path": "/tmp/a.odt"}, fwd)

	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "target_path")
	require.Empty(t, fwd.got)
}

func TestHandlerReindentsStructuredPayloads(t *testing.T) {
	fwd := &recordingForwarder{resp: cmdsock.Success(`{"title":"Test Document","author":"pytest"}`)}

	res := call(t, "get_document_properties", map[string]any{"file_path": "/tmp/a.odt"}, fwd)

	require.False(t, res.IsError)
	require.Equal(t, "{\n  \"title\": \"Test Document\",\n  \"author\": \"pytest\"\n}", text(t, res))
}

func TestHandlerRejectsInvalidStructuredPayload(t *testing.T) {
	fwd := &recordingForwarder{resp: cmdsock.Success("Documents: a.odt, b.odt")}

	res := call(t, "list_documents", map[string]any{"directory": "/tmp"}, fwd)

	require.True(t, res.IsError)
	require.Contains(t, text(t, res), "invalid JSON")
}

// The full path through a real helper socket: a refused connection surfaces
// as a tool error, not a protocol error.
func TestHandlerWithUnreachableHelper(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	res := call(t, "insert_page_break", map[string]any{"file_path": "/tmp/a.odt"}, cmdsock.NewClient(port))

	require.True(t, res.IsError)
	require.NotEmpty(t, text(t, res))
}

func TestHandlerRoundTripThroughHelperServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	helper := &cmdsock.Server{Commands: cmdsock.CommandTable{
		"add_table": func(_ context.Context, f map[string]any) (string, error) {
			data, ok := f["data"].([]any)
			if !ok {
				return "", errors.New("data must be an array")
			}
			return "Table added with " + string(rune('0'+len(data))) + " rows", nil
		},
	}}
	go func() { done <- helper.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	client := cmdsock.NewClient(ln.Addr().(*net.TCPAddr).Port)
	res := call(t, "add_table", map[string]any{
		"file_path": "/tmp/a.odt",
		"rows":      2,
		"columns":   2,
		"data":      [][]string{{"Header 1", "Header 2"}, {"Data 1", "Data 2"}},
	}, client)

	require.False(t, res.IsError)
	require.Equal(t, "Table added with 2 rows", text(t, res))
}

func TestToolDefinitionSchema(t *testing.T) {
	spec, ok := Lookup("add_text")
	require.True(t, ok)

	tool := ToolDefinition(spec)
	require.Equal(t, "add_text", tool.Name)
	require.ElementsMatch(t, []string{"file_path", "text"}, tool.InputSchema.Required)
	require.Contains(t, tool.InputSchema.Properties, "position")

	position, ok := tool.InputSchema.Properties["position"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, []string{"beginning", "end", "current"}, position["enum"])
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	s := New(&recordingForwarder{}, "test", nil)
	err := Serve(context.Background(), s, ServeOptions{Transport: "pigeon"})
	require.ErrorContains(t, err, "pigeon")
}

func TestServeStdioEndsWithInput(t *testing.T) {
	s := New(&recordingForwarder{}, "test", nil)
	err := Serve(context.Background(), s, ServeOptions{
		Transport: TransportStdio,
		In:        eofReader{},
		Out:       io.Discard,
	})
	require.NoError(t, err)
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
