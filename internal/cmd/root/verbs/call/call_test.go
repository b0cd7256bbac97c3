package call

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/cmdsock"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/iostreams"
	"github.com/kong/officectl/internal/mcpserver"
	testcmd "github.com/kong/officectl/test/cmd"
	testconfig "github.com/kong/officectl/test/config"
	"github.com/stretchr/testify/require"
)

func startHelper(t *testing.T, commands cmdsock.CommandTable) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- (&cmdsock.Server{Commands: commands}).Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().(*net.TCPAddr).Port
}

type invocation struct {
	args   []string
	flags  map[string]string
	format common.OutputFormat
	port   int
	stdin  string
}

func invoke(t *testing.T, inv invocation) (*bytes.Buffer, error) {
	t.Helper()
	streams, in, out, _ := iostreams.NewTestIOStreams()
	in.WriteString(inv.stdin)

	c := NewCallCmd()
	for k, v := range inv.flags {
		require.NoError(t, c.Flags().Set(k, v))
	}
	helper := &testcmd.MockHelper{
		Cmd:     c,
		Args:    inv.args,
		Streams: streams,
		Output:  inv.format,
		Config: &testconfig.MockConfigHook{Values: map[string]any{
			config.HelperPortConfigPath: inv.port,
		}},
	}
	require.NoError(t, bindFlags(helper))
	return out, run(helper)
}

func TestCallForwardsTypedArguments(t *testing.T) {
	var got map[string]any
	port := startHelper(t, cmdsock.CommandTable{
		"add_table": func(_ context.Context, fields map[string]any) (string, error) {
			got = fields
			return "Table added", nil
		},
	})

	out, err := invoke(t, invocation{
		args:   []string{"add_table", "file_path=/tmp/r.odt", "rows=2", "columns=2", `data=[["a","b"],["c","d"]]`},
		format: common.TEXT,
		port:   port,
	})
	require.NoError(t, err)
	require.Equal(t, "Table added\n", out.String())
	require.Equal(t, "/tmp/r.odt", got["file_path"])
	require.InDelta(t, 2, got["rows"], 0)
	require.Equal(t, []any{[]any{"a", "b"}, []any{"c", "d"}}, got["data"])
}

func TestCallStructuredOutputWithJQ(t *testing.T) {
	port := startHelper(t, cmdsock.CommandTable{
		"get_document_properties": func(context.Context, map[string]any) (string, error) {
			return `{"title":"Report","author":"ops"}`, nil
		},
	})

	out, err := invoke(t, invocation{
		args:   []string{"get_document_properties", "file_path=/tmp/r.odt"},
		flags:  map[string]string{"jq": ".title"},
		format: common.JSON,
		port:   port,
	})
	require.NoError(t, err)
	var title string
	require.NoError(t, json.Unmarshal(out.Bytes(), &title))
	require.Equal(t, "Report", title)
}

func TestCallStructuredTextIsIndented(t *testing.T) {
	port := startHelper(t, cmdsock.CommandTable{
		"list_documents": func(context.Context, map[string]any) (string, error) {
			return `[{"name":"a.odt"}]`, nil
		},
	})

	out, err := invoke(t, invocation{
		args:   []string{"list_documents", "directory=/tmp"},
		format: common.TEXT,
		port:   port,
	})
	require.NoError(t, err)
	require.Equal(t, "[\n  {\n    \"name\": \"a.odt\"\n  }\n]\n", out.String())
}

func TestCallArgsFile(t *testing.T) {
	var got map[string]any
	port := startHelper(t, cmdsock.CommandTable{
		"add_heading": func(_ context.Context, fields map[string]any) (string, error) {
			got = fields
			return "ok", nil
		},
	})

	path := filepath.Join(t.TempDir(), "args.yaml")
	require.NoError(t, os.WriteFile(path, []byte("file_path: /tmp/r.odt\ntext: From file\nlevel: 2\n"), 0o600))

	_, err := invoke(t, invocation{
		args:   []string{"add_heading", "text=Override"},
		flags:  map[string]string{ArgsFileFlagName: path},
		format: common.TEXT,
		port:   port,
	})
	require.NoError(t, err)
	require.Equal(t, "Override", got["text"])
	require.InDelta(t, 2, got["level"], 0)

	_, err = invoke(t, invocation{
		args:   []string{"add_heading"},
		flags:  map[string]string{ArgsFileFlagName: "-"},
		format: common.TEXT,
		port:   port,
		stdin:  `{"file_path": "/tmp/s.odt", "text": "From stdin", "level": 1}`,
	})
	require.NoError(t, err)
	require.Equal(t, "From stdin", got["text"])
}

func TestCallHelperErrorIsExecutionError(t *testing.T) {
	port := startHelper(t, cmdsock.CommandTable{
		"delete_slide": func(context.Context, map[string]any) (string, error) {
			return "", errors.New("Slide index 9 out of range")
		},
	})

	_, err := invoke(t, invocation{
		args:   []string{"delete_slide", "file_path=/tmp/p.odp", "slide_index=9"},
		format: common.TEXT,
		port:   port,
	})
	var execErr *cmd.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "Slide index 9 out of range", execErr.Msg)
}

func TestCallUsageErrors(t *testing.T) {
	var cfgErr *cmd.ConfigurationError

	_, err := invoke(t, invocation{args: []string{"make_coffee"}, port: 1})
	require.ErrorAs(t, err, &cfgErr)
	require.ErrorContains(t, err, `unknown tool "make_coffee"`)

	_, err = invoke(t, invocation{args: []string{"add_text", "text=hi"}, port: 1})
	require.ErrorAs(t, err, &cfgErr)
	require.ErrorContains(t, err, "missing required arguments: file_path")

	_, err = invoke(t, invocation{
		args:   []string{"read_text_document", "file_path=/tmp/a.odt"},
		flags:  map[string]string{"jq": "."},
		format: common.TEXT,
		port:   1,
	})
	require.ErrorAs(t, err, &cfgErr)
}

func TestParseArgument(t *testing.T) {
	spec, ok := mcpserver.Lookup("add_table")
	require.True(t, ok)

	name, v, err := ParseArgument(spec, "rows=3")
	require.NoError(t, err)
	require.Equal(t, "rows", name)
	require.InDelta(t, 3.0, v, 0)

	_, _, err = ParseArgument(spec, "rows=three")
	require.ErrorContains(t, err, "not a number")

	_, _, err = ParseArgument(spec, "rows")
	require.ErrorContains(t, err, "name=value")

	_, _, err = ParseArgument(spec, "colour=red")
	require.ErrorContains(t, err, `no parameter "colour"`)

	_, v, err = ParseArgument(spec, "file_path=/tmp/a=b.odt")
	require.NoError(t, err)
	require.Equal(t, "/tmp/a=b.odt", v)
}
