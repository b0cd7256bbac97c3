package root

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kong/officectl/internal/build"
	"github.com/kong/officectl/internal/iostreams"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	streams, _, out, errOut := iostreams.NewTestIOStreams()
	code := execute(context.Background(), streams, &build.Info{Version: "1.2.3", Commit: "abc"}, args)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("OFFICECTL_PROFILE", "")
	return dir
}

func TestVersionText(t *testing.T) {
	dir := isolateConfig(t)

	res := runCLI(t, "version")
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "1.2.3\n", res.stdout)

	_, err := os.Stat(filepath.Join(dir, "officectl", "config.yaml"))
	require.NoError(t, err, "default config is created on first use")
}

func TestVersionJSONFromFlag(t *testing.T) {
	isolateConfig(t)

	res := runCLI(t, "version", "--show-commit", "-o", "json")
	require.Equal(t, 0, res.code, res.stderr)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	require.Equal(t, map[string]any{"version": "1.2.3", "commit": "abc"}, got)
}

func TestOutputFromConfigFile(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("work:\n  output: json\n"), 0o600))

	res := runCLI(t, "--config-file", path, "--profile", "work", "version")
	require.Equal(t, 0, res.code, res.stderr)
	require.JSONEq(t, `{"version":"1.2.3"}`, res.stdout)
}

func TestProfileFromEnvironment(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ci:\n  output: yaml\n"), 0o600))
	t.Setenv("OFFICECTL_PROFILE", "ci")

	res := runCLI(t, "--config-file", path, "version")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "version: 1.2.3")
}

func TestMissingConfigFileFails(t *testing.T) {
	isolateConfig(t)

	res := runCLI(t, "--config-file", filepath.Join(t.TempDir(), "nope.yaml"), "version")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "config file path does not exist")
}

func TestInvalidOutputFlag(t *testing.T) {
	isolateConfig(t)

	res := runCLI(t, "version", "-o", "xml")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, `invalid value "xml"`)
}

func TestCallUnknownTool(t *testing.T) {
	isolateConfig(t)

	res := runCLI(t, "call", "make_coffee")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, `unknown tool "make_coffee"`)
}

func TestCallUnreachableHelperReportsExecutionError(t *testing.T) {
	isolateConfig(t)

	res := runCLI(t, "call", "read_text_document", "file_path=/tmp/a.odt", "--helper-port", "1", "--log-level", "error")
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "Error: ")
	require.Contains(t, res.stderr, "localhost:1")
}

func TestCallHelperErrorReportNamesVerb(t *testing.T) {
	isolateConfig(t)

	res := runCLI(t, "-o", "json", "call", "read_text_document", "file_path=/tmp/a.odt",
		"--helper-port", "1", "--log-level", "error")
	require.Equal(t, 1, res.code)
	require.Regexp(t, `"verb":\s*"call"`, res.stderr)
	require.Regexp(t, `"tool":\s*"read_text_document"`, res.stderr)
}

func TestToolsListed(t *testing.T) {
	isolateConfig(t)

	res := runCLI(t, "tools")
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "create_blank_presentation")
}
