package jq

import (
	"bytes"
	"testing"
	"time"

	cmdpkg "github.com/kong/officectl/internal/cmd"
	cmdcommon "github.com/kong/officectl/internal/cmd/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

type stubConfig struct {
	values     map[string]string
	boolValues map[string]bool
}

func (s stubConfig) Save() error                 { return nil }
func (s stubConfig) GetString(key string) string { return s.values[key] }
func (s stubConfig) GetStringOrElse(key, orElse string) string {
	if v := s.values[key]; v != "" {
		return v
	}
	return orElse
}
func (s stubConfig) GetBool(key string) bool               { return s.boolValues[key] }
func (s stubConfig) GetInt(string) int                     { return 0 }
func (s stubConfig) GetIntOrElse(_ string, orElse int) int { return orElse }
func (s stubConfig) GetDurationOrElse(_ string, orElse time.Duration) time.Duration {
	return orElse
}
func (s stubConfig) GetStringSlice(string) []string     { return nil }
func (s stubConfig) SetString(string, string)           {}
func (s stubConfig) Set(string, any)                    {}
func (s stubConfig) Get(string) any                     { return nil }
func (s stubConfig) IsSet(string) bool                  { return false }
func (s stubConfig) BindFlag(string, *pflag.Flag) error { return nil }
func (s stubConfig) GetProfile() string                 { return "default" }
func (s stubConfig) GetPath() string                    { return "" }

func newCommand() *cobra.Command {
	command := &cobra.Command{Use: "test"}
	AddFlags(command.Flags())
	return command
}

func TestResolveSettingsDefaults(t *testing.T) {
	settings, err := ResolveSettings(newCommand(), nil)
	require.NoError(t, err)
	require.Equal(t, Settings{}, settings)
	require.False(t, HasFilter(settings))
}

func TestResolveSettingsEmptyFilterDefaultsToIdentity(t *testing.T) {
	command := newCommand()
	require.NoError(t, command.Flags().Set(FlagName, ""))

	settings, err := ResolveSettings(command, nil)
	require.NoError(t, err)
	require.Equal(t, ".", settings.Filter)
}

func TestResolveSettingsReadsRawOutputShortFlag(t *testing.T) {
	command := newCommand()
	require.NoError(t, command.Flags().Parse([]string{"-r"}))

	settings, err := ResolveSettings(command, nil)
	require.NoError(t, err)
	require.True(t, settings.RawOutput)
}

func TestResolveSettingsDefaultExpressionFromConfig(t *testing.T) {
	cfg := stubConfig{
		values:     map[string]string{DefaultExpressionConfigPath: ".paragraphs"},
		boolValues: map[string]bool{RawOutputConfigPath: true},
	}

	settings, err := ResolveSettings(newCommand(), cfg)
	require.NoError(t, err)
	require.Equal(t, ".paragraphs", settings.Filter)
	require.True(t, settings.RawOutput)

	command := newCommand()
	require.NoError(t, command.Flags().Set(FlagName, ".title"))
	settings, err = ResolveSettings(command, cfg)
	require.NoError(t, err)
	require.Equal(t, ".title", settings.Filter)
}

func TestResolveSettingsIgnoresCommandsWithoutFlag(t *testing.T) {
	cfg := stubConfig{values: map[string]string{DefaultExpressionConfigPath: ".x"}}
	settings, err := ResolveSettings(&cobra.Command{Use: "plain"}, cfg)
	require.NoError(t, err)
	require.False(t, HasFilter(settings))
}

func TestValidateOutputFormat(t *testing.T) {
	var cfgErr *cmdpkg.ConfigurationError

	require.NoError(t, ValidateOutputFormat(cmdcommon.TEXT, Settings{}))
	require.NoError(t, ValidateOutputFormat(cmdcommon.YAML, Settings{Filter: "."}))
	require.ErrorAs(t, ValidateOutputFormat(cmdcommon.TEXT, Settings{Filter: "."}), &cfgErr)
	require.ErrorAs(t, ValidateOutputFormat(cmdcommon.JSON, Settings{RawOutput: true}), &cfgErr)
	require.ErrorAs(t, ValidateOutputFormat(cmdcommon.YAML, Settings{Filter: ".", RawOutput: true}), &cfgErr)
}

func TestApplyFilter(t *testing.T) {
	body := []byte(`{"title":"Report","paragraphs":[{"text":"a"},{"text":"b"}]}`)

	out, err := ApplyFilter(body, ".title")
	require.NoError(t, err)
	require.JSONEq(t, `"Report"`, string(out))

	out, err = ApplyFilter(body, ".paragraphs[].text")
	require.NoError(t, err)
	require.JSONEq(t, `["a","b"]`, string(out))

	out, err = ApplyFilter(body, "empty")
	require.NoError(t, err)
	require.Equal(t, "null", string(out))

	_, err = ApplyFilter(body, ".[")
	require.ErrorContains(t, err, "invalid jq expression")

	_, err = ApplyFilter([]byte("not json"), ".")
	require.ErrorContains(t, err, "not valid JSON")
}

func TestApplyToRaw(t *testing.T) {
	raw := map[string]any{"slides": []any{"Intro", "Plan"}}

	got, printed, err := ApplyToRaw(raw, cmdcommon.JSON, Settings{}, nil)
	require.NoError(t, err)
	require.False(t, printed)
	require.Equal(t, raw, got)

	got, printed, err = ApplyToRaw(raw, cmdcommon.YAML, Settings{Filter: ".slides | length"}, nil)
	require.NoError(t, err)
	require.False(t, printed)
	require.InDelta(t, 2, got, 0)

	var buf bytes.Buffer
	_, printed, err = ApplyToRaw(raw, cmdcommon.JSON, Settings{Filter: ".slides[]", RawOutput: true}, &buf)
	require.NoError(t, err)
	require.True(t, printed)
	require.Equal(t, "Intro\nPlan\n", buf.String())
}
