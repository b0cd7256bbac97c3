package jq

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/itchyny/gojq"
	cmdpkg "github.com/kong/officectl/internal/cmd"
	cmdcommon "github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	FlagName                    = "jq"
	RawOutputFlagName           = "jq-raw-output"
	RawOutputFlagShort          = "r"
	DefaultExpressionConfigPath = "jq.default-expression"
	RawOutputConfigPath         = "jq.raw-output"
)

var jqQueryCache sync.Map

type Settings struct {
	Filter    string
	RawOutput bool
}

func AddFlags(flags *pflag.FlagSet) {
	flags.String(
		FlagName,
		"",
		fmt.Sprintf(`Filter JSON results using a jq expression.
- Config path: [ %s ]`, DefaultExpressionConfigPath),
	)

	flags.BoolP(
		RawOutputFlagName,
		RawOutputFlagShort,
		false,
		fmt.Sprintf(`Output string jq results without JSON quotes (like jq -r).
- Config path: [ %s ]`, RawOutputConfigPath),
	)
}

func BindFlags(cfg config.Hook, flags *pflag.FlagSet) error {
	if cfg == nil || flags == nil {
		return nil
	}
	if f := flags.Lookup(RawOutputFlagName); f != nil {
		return cfg.BindFlag(RawOutputConfigPath, f)
	}
	return nil
}

func ResolveSettings(command *cobra.Command, cfg config.Hook) (Settings, error) {
	var settings Settings
	if command == nil {
		return settings, nil
	}

	flags := command.Flags()
	if flags.Lookup(FlagName) == nil {
		// Commands without --jq support should not implicitly enable jq via config.
		return settings, nil
	}

	jqFilter, err := flags.GetString(FlagName)
	if err != nil {
		return Settings{}, err
	}
	jqFilter = strings.TrimSpace(jqFilter)
	if flags.Changed(FlagName) && jqFilter == "" {
		jqFilter = "."
	}
	settings.Filter = jqFilter

	if cfg == nil {
		rawOutput, err := flags.GetBool(RawOutputFlagName)
		if err != nil {
			return Settings{}, err
		}
		settings.RawOutput = rawOutput
		return settings, nil
	}

	if !flags.Changed(FlagName) {
		if expr := strings.TrimSpace(cfg.GetString(DefaultExpressionConfigPath)); expr != "" {
			settings.Filter = expr
		}
	}
	settings.RawOutput = cfg.GetBool(RawOutputConfigPath)
	return settings, nil
}

func HasFilter(settings Settings) bool {
	return strings.TrimSpace(settings.Filter) != ""
}

func ValidateOutputFormat(outType cmdcommon.OutputFormat, settings Settings) error {
	if settings.RawOutput {
		if !HasFilter(settings) {
			return &cmdpkg.ConfigurationError{
				Err: fmt.Errorf("--%s requires --%s", RawOutputFlagName, FlagName),
			}
		}
		if outType != cmdcommon.JSON {
			return &cmdpkg.ConfigurationError{
				Err: fmt.Errorf("--%s is only supported with --output json when used with --%s",
					RawOutputFlagName, FlagName),
			}
		}
		return nil
	}

	if !HasFilter(settings) || outType == cmdcommon.JSON || outType == cmdcommon.YAML {
		return nil
	}
	return &cmdpkg.ConfigurationError{
		Err: fmt.Errorf("--%s is only supported with --output json or --output yaml", FlagName),
	}
}

// ApplyToRaw filters raw with the configured expression. When the result has
// already been written to out (raw output) the returned bool is true.
func ApplyToRaw(raw any, outType cmdcommon.OutputFormat, settings Settings, out io.Writer) (any, bool, error) {
	if !HasFilter(settings) {
		return raw, false, nil
	}

	if err := ValidateOutputFormat(outType, settings); err != nil {
		return nil, false, err
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode output before applying jq filter: %w", err)
	}

	if settings.RawOutput {
		if err := ApplyRawFilter(body, settings.Filter, out); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	filtered, err := ApplyFilter(body, settings.Filter)
	if err != nil {
		return nil, false, err
	}

	var payload any
	if err := json.Unmarshal(filtered, &payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode filtered result: %w", err)
	}
	return payload, false, nil
}

func ApplyFilter(body []byte, filter string) ([]byte, error) {
	results, err := evaluateFilterResults(body, filter)
	if err != nil {
		return nil, err
	}
	return encodeFilterResults(results)
}

func ApplyRawFilter(body []byte, filter string, out io.Writer) error {
	results, err := evaluateFilterResults(body, filter)
	if err != nil {
		return err
	}
	for _, result := range results {
		if err := writeRawValue(result, out); err != nil {
			return err
		}
	}
	return nil
}

func evaluateFilterResults(body []byte, filter string) ([]any, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = "."
	}

	if len(body) == 0 {
		return nil, errors.New("result is empty, cannot apply jq filter")
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("result is not valid JSON: %w", err)
	}

	query, err := getCachedQuery(filter)
	if err != nil {
		return nil, err
	}

	iter := query.Run(payload)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq filter failed: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

func encodeFilterResults(results []any) ([]byte, error) {
	var target any = results
	switch len(results) {
	case 0:
		return []byte("null"), nil
	case 1:
		target = results[0]
	}
	filtered, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filtered result: %w", err)
	}
	return filtered, nil
}

func writeRawValue(value any, out io.Writer) error {
	line, ok := value.(string)
	if !ok {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode filtered result: %w", err)
		}
		line = string(encoded)
	}
	_, err := fmt.Fprintln(out, line)
	return err
}

func getCachedQuery(filter string) (*gojq.Code, error) {
	if code, ok := jqQueryCache.Load(filter); ok {
		return code.(*gojq.Code), nil
	}

	parsed, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}

	jqQueryCache.Store(filter, code)
	return code, nil
}
