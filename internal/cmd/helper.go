package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kong/officectl/internal/build"
	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/cmd/root/verbs"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/iostreams"
	"github.com/kong/officectl/internal/log"
	"github.com/spf13/cobra"
)

type Helper interface {
	GetCmd() *cobra.Command
	GetArgs() []string
	GetVerb() (verbs.VerbValue, error)
	GetStreams() *iostreams.IOStreams
	GetConfig() (config.Hook, error)
	GetOutputFormat() (common.OutputFormat, error)
	GetLogger() (*slog.Logger, error)
	GetBuildInfo() (*build.Info, error)
	GetContext() context.Context
}

type CommandHelper struct {
	// Cmd is a pointer to the command that is being executed
	Cmd *cobra.Command
	// Args are the arguments (not flags) passed to the command
	Args []string
}

func (r *CommandHelper) GetCmd() *cobra.Command {
	return r.Cmd
}

func (r *CommandHelper) GetArgs() []string {
	return r.Args
}

func (r *CommandHelper) GetBuildInfo() (*build.Info, error) {
	info, ok := r.Cmd.Context().Value(build.InfoKey).(*build.Info)
	if !ok || info == nil {
		return nil, &ConfigurationError{
			Err: fmt.Errorf("no build info configured"),
		}
	}
	return info, nil
}

func (r *CommandHelper) GetLogger() (*slog.Logger, error) {
	rv, ok := r.Cmd.Context().Value(log.LoggerKey).(*slog.Logger)
	if !ok || rv == nil {
		return nil, &ConfigurationError{
			Err: fmt.Errorf("no logger configured"),
		}
	}
	return rv, nil
}

func (r *CommandHelper) GetVerb() (verbs.VerbValue, error) {
	verbVal, ok := r.Cmd.Context().Value(verbs.Verb).(verbs.VerbValue)
	if !ok {
		return "", &ConfigurationError{
			Err: fmt.Errorf("no verb found in context"),
		}
	}
	return verbVal, nil
}

func (r *CommandHelper) GetStreams() *iostreams.IOStreams {
	return r.Cmd.Context().Value(iostreams.StreamsKey).(*iostreams.IOStreams)
}

func (r *CommandHelper) GetConfig() (config.Hook, error) {
	cfgVal, ok := r.Cmd.Context().Value(config.ConfigKey).(config.Hook)
	if !ok || cfgVal == nil {
		return nil, PrepareExecutionErrorMsg(r, "no config found in context")
	}
	return cfgVal, nil
}

func (r *CommandHelper) GetOutputFormat() (common.OutputFormat, error) {
	c, e := r.GetConfig()
	if e != nil {
		return common.TEXT, e
	}
	s := c.GetStringOrElse(common.OutputConfigPath, common.DefaultOutputFormat)
	rv, e := common.OutputFormatStringToIota(s)
	if e != nil {
		return common.TEXT, &ConfigurationError{Err: e}
	}
	return rv, nil
}

func (r *CommandHelper) GetContext() context.Context {
	return r.Cmd.Context()
}

func BuildHelper(cmd *cobra.Command, args []string) Helper {
	return &CommandHelper{
		Cmd:  cmd,
		Args: args,
	}
}

// ConfigurationError represents errors that are a result of bad flags, combinations of
// flags, configuration settings, environment values, or other command usage issues.
type ConfigurationError struct {
	Err error
}

// ExecutionError represents errors that occur after a command has been validated and an
// unsuccessful result occurs. An unreachable helper or an error reply from it are
// examples of ExecutionError types.
type ExecutionError struct {
	// friendly error message to display to the user
	Msg string
	// Err is the error that occurred during execution
	Err error
	// Optional attributes that can be used to provide additional context to the error
	Attrs []any
}

// ExitError carries a process exit code out of a command that has already
// reported its own failure.
type ExitError struct {
	Code int
}

func (e *ConfigurationError) Error() string {
	return e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError silences cobra's own reporting on cmd and returns an ExitError.
func NewExitError(cmd *cobra.Command, code int) *ExitError {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return &ExitError{Code: code}
}

// Will try and json unmarshal an error string into a slice of interfaces
// that match the slog algorithm for varadic parameters (alternating key value pairs)
func TryConvertErrorToAttrs(err error) []any {
	var result map[string]any
	umError := json.Unmarshal([]byte(err.Error()), &result)
	if umError != nil {
		return nil
	}
	attrs := make([]any, 0, len(result)*2)
	for k, v := range result {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// PrepareExecutionErrorWithHelper mirrors PrepareExecutionError but accepts a Helper.
func PrepareExecutionErrorWithHelper(helper Helper, msg string, err error, attrs ...any) *ExecutionError {
	if helper == nil {
		return PrepareExecutionError(msg, err, nil, attrs...)
	}
	if verb, verr := helper.GetVerb(); verr == nil {
		attrs = append(attrs, "verb", verb.String())
	}
	return PrepareExecutionError(msg, err, helper.GetCmd(), attrs...)
}

// PrepareExecutionErrorFromErr converts an arbitrary error into an ExecutionError. The
// friendly message is the underlying error string.
func PrepareExecutionErrorFromErr(helper Helper, err error, attrs ...any) *ExecutionError {
	if err == nil {
		return nil
	}
	return PrepareExecutionErrorWithHelper(helper, err.Error(), err, attrs...)
}

// PrepareExecutionErrorMsg builds an ExecutionError from a message when a backing error
// is not already available.
func PrepareExecutionErrorMsg(helper Helper, msg string, attrs ...any) *ExecutionError {
	if msg == "" {
		return PrepareExecutionErrorWithHelper(helper, msg, errors.New("an unknown error occurred"), attrs...)
	}
	return PrepareExecutionErrorWithHelper(helper, msg, errors.New(msg), attrs...)
}

// This will construct an execution error AND turn off error and usage output for the command
func PrepareExecutionError(msg string, err error, cmd *cobra.Command, attrs ...any) *ExecutionError {
	if cmd != nil {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
	}

	return &ExecutionError{
		Msg:   msg,
		Err:   err,
		Attrs: attrs,
	}
}
