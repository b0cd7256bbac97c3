package root

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kong/officectl/internal/build"
	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/cmd/root/verbs/call"
	"github.com/kong/officectl/internal/cmd/root/verbs/ps"
	"github.com/kong/officectl/internal/cmd/root/verbs/serve"
	"github.com/kong/officectl/internal/cmd/root/verbs/status"
	"github.com/kong/officectl/internal/cmd/root/verbs/tools"
	"github.com/kong/officectl/internal/cmd/root/version"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/iostreams"
	"github.com/kong/officectl/internal/log"
	"github.com/kong/officectl/internal/meta"
	"github.com/kong/officectl/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

var (
	rootLong = normalizers.LongDesc(`
  officectl runs an office suite headless, starts the document helper next to
  it, and serves document editing tools to MCP clients.`)

	rootShort = fmt.Sprintf("%s serves office document tools over MCP", meta.CLIName)
)

// root holds the per-invocation state the root command shares with its verbs.
type root struct {
	streams   *iostreams.IOStreams
	buildInfo *build.Info

	configFilePath        string
	defaultConfigFilePath string
	profile               string
	outputFormat          *cmd.FlagEnum
	logLevel              string
	logFile               string

	config      config.Hook
	closeLogger func() error
}

func newRoot(streams *iostreams.IOStreams, bi *build.Info) *root {
	return &root{
		streams:      streams,
		buildInfo:    bi,
		outputFormat: cmd.NewEnum(common.OutputFormats(), common.DefaultOutputFormat),
	}
}

func (r *root) command() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:               meta.CLIName,
		Short:             rootShort,
		Long:              rootLong,
		PersistentPreRunE: r.preRun,
	}

	// parses all flags not just the target command
	rootCmd.TraverseChildren = true

	// An unresolvable default is reported by preRun unless --config-file is given.
	r.defaultConfigFilePath, _ = config.GetDefaultConfigFilePath()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&r.configFilePath, common.ConfigFilePathFlagName, r.defaultConfigFilePath,
		"Path to the configuration file to load.")
	flags.StringVarP(&r.profile, common.ProfileFlagName, common.ProfileFlagShort, common.DefaultProfile,
		fmt.Sprintf("Specify the profile to use for this command.\n- Env        : [ %s_PROFILE ]", meta.EnvPrefix))

	// -------------------------------------------------------------------------
	// The output flag only accepts a fixed set of values, so it is backed by a
	// FlagEnum rather than a plain string.
	flags.VarP(r.outputFormat, common.OutputFlagName, common.OutputFlagShort,
		fmt.Sprintf(`Configures the output format.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.OutputConfigPath, strings.Join(r.outputFormat.Allowed, "|")))
	// -------------------------------------------------------------------------

	flags.StringVar(&r.logLevel, common.LogLevelFlagName, common.DefaultLogLevel,
		fmt.Sprintf(`Configures the logging level.
- Config path: [ %s ]
- Allowed    : [ trace|debug|info|warn|error ]`, common.LogLevelConfigPath))
	flags.StringVar(&r.logFile, common.LogFileFlagName, "",
		fmt.Sprintf(`Write logs to this file; errors are also printed to stderr.
- Config path: [ %s ]`, common.LogFileConfigPath))

	psCmd, err := ps.NewPSCmd()
	if err != nil {
		return nil, err
	}
	rootCmd.AddCommand(
		serve.NewServeCmd(),
		call.NewCallCmd(),
		status.NewStatusCmd(),
		psCmd,
		tools.NewToolsCmd(),
		version.NewVersionCmd(),
	)
	return rootCmd, nil
}

// preRun loads the configuration and builds the logger before any verb runs.
func (r *root) preRun(c *cobra.Command, _ []string) error {
	// Because the profile selects the configuration section, it cannot itself
	// come from viper. The env var only applies when the flag is not given.
	if !c.Flags().Changed(common.ProfileFlagName) {
		if p, found := os.LookupEnv(meta.EnvPrefix + "_PROFILE"); found && p != "" {
			r.profile = p
		}
	}

	if r.configFilePath == "" {
		return &cmd.ConfigurationError{Err: errors.New("no config file path: set --config-file or HOME")}
	}
	cfg, err := config.GetConfig(r.configFilePath, r.profile, r.defaultConfigFilePath)
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}
	r.config = cfg

	bindings := []struct{ configPath, flag string }{
		{common.OutputConfigPath, common.OutputFlagName},
		{common.LogLevelConfigPath, common.LogLevelFlagName},
		{common.LogFileConfigPath, common.LogFileFlagName},
	}
	for _, b := range bindings {
		if err := cfg.BindFlag(b.configPath, c.Flags().Lookup(b.flag)); err != nil {
			return err
		}
	}

	logger, closeLogger, err := log.New(log.Options{
		Level:  cfg.GetStringOrElse(common.LogLevelConfigPath, common.DefaultLogLevel),
		File:   cfg.GetString(common.LogFileConfigPath),
		ErrOut: r.streams.ErrOut,
	})
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}
	r.closeLogger = closeLogger
	logger = logger.With("profile", cfg.GetProfile())

	ctx := context.WithValue(c.Context(), config.ConfigKey, config.Hook(cfg))
	ctx = context.WithValue(ctx, iostreams.StreamsKey, r.streams)
	ctx = context.WithValue(ctx, log.LoggerKey, logger)
	ctx = context.WithValue(ctx, build.InfoKey, r.buildInfo)
	c.SetContext(ctx)
	return nil
}

// Execute runs the command line in args and returns the process exit code.
func Execute(ctx context.Context, s *iostreams.IOStreams, bi *build.Info) int {
	return execute(ctx, s, bi, os.Args[1:])
}

func execute(ctx context.Context, s *iostreams.IOStreams, bi *build.Info, args []string) int {
	cobra.EnableTraverseRunHooks = true

	r := newRoot(s, bi)
	rootCmd, err := r.command()
	if err != nil {
		fmt.Fprintf(s.ErrOut, "Error: %v\n", err)
		return 1
	}
	rootCmd.SetArgs(args)
	rootCmd.SetIn(s.In)
	rootCmd.SetOut(s.Out)
	rootCmd.SetErr(s.ErrOut)

	err = rootCmd.ExecuteContext(ctx)
	if r.closeLogger != nil {
		_ = r.closeLogger()
	}
	if err == nil {
		return 0
	}

	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var executionError *cmd.ExecutionError
	if errors.As(err, &executionError) {
		r.reportExecutionError(executionError)
	}
	return 1
}

func (r *root) reportExecutionError(err *cmd.ExecutionError) {
	format := r.outputFormat.String()
	if r.config != nil {
		format = r.config.GetStringOrElse(common.OutputConfigPath, format)
	}
	if format == common.DefaultOutputFormat {
		fmt.Fprintf(r.streams.ErrOut, "Error: %s\n", err.Msg)
		if detail := err.Err.Error(); detail != err.Msg {
			fmt.Fprintf(r.streams.ErrOut, "  %s\n", detail)
		}
		return
	}

	printer, perr := cli.Format(format, r.streams.ErrOut)
	if perr != nil {
		fmt.Fprintf(r.streams.ErrOut, "Error: %s\n", err.Msg)
		return
	}
	defer printer.Flush()
	report := map[string]any{"error": err.Msg}
	if detail := err.Err.Error(); detail != err.Msg {
		report["detail"] = detail
	}
	if len(err.Attrs) > 0 {
		attrs := map[string]any{}
		for i := 0; i+1 < len(err.Attrs); i += 2 {
			attrs[fmt.Sprint(err.Attrs[i])] = err.Attrs[i+1]
		}
		report["context"] = attrs
	}
	printer.Print(report)
}
