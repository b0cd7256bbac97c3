package serve

import (
	"context"
	"fmt"

	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/cmd/root/verbs"
	"github.com/kong/officectl/internal/cmdsock"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/mcpserver"
	"github.com/kong/officectl/internal/meta"
	"github.com/kong/officectl/internal/office"
	"github.com/kong/officectl/internal/orchestrator"
	"github.com/kong/officectl/internal/processes"
	"github.com/kong/officectl/internal/supervisor"
	"github.com/kong/officectl/internal/util/normalizers"
	"github.com/spf13/cobra"
)

const (
	OfficePortFlagName     = "office-port"
	ProfileDirFlagName     = "profile-dir"
	HelperPortFlagName     = "helper-port"
	HelperScriptFlagName   = "helper-script"
	ReadinessFlagName      = "readiness"
	GracePeriodFlagName    = "grace-period"
	TransportFlagName      = "transport"
	ListenFlagName         = "listen"
	ForwardTimeoutFlagName = "forward-timeout"
)

var (
	use   = "serve"
	short = "Run the office suite, the helper and the MCP tool server"
	long  = normalizers.LongDesc(`
Start the office suite and the document helper if they are not already
listening on their ports, then serve the document tools over MCP until the
client disconnects or the process is interrupted. Processes started by this
command are stopped when it exits; processes found already running are left
alone.`)
	example = normalizers.Examples(fmt.Sprintf(`
		# Serve over stdio with the default ports
		%[1]s serve
		# Wait for ports to bind instead of sleeping a fixed delay
		%[1]s serve --readiness poll
		# Serve MCP over SSE
		%[1]s serve --transport sse --listen localhost:9090
		`, meta.CLIName))
)

type flagBinding struct {
	flag       string
	configPath string
}

var bindings = []flagBinding{
	{OfficePortFlagName, config.OfficePortConfigPath},
	{ProfileDirFlagName, config.OfficeProfileDirConfigPath},
	{HelperPortFlagName, config.HelperPortConfigPath},
	{HelperScriptFlagName, config.HelperScriptConfigPath},
	{ReadinessFlagName, config.ReadinessModeConfigPath},
	{GracePeriodFlagName, config.ShutdownGracePeriodConfigPath},
	{TransportFlagName, config.MCPTransportConfigPath},
	{ListenFlagName, config.MCPListenConfigPath},
	{ForwardTimeoutFlagName, config.ForwardTimeoutConfigPath},
}

type serveCmd struct {
	platform office.Platform
	probe    supervisor.PortProbe
	launcher supervisor.Launcher
	journal  func(profile string) (supervisor.Journal, error)
}

// NewServeCmd builds the serve verb.
func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCmd{
		platform: office.HostPlatform(),
		journal:  defaultJournal,
	})
}

func newServeCmd(s *serveCmd) *cobra.Command {
	c := &cobra.Command{
		Use:              use,
		Short:            short,
		Long:             long,
		Example:          example,
		Args:             verbs.NoPositionalArgs,
		PersistentPreRun: verbs.WithVerb(verbs.Serve),
		PreRunE: func(c *cobra.Command, args []string) error {
			return bindFlags(cmd.BuildHelper(c, args))
		},
		RunE: func(c *cobra.Command, args []string) error {
			return s.run(cmd.BuildHelper(c, args))
		},
	}

	f := c.Flags()
	f.Int(OfficePortFlagName, config.DefaultOfficePort,
		fmt.Sprintf("Port the office suite accepts scripting connections on.\n- Config path: [ %s ]",
			config.OfficePortConfigPath))
	f.String(ProfileDirFlagName, "",
		fmt.Sprintf("Directory for the office suite user profile (default: a temporary directory).\n- Config path: [ %s ]",
			config.OfficeProfileDirConfigPath))
	f.Int(HelperPortFlagName, config.DefaultHelperPort,
		fmt.Sprintf("Port the helper accepts commands on.\n- Config path: [ %s ]",
			config.HelperPortConfigPath))
	f.String(HelperScriptFlagName, "",
		fmt.Sprintf("Path to the helper script (default: %s next to the executable).\n- Config path: [ %s ]",
			office.HelperScriptName, config.HelperScriptConfigPath))
	f.Var(cmd.NewEnum([]string{config.ReadinessModeDelay, config.ReadinessModePoll}, config.ReadinessModeDelay),
		ReadinessFlagName,
		fmt.Sprintf("How to wait for a launched process.\n- Config path: [ %s ]\n- Allowed    : [ delay|poll ]",
			config.ReadinessModeConfigPath))
	f.Duration(GracePeriodFlagName, config.DefaultGracePeriod,
		fmt.Sprintf("Time a child gets to exit after SIGTERM before it is killed.\n- Config path: [ %s ]",
			config.ShutdownGracePeriodConfigPath))
	f.Var(cmd.NewEnum([]string{config.MCPTransportStdio, config.MCPTransportSSE}, config.MCPTransportStdio),
		TransportFlagName,
		fmt.Sprintf("MCP transport.\n- Config path: [ %s ]\n- Allowed    : [ stdio|sse ]",
			config.MCPTransportConfigPath))
	f.String(ListenFlagName, config.DefaultMCPListen,
		fmt.Sprintf("Address for the SSE transport.\n- Config path: [ %s ]", config.MCPListenConfigPath))
	f.Duration(ForwardTimeoutFlagName, config.DefaultForwardTimeout,
		fmt.Sprintf("Deadline for one helper round trip.\n- Config path: [ %s ]", config.ForwardTimeoutConfigPath))

	return c
}

func bindFlags(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	for _, b := range bindings {
		if err := cfg.BindFlag(b.configPath, helper.GetCmd().Flags().Lookup(b.flag)); err != nil {
			return err
		}
	}
	return nil
}

func defaultJournal(profile string) (supervisor.Journal, error) {
	j, err := processes.NewJournal(profile)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (s *serveCmd) run(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	logger, err := helper.GetLogger()
	if err != nil {
		return err
	}
	info, err := helper.GetBuildInfo()
	if err != nil {
		return err
	}

	settings, err := config.LoadSettings(cfg)
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}

	var journal supervisor.Journal
	if s.journal != nil {
		if journal, err = s.journal(cfg.GetProfile()); err != nil {
			logger.Warn("process records disabled", "error", err)
			journal = nil
		}
	}

	streams := helper.GetStreams()
	opts := office.Options{
		Platform:           s.platform,
		OfficePort:         settings.OfficePort,
		ProfileDir:         settings.OfficeProfileDir,
		OfficeStartupDelay: settings.OfficeStartupDelay,
		HelperPort:         settings.HelperPort,
		HelperScript:       settings.HelperScript,
		HelperStartupDelay: settings.HelperStartupDelay,
		ReadinessMode:      settings.ReadinessMode,
		PollInterval:       settings.PollInterval,
		// stdout belongs to the MCP stdio transport.
		Output:   streams.ErrOut,
		Probe:    s.probe,
		Logger:   logger,
		Launcher: s.launcher,
	}

	client := cmdsock.NewClient(settings.HelperPort,
		cmdsock.WithTimeout(settings.ForwardTimeout),
		cmdsock.WithMaxResponseBytes(settings.MaxResponseBytes),
		cmdsock.WithLogger(logger),
	)
	mcp := mcpserver.New(client, info.Version, logger)

	o := orchestrator.New(orchestrator.Config{
		Office:   office.NewOfficeSupervisor(opts),
		Helper:   office.NewHelperSupervisor(opts),
		Registry: supervisor.NewRegistry(settings.GracePeriod, logger, journal),
		Logger:   logger,
		Suggest:  office.Suggestion,
		Server: orchestrator.ServerFunc(func(ctx context.Context) error {
			return mcpserver.Serve(ctx, mcp, mcpserver.ServeOptions{
				Transport: settings.MCPTransport,
				Listen:    settings.MCPListen,
				In:        streams.In,
				Out:       streams.Out,
				Logger:    logger,
			})
		}),
	})

	if code := o.Run(helper.GetContext()); code != orchestrator.ExitOK {
		return cmd.NewExitError(helper.GetCmd(), code)
	}
	return nil
}
