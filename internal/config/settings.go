package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Configuration paths read by LoadSettings.
const (
	OfficePortConfigPath         = "office.port"
	OfficeProfileDirConfigPath   = "office.profile-dir"
	OfficeStartupDelayConfigPath = "office.startup-delay"

	HelperPortConfigPath         = "helper.port"
	HelperScriptConfigPath       = "helper.script"
	HelperStartupDelayConfigPath = "helper.startup-delay"

	ReadinessModeConfigPath         = "readiness.mode"
	ReadinessPollIntervalConfigPath = "readiness.poll-interval"

	ShutdownGracePeriodConfigPath = "shutdown.grace-period"

	ForwardTimeoutConfigPath          = "forward.timeout"
	ForwardMaxResponseBytesConfigPath = "forward.max-response-bytes"

	MCPTransportConfigPath = "mcp.transport"
	MCPListenConfigPath    = "mcp.listen"
)

const (
	DefaultOfficePort          = 2002
	DefaultHelperPort          = 8765
	DefaultStartupDelay        = 3 * time.Second
	DefaultPollInterval        = 250 * time.Millisecond
	DefaultGracePeriod         = 5 * time.Second
	DefaultForwardTimeout      = 30 * time.Second
	DefaultMaxResponseBytes    = 16384
	DefaultMCPListen           = "localhost:8080"
	ReadinessModeDelay         = "delay"
	ReadinessModePoll          = "poll"
	MCPTransportStdio          = "stdio"
	MCPTransportSSE            = "sse"
	defaultReadinessModeConfig = ReadinessModeDelay
)

var (
	readinessModes = []string{ReadinessModeDelay, ReadinessModePoll}
	mcpTransports  = []string{MCPTransportStdio, MCPTransportSSE}
)

// ErrInvalidSettings wraps every validation failure from LoadSettings.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the typed view of the control-plane configuration.
type Settings struct {
	OfficePort         int
	OfficeProfileDir   string
	OfficeStartupDelay time.Duration

	HelperPort         int
	HelperScript       string
	HelperStartupDelay time.Duration

	ReadinessMode string
	PollInterval  time.Duration

	GracePeriod time.Duration

	ForwardTimeout   time.Duration
	MaxResponseBytes int

	MCPTransport string
	MCPListen    string
}

// LoadSettings reads and validates the control-plane settings from cfg,
// applying defaults for anything unset.
func LoadSettings(cfg Hook) (Settings, error) {
	s := Settings{
		OfficePort:         cfg.GetIntOrElse(OfficePortConfigPath, DefaultOfficePort),
		OfficeProfileDir:   cfg.GetString(OfficeProfileDirConfigPath),
		OfficeStartupDelay: cfg.GetDurationOrElse(OfficeStartupDelayConfigPath, DefaultStartupDelay),
		HelperPort:         cfg.GetIntOrElse(HelperPortConfigPath, DefaultHelperPort),
		HelperScript:       cfg.GetString(HelperScriptConfigPath),
		HelperStartupDelay: cfg.GetDurationOrElse(HelperStartupDelayConfigPath, DefaultStartupDelay),
		ReadinessMode:      cfg.GetStringOrElse(ReadinessModeConfigPath, defaultReadinessModeConfig),
		PollInterval:       cfg.GetDurationOrElse(ReadinessPollIntervalConfigPath, DefaultPollInterval),
		GracePeriod:        cfg.GetDurationOrElse(ShutdownGracePeriodConfigPath, DefaultGracePeriod),
		ForwardTimeout:     cfg.GetDurationOrElse(ForwardTimeoutConfigPath, DefaultForwardTimeout),
		MaxResponseBytes:   cfg.GetIntOrElse(ForwardMaxResponseBytesConfigPath, DefaultMaxResponseBytes),
		MCPTransport:       cfg.GetStringOrElse(MCPTransportConfigPath, MCPTransportStdio),
		MCPListen:          cfg.GetStringOrElse(MCPListenConfigPath, DefaultMCPListen),
	}
	return s, s.Validate()
}

// Validate reports every invalid field at once.
func (s Settings) Validate() error {
	var errs []error
	checkPort := func(key string, port int) {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s: port %d out of range", key, port))
		}
	}
	checkDuration := func(key string, d time.Duration) {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: negative duration %s", key, d))
		}
	}

	checkPort(OfficePortConfigPath, s.OfficePort)
	checkPort(HelperPortConfigPath, s.HelperPort)
	if s.OfficePort == s.HelperPort {
		errs = append(errs, fmt.Errorf("%s and %s must differ", OfficePortConfigPath, HelperPortConfigPath))
	}
	checkDuration(OfficeStartupDelayConfigPath, s.OfficeStartupDelay)
	checkDuration(HelperStartupDelayConfigPath, s.HelperStartupDelay)
	checkDuration(ShutdownGracePeriodConfigPath, s.GracePeriod)
	checkDuration(ForwardTimeoutConfigPath, s.ForwardTimeout)
	if s.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s: must be positive", ReadinessPollIntervalConfigPath))
	}
	if s.MaxResponseBytes < 0 {
		errs = append(errs, fmt.Errorf("%s: must not be negative", ForwardMaxResponseBytesConfigPath))
	}
	if !slices.Contains(readinessModes, s.ReadinessMode) {
		errs = append(errs, fmt.Errorf("%s: %q is not one of %v", ReadinessModeConfigPath, s.ReadinessMode, readinessModes))
	}
	if !slices.Contains(mcpTransports, s.MCPTransport) {
		errs = append(errs, fmt.Errorf("%s: %q is not one of %v", MCPTransportConfigPath, s.MCPTransport, mcpTransports))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}
