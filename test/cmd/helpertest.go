package cmd

import (
	"context"
	"log/slog"

	"github.com/kong/officectl/internal/build"
	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/cmd/root/verbs"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/iostreams"
	"github.com/kong/officectl/internal/log"
	"github.com/spf13/cobra"
)

// MockHelper implements cmd.Helper from plain fields. Mock functions, when
// set, take precedence.
type MockHelper struct {
	Cmd     *cobra.Command
	Args    []string
	Verb    verbs.VerbValue
	Streams *iostreams.IOStreams
	Config  config.Hook
	Output  common.OutputFormat
	Logger  *slog.Logger
	Build   *build.Info
	Ctx     context.Context

	GetConfigMock       func() (config.Hook, error)
	GetOutputFormatMock func() (common.OutputFormat, error)
	GetLoggerMock       func() (*slog.Logger, error)
}

func (m *MockHelper) GetCmd() *cobra.Command {
	if m.Cmd == nil {
		m.Cmd = &cobra.Command{Use: "test"}
	}
	return m.Cmd
}

func (m *MockHelper) GetArgs() []string {
	return m.Args
}

func (m *MockHelper) GetVerb() (verbs.VerbValue, error) {
	return m.Verb, nil
}

func (m *MockHelper) GetStreams() *iostreams.IOStreams {
	return m.Streams
}

func (m *MockHelper) GetConfig() (config.Hook, error) {
	if m.GetConfigMock != nil {
		return m.GetConfigMock()
	}
	return m.Config, nil
}

func (m *MockHelper) GetOutputFormat() (common.OutputFormat, error) {
	if m.GetOutputFormatMock != nil {
		return m.GetOutputFormatMock()
	}
	return m.Output, nil
}

func (m *MockHelper) GetLogger() (*slog.Logger, error) {
	if m.GetLoggerMock != nil {
		return m.GetLoggerMock()
	}
	if m.Logger == nil {
		return log.Nop(), nil
	}
	return m.Logger, nil
}

func (m *MockHelper) GetBuildInfo() (*build.Info, error) {
	if m.Build == nil {
		return &build.Info{Version: "dev"}, nil
	}
	return m.Build, nil
}

func (m *MockHelper) GetContext() context.Context {
	if m.Ctx == nil {
		return context.Background()
	}
	return m.Ctx
}
