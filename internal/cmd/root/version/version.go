package version

import (
	"fmt"
	"io"

	"github.com/kong/officectl/internal/build"
	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/cmd/root/verbs"
	"github.com/kong/officectl/internal/meta"
	"github.com/kong/officectl/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

const (
	ShowCommitFlagName   = "show-commit"
	ShowCommitConfigPath = "version." + ShowCommitFlagName
)

var (
	versionUse   = "version"
	versionShort = fmt.Sprintf("Print the %s version", meta.CLIName)
	versionLong  = normalizers.LongDesc(`
		The version command prints the version and other optional build information.`)
	versionExample = normalizers.Examples(fmt.Sprintf(`
		# Print the simple version
		%[1]s version
		# Print the version and the git commit hash
		%[1]s version --show-commit
		`, meta.CLIName))
)

// Build a new instance of the version command
func NewVersionCmd() *cobra.Command {
	rv := &cobra.Command{
		Use:              versionUse,
		Short:            versionShort,
		Long:             versionLong,
		Example:          versionExample,
		Args:             verbs.NoPositionalArgs,
		PersistentPreRun: verbs.WithVerb(verbs.Version),
		PreRunE: func(c *cobra.Command, args []string) error {
			return bindFlags(cmd.BuildHelper(c, args))
		},
		RunE: func(c *cobra.Command, args []string) error {
			helper := cmd.BuildHelper(c, args)
			if err := validate(helper); err != nil {
				return err
			}
			return run(helper)
		},
	}

	rv.Flags().Bool(ShowCommitFlagName, false,
		fmt.Sprintf("True to show the git commit hash and build date.\n (config path = '%s')", ShowCommitConfigPath))

	return rv
}

func bindFlags(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	return cfg.BindFlag(ShowCommitConfigPath, helper.GetCmd().Flags().Lookup(ShowCommitFlagName))
}

// Validate ensures the configured command is valid
func validate(_ cmd.Helper) error {
	return nil
}

// Run performs the actual version command logic
func run(helper cmd.Helper) error {
	info, err := helper.GetBuildInfo()
	if err != nil {
		return err
	}
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}

	result := build.Info{Version: info.Version}
	if cfg.GetBool(ShowCommitConfigPath) {
		result.Commit = info.Commit
		result.Date = info.Date
	}

	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}

	if outType == common.TEXT {
		return printText(result, helper.GetStreams().Out)
	}

	p, err := cli.Format(outType.String(), helper.GetStreams().Out)
	if err != nil {
		return err
	}
	defer p.Flush()
	p.Print(result)

	return nil
}

func printText(info build.Info, out io.Writer) error {
	if _, err := fmt.Fprint(out, info.Version); err != nil {
		return err
	}
	if info.Commit != "" {
		if _, err := fmt.Fprintf(out, " (%s", info.Commit); err != nil {
			return err
		}
		if info.Date != "" {
			if _, err := fmt.Fprintf(out, ", %s", info.Date); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(out, ")"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out)
	return err
}
