package status

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/cmd/root/verbs"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/meta"
	"github.com/kong/officectl/internal/office"
	"github.com/kong/officectl/internal/processes"
	"github.com/kong/officectl/internal/supervisor"
	"github.com/kong/officectl/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

var (
	use   = "status"
	short = "Show whether the office suite and the helper are listening"
	long  = normalizers.LongDesc(`
Probe the office suite and helper ports and report, for each, whether
something is listening and whether that process was started by a
` + meta.CLIName + ` serve run.`)
)

type componentStatus struct {
	Role      string `json:"role" yaml:"role"`
	Port      int    `json:"port" yaml:"port"`
	Listening bool   `json:"listening" yaml:"listening"`
	// PID is set when a live process record owns the port.
	PID int `json:"pid,omitempty" yaml:"pid,omitempty"`
}

type statusCmd struct {
	probe   supervisor.PortProbe
	records func() ([]processes.StoredRecord, error)
}

// NewStatusCmd builds the status verb.
func NewStatusCmd() *cobra.Command {
	return newStatusCmd(&statusCmd{
		probe: supervisor.DialProbe,
		records: func() ([]processes.StoredRecord, error) {
			dir, err := processes.ResolveDir()
			if err != nil {
				return nil, err
			}
			return processes.ListRecords(dir)
		},
	})
}

func newStatusCmd(s *statusCmd) *cobra.Command {
	return &cobra.Command{
		Use:              use,
		Short:            short,
		Long:             long,
		Args:             verbs.NoPositionalArgs,
		PersistentPreRun: verbs.WithVerb(verbs.Status),
		RunE: func(c *cobra.Command, args []string) error {
			return s.run(cmd.BuildHelper(c, args))
		},
	}
}

func (s *statusCmd) run(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	logger, err := helper.GetLogger()
	if err != nil {
		return err
	}
	settings, err := config.LoadSettings(cfg)
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}

	records, err := s.records()
	if err != nil {
		logger.Debug("process records unavailable", "error", err)
	}

	ctx := helper.GetContext()
	items := []componentStatus{
		{Role: office.RoleOffice, Port: settings.OfficePort},
		{Role: office.RoleHelper, Port: settings.HelperPort},
	}
	for i := range items {
		items[i].Listening = s.probe(ctx, items[i].Port)
		items[i].PID = ownerOf(records, items[i].Role, items[i].Port)
	}

	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	if outType == common.TEXT {
		return renderText(helper.GetStreams().Out, items)
	}

	printer, err := cli.Format(outType.String(), helper.GetStreams().Out)
	if err != nil {
		return err
	}
	defer printer.Flush()
	printer.Print(items)
	return nil
}

func ownerOf(records []processes.StoredRecord, role string, port int) int {
	for _, r := range records {
		if r.Role != role || r.Port != port {
			continue
		}
		if processes.Inspect(r.Record).Status == processes.StatusRunning {
			return r.PID
		}
	}
	return 0
}

func renderText(out io.Writer, items []componentStatus) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ROLE\tPORT\tLISTENING\tSTARTED BY "+meta.CLIName); err != nil {
		return err
	}
	for _, item := range items {
		owner := "-"
		if item.PID > 0 {
			owner = "pid " + strconv.Itoa(item.PID)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%t\t%s\n", item.Role, item.Port, item.Listening, owner); err != nil {
			return err
		}
	}
	return tw.Flush()
}
