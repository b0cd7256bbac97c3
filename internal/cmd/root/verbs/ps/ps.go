package ps

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/cmd/root/verbs"
	"github.com/kong/officectl/internal/meta"
	"github.com/kong/officectl/internal/processes"
	"github.com/kong/officectl/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

const (
	defaultStopTimeout = 5 * time.Second
)

var (
	use = "ps"

	short = fmt.Sprintf("Manage processes started by %s serve", meta.CLIName)
	long  = normalizers.LongDesc(fmt.Sprintf(`
List and stop office suite and helper processes recorded by %s serve. Records
outlive a serve run that was killed before it could clean up, so this is how
orphaned children are found and stopped.`, meta.CLIName))
	example = normalizers.Examples(fmt.Sprintf(`
		# List recorded processes
		%[1]s ps
		# Stop two recorded processes
		%[1]s ps stop 12345 12346
		# Stop all recorded processes, killing any that ignore SIGTERM
		%[1]s ps stop --all --force
		`, meta.CLIName))
)

type processListItem struct {
	PID       int              `json:"pid" yaml:"pid"`
	Status    processes.Status `json:"status" yaml:"status"`
	Role      string           `json:"role" yaml:"role"`
	Port      int              `json:"port,omitempty" yaml:"port,omitempty"`
	Profile   string           `json:"profile,omitempty" yaml:"profile,omitempty"`
	OwnerPID  int              `json:"owner_pid,omitempty" yaml:"owner_pid,omitempty"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	Command   string           `json:"command" yaml:"command"`
	Record    string           `json:"record_file" yaml:"record_file"`
}

type processStopResult struct {
	PID     int    `json:"pid" yaml:"pid"`
	Role    string `json:"role" yaml:"role"`
	Action  string `json:"action" yaml:"action"`
	Success bool   `json:"success" yaml:"success"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type psCmd struct {
	stopAll     bool
	force       bool
	stopTimeout time.Duration
	dir         func() (string, error)
}

// NewPSCmd builds the ps verb.
func NewPSCmd() (*cobra.Command, error) {
	return newPSCmd(&psCmd{
		stopTimeout: defaultStopTimeout,
		dir:         processes.ResolveDir,
	}), nil
}

func newPSCmd(c *psCmd) *cobra.Command {
	cmdObj := &cobra.Command{
		Use:              use,
		Short:            short,
		Long:             long,
		Example:          example,
		Args:             verbs.NoPositionalArgs,
		PersistentPreRun: verbs.WithVerb(verbs.PS),
		RunE:             c.runList,
	}

	stopCmd := &cobra.Command{
		Use:   "stop [pid...]",
		Short: "Stop recorded processes",
		Long:  "Stop recorded processes by PID or all recorded processes with --all.",
		RunE:  c.runStop,
	}
	stopCmd.Flags().BoolVar(&c.stopAll, "all", false, "Stop all recorded processes.")
	stopCmd.Flags().BoolVar(&c.force, "force", false,
		"Kill processes that are still running when the timeout expires.")
	stopCmd.Flags().DurationVar(&c.stopTimeout, "timeout", c.stopTimeout,
		"How long to wait for graceful process shutdown.")
	cmdObj.AddCommand(stopCmd)

	return cmdObj
}

func (c *psCmd) records() ([]processes.StoredRecord, error) {
	dir, err := c.dir()
	if err != nil {
		return nil, err
	}
	return processes.ListRecords(dir)
}

func (c *psCmd) runList(cmdObj *cobra.Command, args []string) error {
	helper := cmd.BuildHelper(cmdObj, args)

	records, err := c.records()
	if err != nil {
		return cmd.PrepareExecutionErrorWithHelper(helper, "failed to list recorded processes", err)
	}

	items := make([]processListItem, 0, len(records))
	for _, record := range records {
		state := processes.Inspect(record.Record)
		items = append(items, processListItem{
			PID:       record.PID,
			Status:    state.Status,
			Role:      record.Role,
			Port:      record.Port,
			Profile:   record.Profile,
			OwnerPID:  record.OwnerPID,
			CreatedAt: record.CreatedAt,
			Command:   strings.Join(append([]string{record.Executable}, record.Args...), " "),
			Record:    record.File,
		})
	}

	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	if outType == common.TEXT {
		return renderListText(helper.GetStreams().Out, items)
	}

	printer, err := cli.Format(outType.String(), helper.GetStreams().Out)
	if err != nil {
		return err
	}
	defer printer.Flush()
	printer.Print(items)

	return nil
}

func (c *psCmd) runStop(cmdObj *cobra.Command, args []string) error {
	helper := cmd.BuildHelper(cmdObj, args)

	records, err := c.records()
	if err != nil {
		return cmd.PrepareExecutionErrorWithHelper(helper, "failed to load process records", err)
	}

	targets, err := c.resolveTargets(helper.GetArgs(), records)
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}

	results := make([]processStopResult, 0, len(targets))
	var stopErrors []error
	for _, target := range targets {
		result := stopRecordedProcess(target, c.stopTimeout, c.force)
		results = append(results, result)
		if !result.Success {
			stopErrors = append(stopErrors, fmt.Errorf("pid %d: %s", result.PID, result.Detail))
		}
	}

	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	if outType == common.TEXT {
		if err := renderStopText(helper.GetStreams().Out, results); err != nil {
			return err
		}
	} else {
		printer, err := cli.Format(outType.String(), helper.GetStreams().Out)
		if err != nil {
			return err
		}
		printer.Print(results)
		printer.Flush()
	}

	if len(stopErrors) > 0 {
		return cmd.PrepareExecutionErrorWithHelper(
			helper,
			"one or more recorded processes failed to stop",
			errors.Join(stopErrors...),
		)
	}

	return nil
}

func (c *psCmd) resolveTargets(args []string, records []processes.StoredRecord) ([]processes.StoredRecord, error) {
	if c.stopAll {
		if len(args) > 0 {
			return nil, fmt.Errorf("do not provide a PID when using --all")
		}
		return records, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("provide a process PID or use --all")
	}

	byPID := make(map[int]processes.StoredRecord, len(records))
	for _, record := range records {
		byPID[record.PID] = record
	}

	targets := make([]processes.StoredRecord, 0, len(args))
	seen := make(map[int]bool, len(args))
	for _, arg := range args {
		pid, err := strconv.Atoi(arg)
		if err != nil || pid <= 0 {
			return nil, fmt.Errorf("invalid PID %q", arg)
		}
		if seen[pid] {
			continue
		}
		record, ok := byPID[pid]
		if !ok {
			return nil, fmt.Errorf("no process record found for PID %d", pid)
		}
		seen[pid] = true
		targets = append(targets, record)
	}

	return targets, nil
}

func stopRecordedProcess(record processes.StoredRecord, timeout time.Duration, force bool) processStopResult {
	result := processStopResult{
		PID:  record.PID,
		Role: record.Role,
	}

	state := processes.Inspect(record.Record)
	switch state.Status {
	case processes.StatusRunning:
		result.Action = "stop"
		detail := "sent SIGTERM and removed process record"
		if err := processes.Terminate(record.PID, timeout); err != nil {
			if !force || !errors.Is(err, processes.ErrStopTimeout) {
				result.Detail = err.Error()
				return result
			}
			if err := processes.Kill(record.PID); err != nil {
				result.Action = "kill"
				result.Detail = err.Error()
				return result
			}
			detail = "killed after timeout and removed process record"
		}
		if err := processes.RemoveRecordByPath(record.File); err != nil {
			result.Detail = fmt.Sprintf("process stopped but failed to remove record: %v", err)
			return result
		}
		result.Action = "stopped"
		result.Success = true
		result.Detail = detail
		return result
	case processes.StatusExited, processes.StatusStale:
		if err := processes.RemoveRecordByPath(record.File); err != nil {
			result.Action = "prune"
			result.Detail = fmt.Sprintf("failed to remove stale record: %v", err)
			return result
		}
		result.Action = "pruned"
		result.Success = true
		result.Detail = "removed stale process record"
		return result
	default:
		result.Action = "inspect"
		if state.CheckError != "" {
			result.Detail = state.CheckError
			return result
		}
		result.Detail = "unable to determine process state"
		return result
	}
}

func renderListText(out io.Writer, items []processListItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintf(out, "No %s processes recorded.\n", meta.CLIName)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "PID\tSTATUS\tROLE\tPORT\tPROFILE\tCREATED AT\tCOMMAND"); err != nil {
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintf(
			tw,
			"%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			item.PID,
			item.Status,
			displayOrDash(item.Role),
			portOrDash(item.Port),
			displayOrDash(item.Profile),
			item.CreatedAt.Format(time.RFC3339),
			displayOrDash(item.Command),
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func renderStopText(out io.Writer, results []processStopResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintf(out, "No %s processes matched.\n", meta.CLIName)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "PID\tROLE\tACTION\tSUCCESS\tDETAIL"); err != nil {
		return err
	}
	for _, result := range results {
		if _, err := fmt.Fprintf(
			tw,
			"%d\t%s\t%s\t%t\t%s\n",
			result.PID,
			displayOrDash(result.Role),
			result.Action,
			result.Success,
			displayOrDash(result.Detail),
		); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func portOrDash(port int) string {
	if port <= 0 {
		return "-"
	}
	return strconv.Itoa(port)
}

func displayOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
