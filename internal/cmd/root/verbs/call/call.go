package call

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/cmd/common"
	jqoutput "github.com/kong/officectl/internal/cmd/output/jq"
	"github.com/kong/officectl/internal/cmd/root/verbs"
	"github.com/kong/officectl/internal/cmdsock"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/mcpserver"
	"github.com/kong/officectl/internal/meta"
	"github.com/kong/officectl/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	ArgsFileFlagName   = "args-file"
	HelperPortFlagName = "helper-port"
	TimeoutFlagName    = "timeout"
)

var (
	use   = "call <tool> [name=value ...]"
	short = "Invoke one document tool on a running helper"
	long  = normalizers.LongDesc(`
Send a single tool invocation to the helper and print its reply. Arguments are
given as name=value pairs; numbers, booleans and tables are parsed according
to the tool's parameter types. An arguments file (YAML or JSON) may supply
some or all of them, with name=value pairs taking precedence.`)
	example = normalizers.Examples(fmt.Sprintf(`
		# Append a paragraph
		%[1]s call add_paragraph file_path=/tmp/report.odt text="Quarterly numbers"
		# Insert a 2x2 table
		%[1]s call add_table file_path=/tmp/report.odt rows=2 columns=2 data='[["a","b"],["c","d"]]'
		# Read document metadata and keep only the title
		%[1]s call get_document_properties file_path=/tmp/report.odt -o json --jq .title
		`, meta.CLIName))
)

// NewCallCmd builds the call verb.
func NewCallCmd() *cobra.Command {
	c := &cobra.Command{
		Use:              use,
		Short:            short,
		Long:             long,
		Example:          example,
		Args:             cobra.MinimumNArgs(1),
		PersistentPreRun: verbs.WithVerb(verbs.Call),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			names := make([]string, 0)
			for _, spec := range mcpserver.Catalog() {
				names = append(names, spec.Name)
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		PreRunE: func(c *cobra.Command, args []string) error {
			return bindFlags(cmd.BuildHelper(c, args))
		},
		RunE: func(c *cobra.Command, args []string) error {
			return run(cmd.BuildHelper(c, args))
		},
	}

	c.Flags().String(ArgsFileFlagName, "", "Read tool arguments from a YAML or JSON file.")
	c.Flags().Int(HelperPortFlagName, config.DefaultHelperPort,
		fmt.Sprintf("Port the helper accepts commands on.\n- Config path: [ %s ]", config.HelperPortConfigPath))
	c.Flags().Duration(TimeoutFlagName, config.DefaultForwardTimeout,
		fmt.Sprintf("Deadline for the helper round trip.\n- Config path: [ %s ]", config.ForwardTimeoutConfigPath))
	jqoutput.AddFlags(c.Flags())

	return c
}

func bindFlags(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	flags := helper.GetCmd().Flags()
	if err := cfg.BindFlag(config.HelperPortConfigPath, flags.Lookup(HelperPortFlagName)); err != nil {
		return err
	}
	if err := cfg.BindFlag(config.ForwardTimeoutConfigPath, flags.Lookup(TimeoutFlagName)); err != nil {
		return err
	}
	return jqoutput.BindFlags(cfg, flags)
}

func run(helper cmd.Helper) error {
	args := helper.GetArgs()
	spec, ok := mcpserver.Lookup(args[0])
	if !ok {
		return &cmd.ConfigurationError{
			Err: fmt.Errorf("unknown tool %q, run '%s tools' to list the available tools", args[0], meta.CLIName),
		}
	}

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

	fields, err := collectArguments(helper, spec)
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}

	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	jqSettings, err := jqoutput.ResolveSettings(helper.GetCmd(), cfg)
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}
	if err := jqoutput.ValidateOutputFormat(outType, jqSettings); err != nil {
		return err
	}

	client := cmdsock.NewClient(settings.HelperPort,
		cmdsock.WithTimeout(settings.ForwardTimeout),
		cmdsock.WithMaxResponseBytes(settings.MaxResponseBytes),
		cmdsock.WithLogger(logger),
	)
	resp := client.Forward(helper.GetContext(), cmdsock.NewRequest(spec.Name, fields))
	if !resp.OK() {
		return cmd.PrepareExecutionErrorWithHelper(helper, resp.Message, errors.New(resp.Message),
			"tool", spec.Name, "helper", client.Addr())
	}

	return render(helper, spec, resp, outType, jqSettings)
}

// collectArguments merges the arguments file with name=value pairs and checks
// the result against the tool's parameters.
func collectArguments(helper cmd.Helper, spec mcpserver.ToolSpec) (map[string]any, error) {
	fields := map[string]any{}

	path, err := helper.GetCmd().Flags().GetString(ArgsFileFlagName)
	if err != nil {
		return nil, err
	}
	if path != "" {
		fromFile, err := readArgsFile(path, helper.GetStreams().In)
		if err != nil {
			return nil, err
		}
		for name, v := range fromFile {
			if _, ok := findParam(spec, name); !ok {
				return nil, unknownParam(spec, name)
			}
			fields[name] = v
		}
	}

	for _, pair := range helper.GetArgs()[1:] {
		name, v, err := ParseArgument(spec, pair)
		if err != nil {
			return nil, err
		}
		fields[name] = v
	}

	if missing := spec.Missing(fields); len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing required arguments: %s", spec.Name, strings.Join(missing, ", "))
	}
	return fields, nil
}

// readArgsFile reads path, or stdin when path is "-".
func readArgsFile(path string, stdin io.Reader) (map[string]any, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read arguments file: %w", err)
	}

	fields := map[string]any{}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse arguments file %s: %w", path, err)
	}
	return fields, nil
}

// ParseArgument converts one name=value pair according to the tool's
// declared parameter kind.
func ParseArgument(spec mcpserver.ToolSpec, pair string) (string, any, error) {
	name, raw, ok := strings.Cut(pair, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("argument %q is not of the form name=value", pair)
	}
	p, ok := findParam(spec, name)
	if !ok {
		return "", nil, unknownParam(spec, name)
	}

	switch p.Kind {
	case mcpserver.KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", nil, fmt.Errorf("argument %s: %q is not a number", name, raw)
		}
		return name, n, nil
	case mcpserver.KindBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", nil, fmt.Errorf("argument %s: %q is not a boolean", name, raw)
		}
		return name, b, nil
	case mcpserver.KindTable:
		var rows [][]any
		if err := yaml.Unmarshal([]byte(raw), &rows); err != nil {
			return "", nil, fmt.Errorf("argument %s: expected a list of rows: %w", name, err)
		}
		return name, rows, nil
	default:
		if len(p.Enum) > 0 && !slices.Contains(p.Enum, raw) {
			return "", nil, fmt.Errorf("argument %s: %q is not one of %v", name, raw, p.Enum)
		}
		return name, raw, nil
	}
}

func findParam(spec mcpserver.ToolSpec, name string) (mcpserver.Param, bool) {
	i := slices.IndexFunc(spec.Params, func(p mcpserver.Param) bool { return p.Name == name })
	if i < 0 {
		return mcpserver.Param{}, false
	}
	return spec.Params[i], true
}

func unknownParam(spec mcpserver.ToolSpec, name string) error {
	names := make([]string, 0, len(spec.Params))
	for _, p := range spec.Params {
		names = append(names, p.Name)
	}
	return fmt.Errorf("%s has no parameter %q (parameters: %s)", spec.Name, name, strings.Join(names, ", "))
}

func render(helper cmd.Helper, spec mcpserver.ToolSpec, resp cmdsock.Response,
	outType common.OutputFormat, jqSettings jqoutput.Settings,
) error {
	out := helper.GetStreams().Out
	var payload any = resp
	if spec.Structured {
		if err := json.Unmarshal([]byte(resp.Message), &payload); err != nil {
			return cmd.PrepareExecutionErrorWithHelper(helper, "helper returned invalid JSON", err, "tool", spec.Name)
		}
	}

	if outType == common.TEXT {
		if spec.Structured {
			indented, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(indented))
			return err
		}
		_, err := fmt.Fprintln(out, resp.Message)
		return err
	}

	filtered, printed, err := jqoutput.ApplyToRaw(payload, outType, jqSettings, out)
	if err != nil || printed {
		return err
	}

	printer, err := cli.Format(outType.String(), out)
	if err != nil {
		return err
	}
	defer printer.Flush()
	printer.Print(filtered)
	return nil
}
