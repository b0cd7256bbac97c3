package tools

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/cmd/root/verbs"
	"github.com/kong/officectl/internal/mcpserver"
	"github.com/kong/officectl/internal/meta"
	"github.com/kong/officectl/internal/util/normalizers"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

var (
	use     = "tools [tool]"
	short   = "List the document tools served over MCP"
	example = normalizers.Examples(fmt.Sprintf(`
		# List every tool
		%[1]s tools
		# Show the parameters of one tool
		%[1]s tools add_table
		`, meta.CLIName))
)

type paramView struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Required    bool     `json:"required" yaml:"required"`
	Description string   `json:"description" yaml:"description"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

type toolView struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Structured  bool        `json:"structured,omitempty" yaml:"structured,omitempty"`
	Params      []paramView `json:"params" yaml:"params"`
}

// NewToolsCmd builds the tools verb.
func NewToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:              use,
		Short:            short,
		Example:          example,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRun: verbs.WithVerb(verbs.Tools),
		RunE: func(c *cobra.Command, args []string) error {
			return run(cmd.BuildHelper(c, args))
		},
	}
}

func view(spec mcpserver.ToolSpec) toolView {
	tv := toolView{
		Name:        spec.Name,
		Description: spec.Description,
		Structured:  spec.Structured,
		Params:      make([]paramView, 0, len(spec.Params)),
	}
	for _, p := range spec.Params {
		tv.Params = append(tv.Params, paramView{
			Name:        p.Name,
			Type:        p.Kind.String(),
			Required:    p.Required,
			Description: p.Description,
			Enum:        p.Enum,
		})
	}
	return tv
}

func run(helper cmd.Helper) error {
	var tools []toolView
	if args := helper.GetArgs(); len(args) == 1 {
		spec, ok := mcpserver.Lookup(args[0])
		if !ok {
			return &cmd.ConfigurationError{Err: fmt.Errorf("unknown tool %q", args[0])}
		}
		tools = append(tools, view(spec))
	} else {
		for _, spec := range mcpserver.Catalog() {
			tools = append(tools, view(spec))
		}
	}

	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	out := helper.GetStreams().Out
	if outType == common.TEXT {
		if len(tools) == 1 {
			return renderDetail(out, tools[0])
		}
		return renderList(out, tools)
	}

	printer, err := cli.Format(outType.String(), out)
	if err != nil {
		return err
	}
	defer printer.Flush()
	if len(tools) == 1 {
		printer.Print(tools[0])
	} else {
		printer.Print(tools)
	}
	return nil
}

func renderList(out io.Writer, tools []toolView) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "NAME\tPARAMETERS\tDESCRIPTION"); err != nil {
		return err
	}
	for _, t := range tools {
		names := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			name := p.Name
			if !p.Required {
				name = "[" + name + "]"
			}
			names = append(names, name)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, strings.Join(names, " "), t.Description); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func renderDetail(out io.Writer, t toolView) error {
	if _, err := fmt.Fprintf(out, "%s\n  %s\n\n", t.Name, t.Description); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "PARAMETER\tTYPE\tREQUIRED\tDESCRIPTION"); err != nil {
		return err
	}
	for _, p := range t.Params {
		desc := p.Description
		if len(p.Enum) > 0 {
			desc += " (one of: " + strings.Join(p.Enum, ", ") + ")"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.Name, p.Type, p.Required, desc); err != nil {
			return err
		}
	}
	return tw.Flush()
}
