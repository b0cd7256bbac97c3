package verbs

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const (
	Serve   = VerbValue("serve")
	Call    = VerbValue("call")
	Status  = VerbValue("status")
	PS      = VerbValue("ps")
	Tools   = VerbValue("tools")
	Version = VerbValue("version")
)

// Empty type to represent the _type_ Verb. Genesis is to support a key in a Context
type VerbKey struct{}

// Verb is a global instance of the VerbKey type
var Verb = VerbKey{}

// Will represent a specific Verb (serve, call, status, etc)
type VerbValue string

func (v VerbValue) String() string {
	return string(v)
}

// WithVerb returns a PersistentPreRun hook that records v in the command context.
func WithVerb(v VerbValue) func(*cobra.Command, []string) {
	return func(c *cobra.Command, _ []string) {
		c.SetContext(context.WithValue(c.Context(), Verb, v))
	}
}

// NoPositionalArgs rejects positional arguments for verbs configured only
// through flags.
func NoPositionalArgs(c *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument %q: %s takes no positional arguments", args[0], c.CommandPath())
	}
	return nil
}
