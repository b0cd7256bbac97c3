package build

// Info describes the running binary.
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Date    string `json:"date,omitempty" yaml:"date,omitempty"`
}

type Key struct{}

// InfoKey stores *Info in a command context.
var InfoKey = Key{}
