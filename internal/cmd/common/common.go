package common

import (
	"fmt"
	"slices"
)

// OutputFormat enumerates the renderings a verb can produce.
type OutputFormat int

const (
	JSON OutputFormat = iota
	YAML
	TEXT
)

var outputFormatNames = []string{"json", "yaml", "text"}

const (
	// related to the --output flag
	DefaultOutputFormat = "text"
	OutputFlagName      = "output"
	OutputFlagShort     = "o"
	OutputConfigPath    = OutputFlagName

	// related to the --profile flag
	ProfileFlagName  = "profile"
	ProfileFlagShort = "p"
	DefaultProfile   = "default"

	// related to the --config-file flag
	ConfigFilePathFlagName = "config-file"

	// related to the --log-level flag
	LogLevelFlagName   = "log-level"
	DefaultLogLevel    = "info"
	LogLevelConfigPath = LogLevelFlagName

	// related to the --log-file flag
	LogFileFlagName   = "log-file"
	LogFileConfigPath = LogFileFlagName
)

// OutputFormats lists the accepted --output values.
func OutputFormats() []string {
	return slices.Clone(outputFormatNames)
}

func (of OutputFormat) String() string {
	return outputFormatNames[of]
}

func OutputFormatStringToIota(format string) (OutputFormat, error) {
	i := slices.Index(outputFormatNames, format)
	if i < 0 {
		return TEXT, fmt.Errorf("invalid output format %q, must be one of %v", format, outputFormatNames)
	}
	return OutputFormat(i), nil
}
