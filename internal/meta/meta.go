package meta

const (
	// CLIName is the binary name and the stem of config and state paths.
	CLIName = "officectl"
	// EnvPrefix prefixes every environment variable the CLI reads.
	EnvPrefix = "OFFICECTL"
	// ServerName is the name advertised to MCP clients.
	ServerName = CLIName
)
