package normalizers

import (
	"strings"
)

const Indentation = `  `

// LongDesc trims a command's long description.
func LongDesc(s string) string {
	return strings.TrimSpace(s)
}

// Examples trims an example block and re-indents each line uniformly.
func Examples(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var sb strings.Builder
	for line := range strings.Lines(s) {
		sb.WriteString(Indentation)
		sb.WriteString(strings.TrimSpace(line))
		sb.WriteByte('\n')
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
