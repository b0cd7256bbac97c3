package normalizers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExamplesIndentsEveryLine(t *testing.T) {
	got := Examples(`
		# Start the control plane
		officectl serve
	`)
	require.Equal(t, "  # Start the control plane\n  officectl serve", got)
	require.Empty(t, Examples("   "))
}

func TestLongDescTrims(t *testing.T) {
	require.Equal(t, "Runs things.", LongDesc("\n  Runs things.\n"))
}
