package status

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/iostreams"
	"github.com/kong/officectl/internal/processes"
	testcmd "github.com/kong/officectl/test/cmd"
	testconfig "github.com/kong/officectl/test/config"
	"github.com/stretchr/testify/require"
)

func runStatus(t *testing.T, s *statusCmd, format common.OutputFormat) string {
	t.Helper()
	streams, _, out, _ := iostreams.NewTestIOStreams()
	helper := &testcmd.MockHelper{
		Cmd:     newStatusCmd(s),
		Streams: streams,
		Output:  format,
		Config: &testconfig.MockConfigHook{Values: map[string]any{
			config.OfficePortConfigPath: 2002,
			config.HelperPortConfigPath: 8765,
		}},
	}
	require.NoError(t, s.run(helper))
	return out.String()
}

func TestStatusText(t *testing.T) {
	s := &statusCmd{
		probe: func(_ context.Context, port int) bool { return port == 2002 },
		records: func() ([]processes.StoredRecord, error) {
			return nil, errors.New("no config dir")
		},
	}

	out := runStatus(t, s, common.TEXT)
	require.Equal(t, ""+
		"ROLE    PORT  LISTENING  STARTED BY officectl\n"+
		"office  2002  true       -\n"+
		"helper  8765  false      -\n", out)
}

func TestStatusJSONReportsOwner(t *testing.T) {
	self := os.Getpid()
	s := &statusCmd{
		probe: func(context.Context, int) bool { return true },
		records: func() ([]processes.StoredRecord, error) {
			return []processes.StoredRecord{
				{Record: processes.Record{PID: self, Role: "helper", Port: 8765}},
				{Record: processes.Record{PID: self, Role: "office", Port: 9999}},
			}, nil
		},
	}

	var items []componentStatus
	require.NoError(t, json.Unmarshal([]byte(runStatus(t, s, common.JSON)), &items))
	require.Equal(t, []componentStatus{
		{Role: "office", Port: 2002, Listening: true},
		{Role: "helper", Port: 8765, Listening: true, PID: self},
	}, items)
}
