package serve

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kong/officectl/internal/cmd"
	"github.com/kong/officectl/internal/config"
	"github.com/kong/officectl/internal/iostreams"
	"github.com/kong/officectl/internal/office"
	"github.com/kong/officectl/internal/supervisor"
	testcmd "github.com/kong/officectl/test/cmd"
	testconfig "github.com/kong/officectl/test/config"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type child struct {
	spec supervisor.Spec
	pid  int
	rec  *recorder
	once sync.Once
	done chan struct{}
}

func (c *child) Role() string          { return c.spec.Role }
func (c *child) PID() int              { return c.pid }
func (c *child) Spec() supervisor.Spec { return c.spec }
func (c *child) Done() <-chan struct{} { return c.done }
func (c *child) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *child) Terminate() error {
	c.rec.add("terminate " + c.spec.Role)
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *child) Kill() error { return c.Terminate() }

type launcher struct {
	rec  *recorder
	next int
}

func (l *launcher) Launch(spec supervisor.Spec) (supervisor.Handle, error) {
	l.next++
	l.rec.add("launch " + spec.Role + " " + spec.Path)
	return &child{spec: spec, pid: 1000 + l.next, rec: l.rec, done: make(chan struct{})}, nil
}

type nopJournal struct{}

func (nopJournal) Track(string, int, int, string, []string) error { return nil }
func (nopJournal) Forget(int) error                               { return nil }

func linuxPlatform() office.Platform {
	return office.Platform{
		GOOS:       "linux",
		Exists:     func(string) bool { return true },
		LookPath:   func(file string) (string, error) { return "/usr/bin/" + file, nil },
		Executable: func() (string, error) { return "/opt/officectl/officectl", nil },
	}
}

func runServe(t *testing.T, s *serveCmd, values map[string]any) error {
	t.Helper()
	streams, _, _, _ := iostreams.NewTestIOStreams()
	c := newServeCmd(s)
	helper := &testcmd.MockHelper{
		Cmd:     c,
		Streams: streams,
		Config:  &testconfig.MockConfigHook{Values: values},
		Ctx:     context.Background(),
	}
	require.NoError(t, bindFlags(helper))
	return s.run(helper)
}

func TestServeLeavesRunningProcessesAlone(t *testing.T) {
	rec := &recorder{}
	s := &serveCmd{
		platform: linuxPlatform(),
		probe:    func(context.Context, int) bool { return true },
		launcher: &launcher{rec: rec},
		journal:  func(string) (supervisor.Journal, error) { return nopJournal{}, nil },
	}

	require.NoError(t, runServe(t, s, nil))
	require.Empty(t, rec.all())
}

func TestServeLaunchesAndStopsInReverseOrder(t *testing.T) {
	rec := &recorder{}
	s := &serveCmd{
		platform: linuxPlatform(),
		probe:    func(context.Context, int) bool { return false },
		launcher: &launcher{rec: rec},
		journal:  func(string) (supervisor.Journal, error) { return nil, errors.New("read-only home") },
	}

	err := runServe(t, s, map[string]any{
		config.OfficeStartupDelayConfigPath: "0s",
		config.HelperStartupDelayConfigPath: "0s",
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		"launch office /usr/bin/coolwsd",
		"launch helper /usr/bin/python3",
		"terminate helper",
		"terminate office",
	}, rec.all())
}

func TestServeStartupFailureExitsOne(t *testing.T) {
	p := linuxPlatform()
	p.GOOS = "plan9"
	s := &serveCmd{
		platform: p,
		probe:    func(context.Context, int) bool { return false },
		launcher: &launcher{rec: &recorder{}},
	}

	err := runServe(t, s, nil)
	var exitErr *cmd.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.Code)
}

func TestServeRejectsInvalidSettings(t *testing.T) {
	s := &serveCmd{platform: linuxPlatform()}

	err := runServe(t, s, map[string]any{
		config.OfficePortConfigPath: 9000,
		config.HelperPortConfigPath: 9000,
	})
	var cfgErr *cmd.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.ErrorIs(t, err, config.ErrInvalidSettings)
}

func TestServeFlags(t *testing.T) {
	c := NewServeCmd()
	for _, b := range bindings {
		require.NotNil(t, c.Flags().Lookup(b.flag), b.flag)
	}
	require.Error(t, c.Flags().Set(ReadinessFlagName, "sometimes"))
	require.NoError(t, c.Flags().Set(TransportFlagName, config.MCPTransportSSE))
}
