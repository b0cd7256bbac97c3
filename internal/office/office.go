package office

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kong/officectl/internal/supervisor"
)

const (
	RoleOffice = "office"
	RoleHelper = "helper"

	DefaultOfficePort = 2002
	DefaultHelperPort = 8765

	profileDirName = "LibreOfficeHeadlessProfile"
)

// DefaultProfileURL is the office user-installation URL used when none is
// configured.
func DefaultProfileURL(goos string) string {
	if goos == "windows" {
		return "file:///C:/Temp/" + profileDirName
	}
	return "file:///tmp/" + profileDirName
}

// ProfileURL turns a configured profile location into a file URL. Values
// that already are URLs pass through.
func ProfileURL(goos, dir string) string {
	if dir == "" {
		return DefaultProfileURL(goos)
	}
	if strings.Contains(dir, "://") {
		return dir
	}
	p := dir
	if goos == "windows" {
		p = "/" + strings.ReplaceAll(p, `\`, "/")
	} else {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		p = filepath.ToSlash(p)
	}
	return (&url.URL{Scheme: "file", Path: path.Clean(p)}).String()
}

// OfficeArgs builds the headless launch flags, in the order the office suite
// expects them.
func OfficeArgs(profileURL string, port int) []string {
	return []string{
		"-env:UserInstallation=" + profileURL,
		"--headless",
		fmt.Sprintf("--accept=socket,host=localhost,port=%d;urp;", port),
		"--norestore",
		"--nodefault",
		"--nologo",
	}
}

// Options configures the two supervisors.
type Options struct {
	Platform Platform

	OfficePort         int
	ProfileDir         string
	OfficeStartupDelay time.Duration

	HelperPort         int
	HelperScript       string
	HelperStartupDelay time.Duration

	ReadinessMode string
	PollInterval  time.Duration

	// Output receives the children's stdout and stderr.
	Output io.Writer
	Probe  supervisor.PortProbe
	Sleep  supervisor.Sleeper
	Logger *slog.Logger
	// Launcher overrides process creation, mainly for tests.
	Launcher supervisor.Launcher
}

func (o Options) launcher() supervisor.Launcher {
	if o.Launcher != nil {
		return o.Launcher
	}
	return supervisor.ExecLauncher{Output: o.Output}
}

func (o Options) readiness(delay time.Duration) supervisor.Readiness {
	return supervisor.Readiness{
		Mode:         o.ReadinessMode,
		Delay:        delay,
		PollInterval: o.PollInterval,
		Sleep:        o.Sleep,
	}
}

// NewOfficeSupervisor ensures the office suite listens on its UNO port.
func NewOfficeSupervisor(o Options) *supervisor.Supervisor {
	port := o.OfficePort
	if port == 0 {
		port = DefaultOfficePort
	}
	return &supervisor.Supervisor{
		Role: RoleOffice,
		Port: port,
		Resolve: func() (supervisor.Spec, error) {
			exe, err := o.Platform.ResolveOffice()
			if err != nil {
				return supervisor.Spec{}, err
			}
			return supervisor.Spec{
				Path: exe,
				Args: OfficeArgs(ProfileURL(o.Platform.GOOS, o.ProfileDir), port),
			}, nil
		},
		Launcher:  o.launcher(),
		Probe:     o.Probe,
		Readiness: o.readiness(o.OfficeStartupDelay),
		Logger:    o.Logger,
	}
}

// NewHelperSupervisor ensures the helper listens on its command port.
func NewHelperSupervisor(o Options) *supervisor.Supervisor {
	port := o.HelperPort
	if port == 0 {
		port = DefaultHelperPort
	}
	officePort := o.OfficePort
	if officePort == 0 {
		officePort = DefaultOfficePort
	}
	return &supervisor.Supervisor{
		Role: RoleHelper,
		Port: port,
		Resolve: func() (supervisor.Spec, error) {
			script, err := o.Platform.ResolveHelperScript(o.HelperScript)
			if err != nil {
				return supervisor.Spec{}, err
			}
			interpreter, err := o.Platform.ResolveInterpreter()
			if err != nil {
				return supervisor.Spec{}, err
			}
			return supervisor.Spec{
				Path: interpreter,
				Args: []string{script},
				Env: []string{
					"PYTHONUNBUFFERED=1",
					"OFFICE_PORT=" + strconv.Itoa(officePort),
					"HELPER_PORT=" + strconv.Itoa(port),
				},
			}, nil
		},
		Launcher:  o.launcher(),
		Probe:     o.Probe,
		Readiness: o.readiness(o.HelperStartupDelay),
		Logger:    o.Logger,
	}
}
