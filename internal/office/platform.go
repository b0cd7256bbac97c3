package office

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

var (
	ErrUnsupportedOS        = errors.New("unsupported operating system")
	ErrOfficeNotInstalled   = errors.New("neither Collabora Office nor LibreOffice executable found, please install either office suite")
	ErrInterpreterNotFound  = errors.New("no python interpreter found")
	ErrHelperScriptNotFound = errors.New("helper script not found")
)

// HelperScriptName is looked up next to the officectl executable.
const HelperScriptName = "helper.py"

var officeCandidates = map[string][]string{
	"windows": {
		`C:\Program Files\Collabora Office\program\soffice.exe`,
		`C:\Program Files (x86)\Collabora Office\program\soffice.exe`,
		`C:\Program Files\LibreOffice\program\soffice.exe`,
	},
	"linux": {
		"/usr/bin/coolwsd",
		"/usr/bin/collaboraoffice",
		"/opt/collaboraoffice/program/soffice",
		"/usr/lib/collaboraoffice/program/soffice",
	},
}

var bundledInterpreters = []string{
	`C:\Program Files\Collabora Office\program\python.exe`,
	`C:\Program Files (x86)\Collabora Office\program\python.exe`,
	`C:\Program Files\LibreOffice\program\python.exe`,
}

var hostInterpreters = []string{"python3", "python"}

// Platform is the slice of the host that executable discovery looks at.
type Platform struct {
	GOOS       string
	Exists     func(path string) bool
	LookPath   func(file string) (string, error)
	Executable func() (string, error)
}

// HostPlatform describes the machine officectl runs on.
func HostPlatform() Platform {
	return Platform{
		GOOS:       runtime.GOOS,
		Exists:     fileExists,
		LookPath:   exec.LookPath,
		Executable: os.Executable,
	}
}

// OfficeCandidates returns the ordered install locations probed on goos.
func OfficeCandidates(goos string) ([]string, error) {
	candidates, ok := officeCandidates[goos]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, goos)
	}
	return append([]string(nil), candidates...), nil
}

// ResolveOffice returns the first candidate that exists.
func (p Platform) ResolveOffice() (string, error) {
	candidates, err := OfficeCandidates(p.GOOS)
	if err != nil {
		return "", err
	}
	for _, path := range candidates {
		if p.Exists(path) {
			return path, nil
		}
	}
	return "", ErrOfficeNotInstalled
}

// ResolveInterpreter prefers the interpreter bundled with the office suite on
// Windows and otherwise uses python3 or python from PATH.
func (p Platform) ResolveInterpreter() (string, error) {
	if p.GOOS == "windows" {
		for _, path := range bundledInterpreters {
			if p.Exists(path) {
				return path, nil
			}
		}
	}
	for _, name := range hostInterpreters {
		if path, err := p.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: tried %v on PATH", ErrInterpreterNotFound, hostInterpreters)
}

// ResolveHelperScript returns override when set, else helper.py in the
// directory holding the officectl executable. The working directory is never
// consulted.
func (p Platform) ResolveHelperScript(override string) (string, error) {
	path := override
	if path == "" {
		exe, err := p.Executable()
		if err != nil {
			return "", fmt.Errorf("%w: locate executable: %w", ErrHelperScriptNotFound, err)
		}
		path = filepath.Join(filepath.Dir(exe), HelperScriptName)
	}
	if !p.Exists(path) {
		return "", fmt.Errorf("%w: %s", ErrHelperScriptNotFound, path)
	}
	return path, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// Suggestion returns an operator hint for the environment errors above, or ""
// when err is none of them.
func Suggestion(err error) string {
	switch {
	case errors.Is(err, ErrOfficeNotInstalled):
		return "install Collabora Office or LibreOffice in one of the standard locations"
	case errors.Is(err, ErrInterpreterNotFound):
		return "install python3 and make sure it is on PATH"
	case errors.Is(err, ErrHelperScriptNotFound):
		return "place " + HelperScriptName + " next to the officectl executable or set helper.script"
	case errors.Is(err, ErrUnsupportedOS):
		return "run officectl on linux or windows"
	default:
		return ""
	}
}
