package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kong/officectl/internal/cmd/common"
	"github.com/kong/officectl/internal/meta"
	"github.com/kong/officectl/internal/util/viper"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

const defaultConfigFileName = "config.yaml"

// ErrConfigFileNotFound is returned when an explicit --config-file is missing.
var ErrConfigFileNotFound = errors.New("the provided config file path does not exist")

// GetDefaultConfigPath returns $XDG_CONFIG_HOME/officectl, falling back to
// ~/.config/officectl.
func GetDefaultConfigPath() (string, error) {
	val, set := os.LookupEnv("XDG_CONFIG_HOME")
	if !set || val == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		val = filepath.Join(home, ".config")
	}
	return os.ExpandEnv(filepath.Join(val, meta.CLIName)), nil
}

func GetDefaultConfigFilePath() (string, error) {
	path, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(path, defaultConfigFileName), nil
}

// GetConfig loads the configuration at path for profile. An explicit path must
// exist; the default path is created with defaults on first use.
func GetConfig(path string, profile string, defaultConfigFilePath string) (*ProfiledConfig, error) {
	path = os.ExpandEnv(path)

	if _, statErr := os.Stat(path); statErr == nil {
		vip, err := viper.NewViperE(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return BuildProfiledConfig(profile, path, vip), nil
	}

	if path != defaultConfigFilePath {
		return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
	}

	vip, err := viper.InitializeDefaultViper(getDefaultConfig(profile, path), path)
	if err != nil {
		return nil, fmt.Errorf("initialize config %s: %w", path, err)
	}
	return BuildProfiledConfig(profile, path, vip), nil
}

type Key struct{}

// ConfigKey stores the Hook in a command context.
var ConfigKey = Key{}

// Hook is the narrow view of the configuration that commands use.
type Hook interface {
	// Save writes the configuration to the file system
	Save() error
	GetString(key string) string
	GetStringOrElse(key string, orElse string) string
	GetBool(key string) bool
	GetInt(key string) int
	// GetIntOrElse returns an integer value from the configuration or a default
	GetIntOrElse(key string, orElse int) int
	GetDurationOrElse(key string, orElse time.Duration) time.Duration
	GetStringSlice(key string) []string
	SetString(key string, value string)
	Set(k string, v any)
	Get(key string) any
	IsSet(key string) bool
	// BindFlag takes a specific configuration path and
	// binds it to a specific flag
	BindFlag(configPath string, f *pflag.Flag) error
	// The profile for this configuration
	GetProfile() string
	// The file path used to load this configuration
	GetPath() string
}

// ProfiledConfig is a Viper scoped to one profile section of the file.
type ProfiledConfig struct {
	*v.Viper
	subViper    *v.Viper
	ProfileName string
	Path        string
}

func (p *ProfiledConfig) GetProfile() string {
	return p.ProfileName
}

func (p *ProfiledConfig) Save() error {
	return p.WriteConfig()
}

func (p *ProfiledConfig) GetString(key string) string {
	return p.subViper.GetString(key)
}

func (p *ProfiledConfig) GetStringOrElse(key string, orElse string) string {
	if s := p.subViper.GetString(key); s != "" {
		return s
	}
	return orElse
}

func (p *ProfiledConfig) GetBool(key string) bool {
	return p.subViper.GetBool(key)
}

func (p *ProfiledConfig) GetInt(key string) int {
	return p.subViper.GetInt(key)
}

func (p *ProfiledConfig) GetIntOrElse(key string, orElse int) int {
	if p.subViper.IsSet(key) {
		return p.subViper.GetInt(key)
	}
	return orElse
}

func (p *ProfiledConfig) GetDurationOrElse(key string, orElse time.Duration) time.Duration {
	if p.subViper.IsSet(key) {
		return p.subViper.GetDuration(key)
	}
	return orElse
}

func (p *ProfiledConfig) GetStringSlice(key string) []string {
	return p.subViper.GetStringSlice(key)
}

func (p *ProfiledConfig) Get(key string) any {
	return p.subViper.Get(key)
}

func (p *ProfiledConfig) IsSet(key string) bool {
	return p.subViper.IsSet(key)
}

func (p *ProfiledConfig) BindFlag(configPath string, f *pflag.Flag) error {
	return p.subViper.BindPFlag(configPath, f)
}

func (p *ProfiledConfig) SetString(k string, v string) {
	p.subViper.Set(k, v)
}

func (p *ProfiledConfig) Set(k string, v any) {
	p.subViper.Set(k, v)
}

func (p *ProfiledConfig) GetPath() string {
	return p.Path
}

// BuildProfiledConfig scopes mainv to profile. A profile absent from the file
// still reads OFFICECTL_<PROFILE>_* variables.
func BuildProfiledConfig(profile string, path string, mainv *v.Viper) *ProfiledConfig {
	subv := mainv.Sub(profile)
	if subv == nil {
		subv = v.New()
		envPrefix := meta.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(profile, "-", "_"))
		viper.ConfigureEnvVars(subv, envPrefix)
	}

	return &ProfiledConfig{
		Viper:       mainv,
		ProfileName: profile,
		subViper:    subv,
		Path:        path,
	}
}

func getDefaultConfig(profileName, configFilePath string) map[string]any {
	logPath := filepath.Join(filepath.Dir(configFilePath), "logs", meta.CLIName+".log")

	return map[string]any{
		profileName: map[string]any{
			common.OutputConfigPath:  common.DefaultOutputFormat,
			common.LogFileConfigPath: logPath,
			"office": map[string]any{
				"port": DefaultOfficePort,
			},
			"helper": map[string]any{
				"port": DefaultHelperPort,
			},
		},
	}
}
