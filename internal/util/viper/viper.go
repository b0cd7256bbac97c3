package viper

import (
	"strings"

	"github.com/kong/officectl/internal/meta"
	"github.com/kong/officectl/internal/util"
	v "github.com/spf13/viper"
)

// InitializeDefaultViper loads the config file at path, seeding it with
// defaultValues when it is missing or empty.
func InitializeDefaultViper(defaultValues map[string]any, path string) (*v.Viper, error) {
	if err := util.InitDir(path, 0o755); err != nil {
		return nil, err
	}

	rv := NewViper(path)
	if len(rv.AllSettings()) > 0 {
		return rv, nil
	}
	if err := rv.MergeConfigMap(defaultValues); err != nil {
		return nil, err
	}
	if err := rv.WriteConfig(); err != nil {
		return nil, err
	}
	return rv, nil
}

// NewViperE is NewViper but reports a missing or unreadable file.
func NewViperE(path string) (*v.Viper, error) {
	rv := newViper(path)
	if err := rv.ReadInConfig(); err != nil {
		return nil, err
	}
	return rv, nil
}

// NewViper returns a viper bound to path and to OFFICECTL_* variables. A
// missing file is not an error.
func NewViper(path string) *v.Viper {
	rv := newViper(path)
	_ = rv.ReadInConfig()
	return rv
}

// ConfigureEnvVars binds rv to environment variables under prefix, with
// dots and dashes in keys mapped to underscores.
func ConfigureEnvVars(rv *v.Viper, prefix string) {
	rv.SetEnvPrefix(prefix)
	rv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	rv.AutomaticEnv()
}

func newViper(path string) *v.Viper {
	rv := v.New()
	rv.SetConfigFile(path)
	ConfigureEnvVars(rv, meta.EnvPrefix)
	return rv
}
