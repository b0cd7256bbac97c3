package config

import (
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

// MockConfigHook is a config.Hook for tests. Values backs every getter that
// has no Mock function set.
type MockConfigHook struct {
	Values map[string]any

	GetStringMock   func(key string) string
	GetBoolMock     func(key string) bool
	GetIntMock      func(key string) int
	SaveMock        func() error
	BindFlagMock    func(string, *pflag.Flag) error
	GetProfileMock  func() string
	GetPathMock     func() string
	BoundFlags      map[string]*pflag.Flag
	SavedCallCount  int
	ProfileOverride string
}

func (m *MockConfigHook) Save() error {
	m.SavedCallCount++
	if m.SaveMock != nil {
		return m.SaveMock()
	}
	return nil
}

func (m *MockConfigHook) lookup(key string) (any, bool) {
	if f, ok := m.BoundFlags[key]; ok && f.Changed {
		return f.Value.String(), true
	}
	v, ok := m.Values[key]
	if !ok {
		if f, bound := m.BoundFlags[key]; bound {
			return f.DefValue, true
		}
	}
	return v, ok
}

func (m *MockConfigHook) GetString(key string) string {
	if m.GetStringMock != nil {
		return m.GetStringMock(key)
	}
	v, _ := m.lookup(key)
	return cast.ToString(v)
}

func (m *MockConfigHook) GetStringOrElse(key string, orElse string) string {
	if s := m.GetString(key); s != "" {
		return s
	}
	return orElse
}

func (m *MockConfigHook) GetBool(key string) bool {
	if m.GetBoolMock != nil {
		return m.GetBoolMock(key)
	}
	v, _ := m.lookup(key)
	return cast.ToBool(v)
}

func (m *MockConfigHook) GetInt(key string) int {
	if m.GetIntMock != nil {
		return m.GetIntMock(key)
	}
	v, _ := m.lookup(key)
	return cast.ToInt(v)
}

func (m *MockConfigHook) GetIntOrElse(key string, orElse int) int {
	if !m.IsSet(key) {
		return orElse
	}
	return m.GetInt(key)
}

func (m *MockConfigHook) GetDurationOrElse(key string, orElse time.Duration) time.Duration {
	v, ok := m.lookup(key)
	if !ok {
		return orElse
	}
	return cast.ToDuration(v)
}

func (m *MockConfigHook) GetStringSlice(key string) []string {
	v, _ := m.lookup(key)
	return cast.ToStringSlice(v)
}

func (m *MockConfigHook) SetString(k string, v string) {
	m.Set(k, v)
}

func (m *MockConfigHook) Set(k string, v any) {
	if m.Values == nil {
		m.Values = make(map[string]any)
	}
	m.Values[k] = v
}

func (m *MockConfigHook) Get(k string) any {
	v, _ := m.lookup(k)
	return v
}

func (m *MockConfigHook) IsSet(key string) bool {
	if f, ok := m.BoundFlags[key]; ok && f.Changed {
		return true
	}
	_, ok := m.Values[key]
	return ok
}

func (m *MockConfigHook) BindFlag(configPath string, f *pflag.Flag) error {
	if m.BindFlagMock != nil {
		return m.BindFlagMock(configPath, f)
	}
	if m.BoundFlags == nil {
		m.BoundFlags = make(map[string]*pflag.Flag)
	}
	m.BoundFlags[configPath] = f
	return nil
}

func (m *MockConfigHook) GetProfile() string {
	if m.GetProfileMock != nil {
		return m.GetProfileMock()
	}
	if m.ProfileOverride != "" {
		return m.ProfileOverride
	}
	return "default"
}

func (m *MockConfigHook) GetPath() string {
	if m.GetPathMock != nil {
		return m.GetPathMock()
	}
	return ""
}
