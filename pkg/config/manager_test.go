package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server struct {
		Name string `mapstructure:"name" validate:"required"`
		Port int    `mapstructure:"port" validate:"min=1,max=65535"`
	} `mapstructure:"server"`
	Window time.Duration `mapstructure:"window"`
	Tags   []string      `mapstructure:"tags"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManagerLoadAndUnmarshal(t *testing.T) {
	path := writeConfig(t, `
server:
  name: maskpack
  port: 8080
window: 1500ms
tags: "a,b"
`)

	mgr := NewManager()
	require.NoError(t, mgr.LoadFile(path))

	var cfg testConfig
	require.NoError(t, mgr.Unmarshal(&cfg))
	assert.Equal(t, "maskpack", cfg.Server.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1500*time.Millisecond, cfg.Window)
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)
	assert.True(t, mgr.IsSet("server.port"))
	assert.NoError(t, Validate(&cfg))
}

func TestManagerEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  name: file\n  port: 1\n")
	t.Setenv("MPTEST_SERVER_NAME", "env")

	mgr := NewManager(WithEnvPrefix("MPTEST"))
	require.NoError(t, mgr.LoadFile(path))
	assert.Equal(t, "env", mgr.GetString("server.name"))
}

func TestManagerMissingFile(t *testing.T) {
	err := NewManager().LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.Is(err, ErrConfigFileNotFound))
}

func TestValidateReportsField(t *testing.T) {
	var cfg testConfig
	cfg.Server.Port = 70000

	err := Validate(&cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Contains(t, err.Error(), "Name")
	assert.Contains(t, err.Error(), "at most 65535")
}

func TestMergeConfig(t *testing.T) {
	type inner struct {
		A int
		B string
	}
	type cfg struct {
		Inner inner
		Ptr   *inner
		List  []int
		Map   map[string]int
	}

	dst := &cfg{Inner: inner{A: 1, B: "x"}, List: []int{1}, Map: map[string]int{"k": 1}}
	src := &cfg{Inner: inner{B: "y"}, Ptr: &inner{A: 9}, List: []int{2, 3}, Map: map[string]int{"j": 2}}

	merged, err := MergeConfig(dst, src)
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Inner.A)
	assert.Equal(t, "y", merged.Inner.B)
	assert.Equal(t, 9, merged.Ptr.A)
	assert.Equal(t, []int{2, 3}, merged.List)
	assert.Equal(t, map[string]int{"k": 1, "j": 2}, merged.Map)

	_, err = MergeConfig[cfg](nil, nil)
	assert.Error(t, err)
}
