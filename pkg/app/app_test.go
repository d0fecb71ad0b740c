package app

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	started  atomic.Bool
	stopped  atomic.Bool
	startErr error
}

func (s *fakeServer) Start() error {
	s.started.Store(true)
	return s.startErr
}

func (s *fakeServer) Stop() error {
	s.stopped.Store(true)
	return nil
}

func TestRunAndShutdown(t *testing.T) {
	a := NewBaseApp(WithStopTimeout(time.Second))
	srv := &fakeServer{}
	var order []string
	a.AppendServer(srv)
	a.AppendCloser(
		CloserFunc(func() error { order = append(order, "first"); return nil }),
		CloserFunc(func() error { order = append(order, "second"); return nil }),
	)

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	require.Eventually(t, srv.started.Load, time.Second, 5*time.Millisecond)
	require.NoError(t, a.Shutdown())
	require.NoError(t, <-done)

	assert.True(t, srv.stopped.Load())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.ErrorIs(t, a.Run(), ErrAppAlreadyRunning)
}

func TestRunStopsOnStartFailure(t *testing.T) {
	a := NewBaseApp()
	srv := &fakeServer{startErr: errors.New("bind failed")}
	a.AppendServer(srv)

	err := a.Run()
	assert.EqualError(t, err, "bind failed")
	assert.True(t, srv.stopped.Load())
}

func TestLoadConfig(t *testing.T) {
	type cfg struct {
		Server struct {
			Name string `mapstructure:"name" validate:"required"`
		} `mapstructure:"server"`
		Level string `mapstructure:"level"`
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  name: maskpack\nlevel: info\n"), 0o644))
	t.Setenv("MASKPACK_LEVEL", "debug")

	var c cfg
	used, err := LoadConfig([]string{"--config", path}, &c)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "maskpack", c.Server.Name)
	assert.Equal(t, "debug", c.Level)
}

func TestLoadConfigEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level: warn\n"), 0o644))
	t.Setenv("MASKPACK_CONFIG", path)

	var c struct {
		Level string `mapstructure:"level"`
	}
	_, err := LoadConfig(nil, &c)
	require.NoError(t, err)
	assert.Equal(t, "warn", c.Level)
}

func TestWatchSection(t *testing.T) {
	type section struct {
		Window time.Duration `mapstructure:"window"`
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  window: 1s\n"), 0o644))

	var window atomic.Int64
	_, err := WatchSection(path, "service", func(s *section, err error) {
		if err == nil {
			window.Store(int64(s.Window))
		}
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("service:\n  window: 3s\n"), 0o644))
	assert.Eventually(t, func() bool {
		return time.Duration(window.Load()) == 3*time.Second
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchSectionMissingFile(t *testing.T) {
	_, err := WatchSection(filepath.Join(t.TempDir(), "missing.yaml"), "service", func(*struct{}, error) {})
	assert.Error(t, err)
}
