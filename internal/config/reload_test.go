package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	require.NoError(t, Watch(ctx, path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "debug", cfg.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestWatchInvalidChangeKeepsPrevious(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 8)
	require.NoError(t, Watch(ctx, path, func(cfg *Config) { reloaded <- cfg }))

	// A broken file must not reach the callback.
	require.NoError(t, os.WriteFile(path, []byte("cacheTtl: not-a-duration\n"), 0o644))

	select {
	case cfg := <-reloaded:
		t.Fatalf("callback fired for invalid config: %+v", cfg)
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestWatchEmptyPathIsNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, Watch(ctx, "", func(*Config) {
		t.Fatal("callback must never fire without a file")
	}))
}

func TestWatchMissingFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := Watch(ctx, "/nonexistent/guida/config.yaml", func(*Config) {})
	require.Error(t, err)
}
