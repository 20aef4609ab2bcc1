package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"budget/internal/config"
	"budget/internal/log"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "9090")

	cfg, err := LoadAndValidateConfig()
	require.NoError(t, err)
	require.Equal(t, config.BackendMemory, cfg.DataBackend)
	require.Equal(t, "9090", cfg.Port)
}

func TestLoadAndValidateConfigRejectsInvalid(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sheets")
	t.Setenv("PORT", "nope")

	_, err := LoadAndValidateConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid port")
	require.Contains(t, err.Error(), "invalid data backend")
}

func TestSetupLogger(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug", LogFormat: "json", LogFilter: "*"}
	logger, err := SetupLogger(cfg, log.ComponentCLI)
	require.NoError(t, err)
	require.Equal(t, log.ComponentCLI, logger.Component())

	cfg.LogLevel = "loud"
	_, err = SetupLogger(cfg, log.ComponentCLI)
	require.Error(t, err)
}

func TestGracefulShutdownStopsWithParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := GracefulShutdown(parent, log.Discard())
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with parent")
	}
}

func TestShutdownContext(t *testing.T) {
	ctx, cancel := ShutdownContext(time.Minute)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}
