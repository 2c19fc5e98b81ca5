package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, 5*time.Minute, cfg.HealthCheckWindow)
	require.Equal(t, 1000, cfg.TimeslicePageSize)
	require.Equal(t, 100, cfg.NotePageSize)
	require.Equal(t, 100, cfg.StatePageSize)
	require.Equal(t, 100, cfg.TimesliceBatchSize)
	require.Equal(t, 50, cfg.NoteBatchSize)
	require.Equal(t, 50, cfg.StateBatchSize)
	require.NotEmpty(t, cfg.SecretsDir)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("HEALTH_CHECK_WINDOW", "90s")
	t.Setenv("TIMESLICE_PAGE_SIZE", "250")
	t.Setenv("MIGRATION_TIMEZONE", "Europe/Helsinki")

	cfg := Load()

	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.Equal(t, 90*time.Second, cfg.HealthCheckWindow)
	require.Equal(t, 250, cfg.TimeslicePageSize)
	require.Equal(t, "Europe/Helsinki", cfg.Timezone)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("HEALTH_CHECK_WINDOW", "soon")
	t.Setenv("NOTE_PAGE_SIZE", "lots")

	cfg := Load()

	require.Equal(t, 5*time.Minute, cfg.HealthCheckWindow)
	require.Equal(t, 100, cfg.NotePageSize)
}
