package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EVENT_TIMEZONE", "")
	t.Setenv("DISPATCH_MAX_RETRIES", "")
	t.Setenv("STAGE_TIMEOUT", "")

	cfg := Load()
	require.Equal(t, "Europe/Rome", cfg.EventTimezone)
	require.Equal(t, 2, cfg.DispatchMaxRetries)
	require.Equal(t, 30*time.Second, cfg.StageTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STAGE_TIMEOUT", "5s")
	t.Setenv("LABEL_DEDUP", "false")
	t.Setenv("DISPATCH_MAX_RETRIES", "1")

	cfg := Load()
	require.Equal(t, 5*time.Second, cfg.StageTimeout)
	require.False(t, cfg.LabelDedup)
	require.Equal(t, 1, cfg.DispatchMaxRetries)
}

func TestValidateRejectsTooManyRetries(t *testing.T) {
	cfg := Load()
	cfg.DispatchMaxRetries = 3
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	cfg := Load()
	cfg.EventTimezone = "Mars/Olympus"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Load()
	cfg.AIProvider = "gpt"
	require.Error(t, cfg.Validate())
}

func TestLocation(t *testing.T) {
	cfg := Load()
	cfg.EventTimezone = "Europe/Rome"
	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Rome", loc.String())
}
