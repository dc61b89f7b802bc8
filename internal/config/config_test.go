package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConfigDefaults(t *testing.T) {
	cfg, err := InitializeConfig("")
	require.NoError(t, err)

	assert.Equal(t, 72, cfg.Transfer.DateToleranceHours)
	assert.Equal(t, 0.7, cfg.Transfer.ConfidenceThreshold)
	assert.Equal(t, "Balance Correction", cfg.Transfer.PairCategory)
	assert.Equal(t, float64(10000), cfg.Transfer.LargeAmountThreshold)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ",", cfg.CSV.Delimiter)
	assert.False(t, cfg.App.Strict)
}

func TestInitializeConfigAppConfOverlay(t *testing.T) {
	dir := t.TempDir()
	data := `[app]
user_name = John Doe
strict = true

[transfer]
date_tolerance_hours = 48
confidence_threshold = 0.8

[log]
level = debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, AppConfigFile), []byte(data), 0o600))

	cfg, err := InitializeConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "John Doe", cfg.App.UserName)
	assert.True(t, cfg.App.Strict)
	assert.Equal(t, 48, cfg.Transfer.DateToleranceHours)
	assert.Equal(t, 0.8, cfg.Transfer.ConfidenceThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "Balance Correction", cfg.Transfer.PairCategory)
	assert.Equal(t, dir, cfg.App.ConfigDir)
}

func TestInitializeConfigMissingAppConfIsFine(t *testing.T) {
	cfg, err := InitializeConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 72, cfg.Transfer.DateToleranceHours)
}

func TestInitializeConfigEnvOverride(t *testing.T) {
	t.Setenv("C2L_TRANSFER_CONFIDENCE_THRESHOLD", "0.9")
	t.Setenv("C2L_APP_USER_NAME", "Jane")

	cfg, err := InitializeConfig("")
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Transfer.ConfidenceThreshold)
	assert.Equal(t, "Jane", cfg.App.UserName)
}

func TestInitializeConfigValidation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, AppConfigFile),
		[]byte("[transfer]\nconfidence_threshold = 1.5\n"), 0o600))

	_, err := InitializeConfig(dir)
	assert.Error(t, err)
}

func TestInitializeConfigBadLogLevel(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, AppConfigFile),
		[]byte("[log]\nlevel = noisy\n"), 0o600))

	_, err := InitializeConfig(dir)
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("C2L_TEST_KEY", "value")
	assert.Equal(t, "value", GetEnv("C2L_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnv("C2L_TEST_MISSING", "fallback"))
}
