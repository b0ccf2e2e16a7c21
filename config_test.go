package injector_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingyiliu/injector"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := injector.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, injector.DefaultConfig(), *cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeFile(t, "injector.yaml", `
activation: reflective
eager_rebinding: true
log:
  level: debug
  format: console
`)
	t.Setenv("INJECTOR_LOG_LEVEL", "warn")
	t.Setenv("INJECTOR_VALIDATE_ON_APPLY", "true")

	cfg, err := injector.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "reflective", cfg.Activation)
	assert.True(t, cfg.EagerRebinding)
	assert.True(t, cfg.ValidateOnApply)
	assert.Equal(t, "warn", cfg.Log.Level, "environment wins over the file")
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadConfigEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "INJECTOR_ACTIVATION=compiled\n")
	t.Cleanup(func() { _ = os.Unsetenv("INJECTOR_ACTIVATION") })

	cfg, err := injector.LoadConfig("", injector.WithEnvFile(envFile))
	require.NoError(t, err)
	assert.Equal(t, "compiled", cfg.Activation)

	_, err = injector.LoadConfig("", injector.WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.True(t, injector.IsConfiguration(err))
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeFile(t, "injector.yaml", "activation: jit\nlog:\n  level: loud\n")

	_, err := injector.LoadConfig(path)
	require.Error(t, err)
	assert.True(t, injector.IsConfiguration(err))
	assert.Contains(t, err.Error(), "Config.Activation: failed oneof")
	assert.Contains(t, err.Error(), "Config.Log.Level: failed oneof")

	_, err = injector.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, injector.IsConfiguration(err))
}

func TestConfigNewLogger(t *testing.T) {
	t.Parallel()

	cfg := injector.DefaultConfig()
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("contract", "Logger").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"contract":"Logger"`)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	cfg := injector.DefaultConfig()
	cfg.Activation = "compiled"
	cfg.Log.Level = "disabled"
	cfg.ValidateOnApply = true

	c, err := injector.NewFromConfig(&cfg)
	require.NoError(t, err)

	m := injector.NewModule("reports")
	injector.ModuleRegister[ReportService](m, NewReportService)
	assert.True(t, injector.IsValidationFailed(c.Apply(m)))

	cfg.Activation = "eager"
	_, err = injector.NewFromConfig(&cfg)
	assert.True(t, injector.IsConfiguration(err))
}
