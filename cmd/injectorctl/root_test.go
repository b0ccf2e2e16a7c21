package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func quietConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "injector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: disabled\n"), 0o600))
	return path
}

func TestDemo(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "demo", "--config", quietConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "distinct services: true, shared logger: true")
	assert.Contains(t, out, "1. metrics\n  2. export\n  3. audit")
	assert.Contains(t, out, "after child dispose, disposed=false")
	assert.Contains(t, out, "after root dispose, disposed=true")
	assert.Contains(t, out, "invoice repository ready")
}

func TestDemoWithTrace(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "demo", "--config", quietConfig(t), "--trace")
	require.NoError(t, err)
	assert.Contains(t, out, `"Name": "injector.Resolve"`)
	assert.Contains(t, out, "injectorctl")
}

func TestDescribeFormats(t *testing.T) {
	t.Parallel()

	cfg := quietConfig(t)

	out, err := execute(t, "describe", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "injector registry")
	assert.Contains(t, out, "main.ReportService")
	assert.Contains(t, out, "main.Logger")

	out, err = execute(t, "describe", "--config", cfg, "-f", "dot")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph dependencies {")
	assert.Contains(t, out, `"main.ReportService" -> "main.Logger";`)

	out, err = execute(t, "describe", "--config", cfg, "-f", "tree", "--warmup")
	require.NoError(t, err)
	assert.Contains(t, out, "● main.Logger [container]")

	_, err = execute(t, "describe", "--config", cfg, "-f", "yaml")
	assert.ErrorContains(t, err, `unknown format "yaml"`)
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "injector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("activation: eager\n"), 0o600))

	_, err := execute(t, "describe", "--config", path)
	assert.ErrorContains(t, err, "loading config")
}
