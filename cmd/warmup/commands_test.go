package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestChecksPrintsDefaultPlan(t *testing.T) {
	out, err := execute(t, "checks")
	require.NoError(t, err)

	assert.Contains(t, out, "DatabaseConnectivity")
	assert.Contains(t, out, "FinalReadiness")
	assert.Contains(t, out, "GET https://httpbin.org/status/200")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "47s")
}

func TestChecksHonorsScaleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checks:\n  FinalReadiness: [10s, 10s]\n"), 0o600))
	t.Setenv("WARMUP_CHECKS_FILE", path)
	t.Setenv("WARMUP_CHECK_SCALE", "0.5")

	out, err := execute(t, "checks")
	require.NoError(t, err)
	// (47s - 8s + 20s) * 0.5
	assert.Contains(t, out, "29.5s")
}

func TestChecksRejectsInvalidConfig(t *testing.T) {
	t.Setenv("WARMUP_PAGE_SIZE", "0")

	_, err := execute(t, "checks")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WARMUP_PAGE_SIZE")
}

func TestServeRejectsUnknownMode(t *testing.T) {
	_, err := execute(t, "serve", "--mode", "eager")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eager")
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["go_version"])
}
