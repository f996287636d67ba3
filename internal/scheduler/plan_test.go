package scheduler

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlan(t *testing.T) {
	plan := DefaultPlan()

	names := make([]string, len(plan))
	for i, c := range plan {
		names[i] = c.Name
	}
	assert.Equal(t, []string{
		CheckDatabaseConnectivity,
		CheckConfigurationValidation,
		CheckExternalServicePing,
		CheckCacheWarmup,
		CheckSecurityValidation,
		CheckFinalReadiness,
	}, names)
	assert.Equal(t, 47*time.Second, plan.Total())

	pings := 0
	for _, c := range plan {
		for _, s := range c.Steps {
			if s.Ping {
				pings++
				assert.Equal(t, CheckExternalServicePing, c.Name)
			}
		}
	}
	assert.Equal(t, 1, pings)
}

func TestPlanScale(t *testing.T) {
	plan := DefaultPlan()
	half := plan.Scale(0.5)

	assert.Equal(t, 23500*time.Millisecond, half.Total())
	assert.Equal(t, 47*time.Second, plan.Total(), "Scale must not modify the receiver")
	assert.Zero(t, plan.Scale(0).Total())
}

func writeChecksFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBuildPlanWithOverrides(t *testing.T) {
	path := writeChecksFile(t, `
checks:
  CacheWarmup: [1s, 1s, 1s, 500ms]
  ExternalServicePing: [250ms]
`)

	plan, err := BuildPlan(path, 1)
	require.NoError(t, err)

	// 47s - 18s + 3.5s - 1s + 0.25s
	assert.Equal(t, 31750*time.Millisecond, plan.Total())
	assert.Equal(t, CheckCacheWarmup, plan[3].Name)
	assert.Equal(t, 500*time.Millisecond, plan[3].Steps[3].Delay)
	assert.True(t, plan[2].Steps[0].Ping, "ping step must survive overrides")

	scaled, err := BuildPlan(path, 2)
	require.NoError(t, err)
	assert.Equal(t, 2*plan.Total(), scaled.Total())
}

func TestBuildPlanRejectsBadOverrides(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown check", "checks:\n  Teleport: [1s]\n"},
		{"wrong step count", "checks:\n  FinalReadiness: [1s]\n"},
		{"negative delay", "checks:\n  FinalReadiness: [1s, -1s]\n"},
		{"invalid yaml", "checks: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPlan(writeChecksFile(t, tt.content), 1)
			assert.Error(t, err)
		})
	}

	_, err := BuildPlan(filepath.Join(t.TempDir(), "missing.yaml"), 1)
	assert.Error(t, err)
}

func TestBuildPlanRejectsNonFiniteScale(t *testing.T) {
	for _, scale := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := BuildPlan("", scale)
		assert.Error(t, err, "scale %v", scale)
	}
}
