package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfogg/resonate/internal/apperr"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 2048, cfg.FFTSize)
	assert.Equal(t, 512, cfg.HopSize)
	assert.Equal(t, WindowHann, cfg.WindowType)
	assert.Equal(t, 128, cfg.NumMels)
	assert.Equal(t, 20, cfg.MinMatchScore)
	assert.Equal(t, 22050.0, cfg.EffectiveFreqMax())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"negative fft size", func(c *Config) { c.FFTSize = -1 }},
		{"zero hop", func(c *Config) { c.HopSize = 0 }},
		{"unknown window", func(c *Config) { c.WindowType = "kaiser" }},
		{"zero mel bands", func(c *Config) { c.NumMels = 0 }},
		{"fmax above nyquist", func(c *Config) { c.FreqMax = 30000 }},
		{"fmin above fmax", func(c *Config) { c.FreqMin = 5000; c.FreqMax = 4000 }},
		{"zero neighborhood", func(c *Config) { c.NeighborhoodBands = 0 }},
		{"zero median window", func(c *Config) { c.MedianFrames = 0 }},
		{"zero quota", func(c *Config) { c.PeaksPerBand = 0 }},
		{"zero fanout", func(c *Config) { c.FanoutSize = 0 }},
		{"inverted target zone", func(c *Config) { c.TargetTimeMin = 50; c.TargetTimeMax = 10 }},
		{"negative freq range", func(c *Config) { c.TargetFreqRange = -1 }},
		{"negative match score", func(c *Config) { c.MinMatchScore = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, apperr.CodeInvalidParams, apperr.CodeOf(err))
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resonate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"sample_rate: 22050\nwindow_type: hamming\nmin_match_score: 12\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 22050, cfg.SampleRate)
	assert.Equal(t, WindowHamming, cfg.WindowType)
	assert.Equal(t, 12, cfg.MinMatchScore)
	// Untouched knobs keep their defaults.
	assert.Equal(t, 2048, cfg.FFTSize)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_rate: -5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidParams, apperr.CodeOf(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RESONATE_MIN_MATCH_SCORE", "33")
	t.Setenv("RESONATE_WINDOW_TYPE", "rect")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 33, cfg.MinMatchScore)
	assert.Equal(t, WindowRect, cfg.WindowType)
}
