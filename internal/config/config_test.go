package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wodcal.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Warsaw", cfg.Timezone)
	assert.Equal(t, FetchModeHTTP, cfg.Fetch.Mode)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wodcal.yaml")
	body := "scraper_base_url: https://gym.example.com/\nagenda_path: schedule\nfetch:\n  mode: carrier-pigeon\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://gym.example.com", cfg.BaseURL)
	assert.Equal(t, "/schedule", cfg.AgendaPath)
	assert.Equal(t, FetchModeHTTP, cfg.Fetch.Mode)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 1, cfg.Fetch.Concurrency)
	assert.Nil(t, cfg.Geo)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wodcal.yaml")
	want := DefaultConfig()
	want.Location = "Main Hall"
	require.NoError(t, want.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveRejectsMissingInput(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geo = nil

	err := cfg.ApplyEnv(envMap(map[string]string{
		"APP_PORT":                  "9000",
		"APP_DEBUG":                 "true",
		"APP_AUTH_TOKEN":            "s3cret",
		"APP_SCRAPER_BASE_URL":      "https://other.example.com",
		"APP_FETCH_CONCURRENCY":     "6",
		"APP_GYM_LATITUDE":          "52.2297",
		"APP_GYM_LONGITUDE":         "21.0122",
		"APP_GYM_TITLE":             "Box",
		"APP_FETCH_TIMEOUT_SECONDS": "",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.EffectiveLogLevel())
	assert.Equal(t, "s3cret", cfg.AuthToken)
	assert.Equal(t, "https://other.example.com", cfg.BaseURL)
	assert.Equal(t, 6, cfg.Fetch.Concurrency)
	assert.Equal(t, 15, cfg.Fetch.TimeoutSeconds)
	require.NotNil(t, cfg.Geo)
	assert.Equal(t, 52.2297, cfg.Geo.Latitude)
	assert.Equal(t, "Box", cfg.Geo.Title)
}

func TestApplyEnvReportsMalformedValues(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"APP_DEBUG":             "maybe",
		"APP_FETCH_CONCURRENCY": "many",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_DEBUG")
	assert.Contains(t, err.Error(), "APP_FETCH_CONCURRENCY")
	assert.False(t, cfg.Debug)
	assert.Equal(t, 3, cfg.Fetch.Concurrency)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Timezone = "Mars/Olympus"
	cfg.BaseURL = "not a url"
	cfg.AuthToken = " "
	cfg.Geo.Latitude = 120
	cfg.ProbeCron = "every ten minutes"
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"timezone", "scraper_base_url", "auth_token", "geo", "probe_cron"} {
		assert.Contains(t, err.Error(), want)
	}
}
