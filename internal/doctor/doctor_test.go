package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ConfigCategory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANON_DATA_DIR", dir)

	report := Run(context.Background(), Options{SkipUpstream: true})

	configChecks := 0
	for _, c := range report.Checks {
		if c.Category == "config" {
			configChecks++
		}
	}
	assert.Equal(t, 4, configChecks, "data dir, patterns, stop terms, mapping db")
	assert.Equal(t, 4, report.Summary.Pass)
	assert.Equal(t, "pass", report.Status)
}

func TestRun_BadConfigFails(t *testing.T) {
	t.Setenv("ANON_DATA_DIR", t.TempDir())
	t.Setenv("ANON_MODE", "SCRAMBLE")

	report := Run(context.Background(), Options{SkipUpstream: true})

	require.Len(t, report.Checks, 1)
	assert.Equal(t, "config_load", report.Checks[0].Name)
	assert.Equal(t, "fail", report.Status)
}

func TestRun_UnreachableUpstreamsWarn(t *testing.T) {
	t.Setenv("ANON_DATA_DIR", t.TempDir())
	t.Setenv("ANON_NER_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("ANON_VALIDATOR_BASE_URL", "http://127.0.0.1:1")

	report := Run(context.Background(), Options{})

	byName := make(map[string]CheckResult)
	for _, c := range report.Checks {
		byName[c.Name] = c
	}
	assert.Equal(t, "warn", byName["upstream_ner"].Status)
	assert.Equal(t, "warn", byName["upstream_validator"].Status)
	assert.Equal(t, "warn", report.Status, "degraded mode is a warning, not a failure")
}

func TestRun_ReachableUpstreamPasses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("ANON_DATA_DIR", t.TempDir())
	t.Setenv("ANON_NER_BASE_URL", srv.URL)
	t.Setenv("ANON_VALIDATOR_PROVIDER", "none")

	report := Run(context.Background(), Options{})

	var ner *CheckResult
	for i := range report.Checks {
		if report.Checks[i].Name == "upstream_ner" {
			ner = &report.Checks[i]
		}
		assert.NotEqual(t, "upstream_validator", report.Checks[i].Name,
			"provider none should skip the validator check")
	}
	require.NotNil(t, ner)
	assert.Equal(t, "pass", ner.Status)
}
