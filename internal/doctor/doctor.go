// Package doctor provides health checks for configuration and runtime
// dependencies. Used by `anonimatizacao doctor` to explain why detection
// or validation would run degraded.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Gunoch/anonimatizacao/internal/config"
	"github.com/Gunoch/anonimatizacao/internal/detect"
	"github.com/Gunoch/anonimatizacao/internal/mapping"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"` // pass, warn, fail
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Options controls which check categories to run.
type Options struct {
	SkipUpstream bool // Skip NER and LLM connectivity checks (for CI/offline)
}

// Run executes all doctor checks and returns a report. An unreachable NER
// sidecar or validator is a warn, not a fail: the pipeline still works in
// degraded, pattern-only mode.
func Run(ctx context.Context, opts Options) *Report {
	report := &Report{}

	cfg, err := config.Load()
	if err != nil {
		report.Checks = append(report.Checks, CheckResult{
			Name: "config_load", Category: "config", Status: "fail",
			Message: fmt.Sprintf("Cannot load config: %v", err),
			Fix:     "Check ANON_ environment variables and anon.config.yaml",
		})
	} else {
		report.Checks = append(report.Checks, checkConfig(cfg)...)
		if !opts.SkipUpstream {
			report.Checks = append(report.Checks, checkUpstreams(ctx, cfg)...)
		}
	}

	for _, c := range report.Checks {
		switch c.Status {
		case "pass":
			report.Summary.Pass++
		case "warn":
			report.Summary.Warn++
		case "fail":
			report.Summary.Fail++
		}
	}

	report.Status = "pass"
	if report.Summary.Warn > 0 {
		report.Status = "warn"
	}
	if report.Summary.Fail > 0 {
		report.Status = "fail"
	}
	return report
}

func checkConfig(cfg *config.Config) []CheckResult {
	var results []CheckResult
	results = append(results, checkDataDir(cfg))
	results = append(results, checkPatterns(cfg))
	results = append(results, checkStopTerms(cfg))
	results = append(results, checkMappingDB(cfg))
	return results
}

func checkDataDir(cfg *config.Config) CheckResult {
	if err := cfg.EnsureDataDir(); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s: %v", cfg.DataDir, err),
			Fix:     "Ensure directory exists and is writable",
		}
	}
	testFile := filepath.Join(cfg.DataDir, ".doctor-write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s not writable: %v", cfg.DataDir, err),
		}
	}
	_ = os.Remove(testFile)
	return CheckResult{
		Name: "data_dir_writable", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%s (writable)", cfg.DataDir),
	}
}

func checkPatterns(cfg *config.Config) CheckResult {
	opts := []detect.ScannerOption{detect.WithMinScore(cfg.MinScore)}
	if cfg.PatternFile != "" {
		opts = append(opts, detect.WithPatternFile(cfg.PatternFile))
	}
	scanner, err := detect.NewScanner(opts...)
	if err != nil {
		return CheckResult{
			Name: "patterns_compile", Category: "config", Status: "fail",
			Message: err.Error(),
			Fix:     "Check regex syntax and entity names in the pattern file",
		}
	}
	return CheckResult{
		Name: "patterns_compile", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%d recognizers", scanner.PatternCount()),
	}
}

func checkStopTerms(cfg *config.Config) CheckResult {
	var (
		terms  detect.StopTerms
		err    error
		origin = "embedded defaults"
	)
	if cfg.StopTermsFile != "" {
		origin = cfg.StopTermsFile
		terms, err = detect.LoadStopTerms(cfg.StopTermsFile)
	} else {
		terms, err = detect.DefaultStopTerms()
	}
	if err != nil {
		return CheckResult{
			Name: "stop_terms", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%s: %v", origin, err),
			Fix:     "Check YAML syntax in the stop terms file",
		}
	}
	return CheckResult{
		Name: "stop_terms", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%s (%d terms)", origin, len(terms)),
	}
}

func checkMappingDB(cfg *config.Config) CheckResult {
	store, err := mapping.NewStore(cfg.MappingDBPath())
	if err != nil {
		return CheckResult{
			Name: "mapping_db", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%v", err),
		}
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sessions, listErr := store.ListSessions(ctx)
	if listErr != nil {
		return CheckResult{
			Name: "mapping_db", Category: "config", Status: "fail",
			Message: fmt.Sprintf("%v", listErr),
		}
	}

	sizeStr := "new"
	if fi, statErr := os.Stat(cfg.MappingDBPath()); statErr == nil {
		sizeStr = fmt.Sprintf("%.1f MB", float64(fi.Size())/(1024*1024))
	}
	return CheckResult{
		Name: "mapping_db", Category: "config", Status: "pass",
		Message: fmt.Sprintf("%d sessions, %s", len(sessions), sizeStr),
	}
}

func checkUpstreams(ctx context.Context, cfg *config.Config) []CheckResult {
	var results []CheckResult
	results = append(results, checkEndpoint(ctx, "ner", cfg.NERBaseURL,
		"Start the NER sidecar or run with --no-ner (pattern-only mode)")...)
	if cfg.ValidatorProvider != "none" {
		results = append(results, checkEndpoint(ctx, "validator", cfg.ValidatorBaseURL,
			"Check validator_base_url or set validator_provider to none")...)
	}
	return results
}

func checkEndpoint(ctx context.Context, name, baseURL, fix string) []CheckResult {
	client := &http.Client{Timeout: 5 * time.Second}
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
	if reqErr != nil {
		return []CheckResult{{
			Name: "upstream_" + name, Category: "upstream", Status: "fail",
			Message: fmt.Sprintf("Invalid URL: %v", reqErr),
		}}
	}
	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)

	if err != nil {
		return []CheckResult{{
			Name: "upstream_" + name, Category: "upstream", Status: "warn",
			Message: fmt.Sprintf("Connection failed: %v", err),
			Fix:     fix,
		}}
	}
	resp.Body.Close()

	results := []CheckResult{{
		Name: "upstream_" + name, Category: "upstream", Status: "pass",
		Message: fmt.Sprintf("%s (%dms)", baseURL, latency.Milliseconds()),
	}}
	if latency > time.Second {
		results = append(results, CheckResult{
			Name: "upstream_latency_" + name, Category: "upstream", Status: "warn",
			Message: fmt.Sprintf("%.1fs (> 1s threshold)", latency.Seconds()),
			Fix:     "Per-document latency scales with this endpoint",
		})
	}
	return results
}
