// Package config holds operator-level configuration for an installation:
// data directory, detection thresholds, sidecar and validator endpoints.
// Values come from env vars (ANON_*) or a config file (anon.config.yaml),
// merged by Viper with env taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Gunoch/anonimatizacao/internal/mapping"
)

// Viper keys. Each maps to an env var with the ANON_ prefix
// (e.g. "ner_base_url" → ANON_NER_BASE_URL) and to a YAML field in
// anon.config.yaml.
const (
	KeyDataDir           = "data_dir"
	KeyMode              = "mode"
	KeySeed              = "seed"
	KeyMinScore          = "min_score"
	KeyPatternFile       = "pattern_file"
	KeyStopTermsFile     = "stop_terms_file"
	KeyNERBaseURL        = "ner_base_url"
	KeyMaxDocumentMB     = "max_document_mb"
	KeyValidatorProvider = "validator_provider"
	KeyValidatorBaseURL  = "validator_base_url"
	KeyValidatorModel    = "validator_model"
	KeyValidatorAPIKey   = "validator_api_key"
	KeyValidatorRPS      = "validator_rps"
	KeyWorkers           = "workers"
)

// Defaults.
const (
	DefaultMode          = string(mapping.ModeRealistic)
	DefaultMinScore      = 0.5
	DefaultNERBaseURL    = "http://localhost:8001"
	DefaultMaxDocMB      = 10
	DefaultValidatorProv = "ollama"
	DefaultValidatorURL  = "http://localhost:11434"
	DefaultValidatorMdl  = "qwen3:4b"
	DefaultValidatorRPS  = 2.0
	DefaultWorkers       = 4
)

// Config is the resolved operator configuration for a process.
type Config struct {
	DataDir           string
	Mode              mapping.Mode
	Seed              uint64
	MinScore          float64
	PatternFile       string
	StopTermsFile     string
	NERBaseURL        string
	MaxDocumentMB     int
	ValidatorProvider string // "openai", "ollama", or "none"
	ValidatorBaseURL  string
	ValidatorModel    string
	ValidatorAPIKey   string
	ValidatorRPS      float64
	Workers           int
}

// MappingDBPath returns the full path to the mapping SQLite database.
func (c *Config) MappingDBPath() string {
	return filepath.Join(c.DataDir, "mappings.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

func init() {
	viper.SetEnvPrefix("ANON")
	viper.AutomaticEnv()
	viper.SetDefault(KeyMode, DefaultMode)
	viper.SetDefault(KeyMinScore, DefaultMinScore)
	viper.SetDefault(KeyNERBaseURL, DefaultNERBaseURL)
	viper.SetDefault(KeyMaxDocumentMB, DefaultMaxDocMB)
	viper.SetDefault(KeyValidatorProvider, DefaultValidatorProv)
	viper.SetDefault(KeyValidatorBaseURL, DefaultValidatorURL)
	viper.SetDefault(KeyValidatorModel, DefaultValidatorMdl)
	viper.SetDefault(KeyValidatorRPS, DefaultValidatorRPS)
	viper.SetDefault(KeyWorkers, DefaultWorkers)
}

// Load reads configuration from Viper and returns a validated Config.
// Configuration problems are fatal at startup, never at runtime.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:           resolveDataDir(),
		Seed:              viper.GetUint64(KeySeed),
		MinScore:          viper.GetFloat64(KeyMinScore),
		PatternFile:       viper.GetString(KeyPatternFile),
		StopTermsFile:     viper.GetString(KeyStopTermsFile),
		NERBaseURL:        viper.GetString(KeyNERBaseURL),
		MaxDocumentMB:     viper.GetInt(KeyMaxDocumentMB),
		ValidatorProvider: viper.GetString(KeyValidatorProvider),
		ValidatorBaseURL:  viper.GetString(KeyValidatorBaseURL),
		ValidatorModel:    viper.GetString(KeyValidatorModel),
		ValidatorAPIKey:   viper.GetString(KeyValidatorAPIKey),
		ValidatorRPS:      viper.GetFloat64(KeyValidatorRPS),
		Workers:           viper.GetInt(KeyWorkers),
	}

	mode, ok := mapping.ParseMode(viper.GetString(KeyMode))
	if !ok {
		return nil, fmt.Errorf("invalid configuration: mode must be REALISTIC or PLACEHOLDER, got %q",
			viper.GetString(KeyMode))
	}
	cfg.Mode = mode

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anon"
	}
	return filepath.Join(home, ".anon")
}

func (c *Config) validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1, got %g", c.MinScore)
	}
	if c.MaxDocumentMB <= 0 {
		return fmt.Errorf("max_document_mb must be positive")
	}
	switch c.ValidatorProvider {
	case "openai", "ollama", "none":
	default:
		return fmt.Errorf("validator_provider must be openai, ollama, or none, got %q", c.ValidatorProvider)
	}
	if c.ValidatorProvider == "openai" && c.ValidatorAPIKey == "" && c.ValidatorBaseURL == DefaultValidatorURL {
		return fmt.Errorf("validator_provider openai requires validator_api_key or validator_base_url")
	}
	if c.ValidatorRPS <= 0 {
		return fmt.Errorf("validator_rps must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}
