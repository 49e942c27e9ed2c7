package model

import "time"

// Config is the complete caselabel configuration
type Config struct {
	Taxonomy    TaxonomyConfig    `yaml:"taxonomy" mapstructure:"taxonomy"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Suggest     SuggestConfig     `yaml:"suggest" mapstructure:"suggest"`
	Calibration CalibrationConfig `yaml:"calibration" mapstructure:"calibration"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// TaxonomyConfig selects the catalogue
type TaxonomyConfig struct {
	Version string `yaml:"version" mapstructure:"version"`
	File    string `yaml:"file" mapstructure:"file"` // Optional YAML catalogue, built-in when empty
}

// LLMConfig configures the generative text service
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"-" mapstructure:"api_key"` // Never written to config files
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float32 `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string  `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy           string  `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// SuggestConfig tunes the suggestion orchestrator
type SuggestConfig struct {
	MinCaseTextLength  int           `yaml:"min_case_text_length" mapstructure:"min_case_text_length"`
	MaxRationaleLength int           `yaml:"max_rationale_length" mapstructure:"max_rationale_length"`
	CacheEnabled       bool          `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheDir           string        `yaml:"cache_dir" mapstructure:"cache_dir"`
	CacheTTL           time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// CalibrationConfig tunes the agreement statistics
type CalibrationConfig struct {
	ConflictThreshold float64 `yaml:"conflict_threshold" mapstructure:"conflict_threshold"`
}

// StoreConfig locates the reference SQLite database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ConcurrencyConfig bounds batch work
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Taxonomy: TaxonomyConfig{
			Version: "2024.1",
		},
		LLM: LLMConfig{
			Provider:          "", // Disabled by default
			Timeout:           30,
			MaxTokens:         1000,
			Temperature:       0.2,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Suggest: SuggestConfig{
			MinCaseTextLength:  30,
			MaxRationaleLength: 500,
			CacheEnabled:       true,
			CacheDir:           ".caselabel/cache",
			CacheTTL:           24 * time.Hour,
		},
		Calibration: CalibrationConfig{
			ConflictThreshold: 0.5,
		},
		Store: StoreConfig{
			Path: "caselabel.db",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
