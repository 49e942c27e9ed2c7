package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/caselabel/internal/model"
)

// setDefaults registers every config key with viper so environment
// variables are picked up by Unmarshal
func setDefaults() {
	d := model.DefaultConfig()

	viper.SetDefault("taxonomy.version", d.Taxonomy.Version)
	viper.SetDefault("taxonomy.file", d.Taxonomy.File)

	viper.SetDefault("llm.provider", d.LLM.Provider)
	viper.SetDefault("llm.model", d.LLM.Model)
	viper.SetDefault("llm.api_key", d.LLM.APIKey)
	viper.SetDefault("llm.base_url", d.LLM.BaseURL)
	viper.SetDefault("llm.timeout", d.LLM.Timeout)
	viper.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	viper.SetDefault("llm.temperature", d.LLM.Temperature)
	viper.SetDefault("llm.requests_per_second", d.LLM.RequestsPerSecond)
	viper.SetDefault("llm.burst", d.LLM.Burst)
	viper.SetDefault("llm.http_proxy", d.LLM.HTTPProxy)
	viper.SetDefault("llm.https_proxy", d.LLM.HTTPSProxy)
	viper.SetDefault("llm.no_proxy", d.LLM.NoProxy)

	viper.SetDefault("suggest.min_case_text_length", d.Suggest.MinCaseTextLength)
	viper.SetDefault("suggest.max_rationale_length", d.Suggest.MaxRationaleLength)
	viper.SetDefault("suggest.cache_enabled", d.Suggest.CacheEnabled)
	viper.SetDefault("suggest.cache_dir", d.Suggest.CacheDir)
	viper.SetDefault("suggest.cache_ttl", d.Suggest.CacheTTL)

	viper.SetDefault("calibration.conflict_threshold", d.Calibration.ConflictThreshold)
	viper.SetDefault("store.path", d.Store.Path)
	viper.SetDefault("concurrency.workers", d.Concurrency.Workers)
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyCredentials(cfg)
	return cfg, nil
}

// applyCredentials fills provider credentials from the providers' own
// environment variables
func applyCredentials(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage caselabel configuration",
	Long: `Manage caselabel configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CASELABEL_*, e.g. CASELABEL_LLM_PROVIDER)
3. Config file (~/.caselabel/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "No configuration file found (using defaults and environment)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		_, err = out.Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file to ~/.caselabel/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := filepath.Join(home, ".caselabel")
		configPath := filepath.Join(configDir, "config.yaml")

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'caselabel config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		yamlData, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		header := `# caselabel configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (CASELABEL_*)
#   3. This config file
#   4. Built-in defaults
#
# API keys are read from the environment, never from this file:
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...
#   export OLLAMA_BASE_URL=http://localhost:11434

`
		if err := os.WriteFile(configPath, append([]byte(header), yamlData...), 0o600); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
