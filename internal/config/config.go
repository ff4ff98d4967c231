package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default shared secret for the remote's cipher scheme, overridable via
// config file or the SECRET_KEY environment variable.
const defaultSecretKey = "tSdGtmwh49BcR1irt18mxG41dGsBuGKS"

type Config struct {
	SecretKey string         `yaml:"secret_key"`
	Oracle    OracleConfig   `yaml:"oracle"`
	Fetch     FetchConfig    `yaml:"fetch"`
	Classify  ClassifyConfig `yaml:"classify"`
}

type OracleConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type FetchConfig struct {
	Workers     int  `yaml:"workers"`
	WithHistory bool `yaml:"with_history"`
}

type ClassifyConfig struct {
	DelayMS  int  `yaml:"delay_ms"`
	Enhanced bool `yaml:"enhanced"`
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.SecretKey == "" {
		cfg.SecretKey = os.Getenv("SECRET_KEY")
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = defaultSecretKey
	}
	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = os.Getenv("DEEPSEEK_BASE_URL")
	}
	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = "https://api.deepseek.com"
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = os.Getenv("DEEPSEEK_MODEL")
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "deepseek-chat"
	}
	if cfg.Fetch.Workers == 0 {
		cfg.Fetch.Workers = 10
	}
	if cfg.Classify.DelayMS == 0 {
		cfg.Classify.DelayMS = 500
	}
}

func validate(cfg *Config) error {
	if cfg.Oracle.APIKey == "" {
		return fmt.Errorf("config: oracle.api_key is required (set DEEPSEEK_API_KEY env var)")
	}
	if cfg.Fetch.Workers < 1 {
		return fmt.Errorf("config: fetch.workers must be at least 1")
	}
	return nil
}

// Load reads the config file, expands environment variables, applies
// defaults, and validates the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FromEnv builds a configuration without a file, from environment variables
// and defaults only.
func FromEnv() (*Config, error) {
	var cfg Config
	setDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
