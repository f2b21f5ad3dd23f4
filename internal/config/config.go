package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	GitHub   GitHubConfig   `yaml:"github"`
	Repo     RepoConfig     `yaml:"repo"`
	Store    StoreConfig    `yaml:"store"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Analyze  AnalyzeConfig  `yaml:"analyze"`
}

// GitHubConfig holds API endpoint settings. The token is never read from the
// file; see TokenFromEnv.
type GitHubConfig struct {
	APIURL    string `yaml:"api_url"`
	UserAgent string `yaml:"user_agent"`
}

// RepoConfig names the repository to cache.
type RepoConfig struct {
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

// StoreConfig holds storage settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DefaultsConfig holds default operational parameters.
type DefaultsConfig struct {
	RequestTimeoutRaw string `yaml:"request_timeout"`
	CommentWorkers    int    `yaml:"comment_workers"`
	IncludeComments   *bool  `yaml:"include_comments"`
	MaxBodyLength     int    `yaml:"max_body_length"`
}

// AnalyzeConfig holds defaults for the analyze command.
type AnalyzeConfig struct {
	Top *int `yaml:"top"`
}

// RequestTimeout returns the parsed request timeout duration.
func (d DefaultsConfig) RequestTimeout() (time.Duration, error) {
	if d.RequestTimeoutRaw == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(d.RequestTimeoutRaw)
}

// Comments reports whether comment threads should be fetched.
func (d DefaultsConfig) Comments() bool {
	return d.IncludeComments == nil || *d.IncludeComments
}

// TopLabels returns the label summary limit.
func (a AnalyzeConfig) TopLabels() int {
	if a.Top == nil {
		return 20
	}
	return *a.Top
}

// Default returns a config with all defaults applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// envVarPattern matches ${VAR} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable values.
// Returns an error if any referenced variable is not set.
func expandEnvVars(data []byte) ([]byte, error) {
	var missing []string

	result := envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(varName))
		if !ok {
			missing = append(missing, string(varName))
			return match
		}
		return []byte(val)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// Load reads and parses a config file from the given path. When optional is
// set, a missing file yields the defaults instead of an error.
func Load(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses config from raw YAML bytes, expanding env vars and validating.
func Parse(data []byte) (*Config, error) {
	expanded, err := expandEnvVars(data)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.GitHub.APIURL == "" {
		cfg.GitHub.APIURL = "https://api.github.com"
	}
	if cfg.Defaults.RequestTimeoutRaw == "" {
		cfg.Defaults.RequestTimeoutRaw = "30s"
	}
	if cfg.Defaults.CommentWorkers == 0 {
		cfg.Defaults.CommentWorkers = 4
	}
	if cfg.Defaults.MaxBodyLength == 0 {
		cfg.Defaults.MaxBodyLength = 20000
	}
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.GitHub.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url %q: %w", cfg.GitHub.APIURL, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("api_url must be an https URL with a host, got %q", cfg.GitHub.APIURL)
	}

	timeout, err := time.ParseDuration(cfg.Defaults.RequestTimeoutRaw)
	if err != nil {
		return fmt.Errorf("invalid request_timeout %q: %w", cfg.Defaults.RequestTimeoutRaw, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", timeout)
	}

	if cfg.Defaults.CommentWorkers < 1 {
		return fmt.Errorf("comment_workers must be at least 1, got %d", cfg.Defaults.CommentWorkers)
	}
	if cfg.Defaults.MaxBodyLength < 1 {
		return fmt.Errorf("max_body_length must be at least 1, got %d", cfg.Defaults.MaxBodyLength)
	}
	if cfg.Analyze.Top != nil && *cfg.Analyze.Top < 0 {
		return fmt.Errorf("analyze.top must not be negative, got %d", *cfg.Analyze.Top)
	}

	return nil
}

// TokenFromEnv returns the first non-empty of GITHUB_TOKEN and GH_TOKEN.
func TokenFromEnv(getenv func(string) string) string {
	for _, key := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// LoadEnvFile copies KEY=value pairs from a dotenv file into the process
// environment. Variables that are already set keep their value. When optional
// is set, a missing file is not an error.
func LoadEnvFile(path string, optional bool) error {
	if err := godotenv.Load(path); err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}
