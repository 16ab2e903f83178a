// Package config loads devscore settings from defaults, an optional YAML
// file, .env files and DEVSCORE_ environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const (
	AppName        = "devscore"
	EnvPrefix      = "DEVSCORE_"
	ConfigEnvVar   = EnvPrefix + "CONFIG"
	GitHubTokenEnv = "GITHUB_TOKEN"
	GeminiKeyEnv   = "GEMINI_API_KEY"

	configFileName = "config.yaml"
	dataFileName   = "data.db"
	dotEnvFile     = ".env"
	dirMode        = 0700
	fileMode       = 0600
	redacted       = "********"
)

// Config is the complete application configuration.
type Config struct {
	LogLevel  string `koanf:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `koanf:"log_format" yaml:"log_format" validate:"oneof=cli text json"`
	Format    string `koanf:"format" yaml:"format" validate:"oneof=json yaml yml"`

	DBDriver string `koanf:"db_driver" yaml:"db_driver" validate:"oneof=sqlite postgres"`
	DBDSN    string `koanf:"db_dsn" yaml:"db_dsn"`

	GitHubToken    string `koanf:"github_token" yaml:"github_token,omitempty"`
	GitHubMaxPages int    `koanf:"github_max_pages" yaml:"github_max_pages" validate:"min=1,max=10"`
	GitHubAPIURL   string `koanf:"github_api_url" yaml:"github_api_url,omitempty" validate:"omitempty,url"`
	GitHubWebURL   string `koanf:"github_web_url" yaml:"github_web_url,omitempty" validate:"omitempty,url"`
	LeetCodeURL    string `koanf:"leetcode_url" yaml:"leetcode_url,omitempty" validate:"omitempty,url"`
	HackerRankURL  string `koanf:"hackerrank_url" yaml:"hackerrank_url,omitempty" validate:"omitempty,url"`

	GeminiAPIKey   string        `koanf:"gemini_api_key" yaml:"gemini_api_key,omitempty"`
	GeminiModel    string        `koanf:"gemini_model" yaml:"gemini_model" validate:"required"`
	ReviewInterval time.Duration `koanf:"review_interval" yaml:"review_interval" validate:"min=0"`
	ReviewRetries  int           `koanf:"review_retries" yaml:"review_retries" validate:"min=1,max=10"`

	CacheTTL     time.Duration `koanf:"cache_ttl" yaml:"cache_ttl" validate:"min=0"`
	FetchTimeout time.Duration `koanf:"fetch_timeout" yaml:"fetch_timeout" validate:"gt=0"`

	ServerAddress string `koanf:"server_address" yaml:"server_address" validate:"required,hostname_port"`
}

// New returns the default configuration.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "cli",
		Format:         "json",
		DBDriver:       "sqlite",
		GitHubMaxPages: 1,
		GeminiModel:    "gemini-1.5-flash",
		ReviewInterval: 60 * time.Second,
		ReviewRetries:  3,
		CacheTTL:       24 * time.Hour,
		FetchTimeout:   20 * time.Second,
		ServerAddress:  "127.0.0.1:8080",
	}
}

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New)
//  2. the YAML file at path, or at $DEVSCORE_CONFIG when path is empty
//  3. environment variables prefixed with DEVSCORE_, after loading envFiles
//     (or ./.env when none are given) without overriding the environment
//
// GITHUB_TOKEN and GEMINI_API_KEY fill the credentials when no other layer did.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		slog.Debug("config file loaded", "path", path)
	}

	// DEVSCORE_DB_DSN -> db_dsn
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv(GitHubTokenEnv)
	}
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv(GeminiKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(dotEnvFile); err != nil {
			return nil //nolint:nilerr // .env is optional
		}
		files = []string{dotEnvFile}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading env files %v: %w", files, err)
	}
	return nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.DBDriver == "postgres" && c.DBDSN == "" {
		return errors.New("invalid config: db_dsn is required for postgres")
	}
	return nil
}

// Redacted returns a copy that is safe to print.
func (c *Config) Redacted() *Config {
	r := *c
	if r.GitHubToken != "" {
		r.GitHubToken = redacted
	}
	if r.GeminiAPIKey != "" {
		r.GeminiAPIKey = redacted
	}
	if r.DBDriver == "postgres" && r.DBDSN != "" {
		r.DBDSN = redacted
	}
	return &r
}

// Save writes the config as YAML into dirPath and returns the file path.
// Credentials are never written.
func Save(dirPath string, c *Config) (string, error) {
	if dirPath == "" {
		return "", errors.New("config directory required")
	}
	if c == nil {
		return "", errors.New("config required")
	}

	out := *c
	out.GitHubToken = ""
	out.GeminiAPIKey = ""

	b, err := yamlv3.Marshal(&out)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return "", fmt.Errorf("writing config file %s: %w", path, err)
	}
	return path, nil
}

// GetOrCreateHomeDir returns ~/.<name>, creating it when missing.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("getting user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("creating dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}

// DefaultDSN returns the SQLite database path in the app home dir, or in
// the working directory when the home dir is unavailable.
func DefaultDSN() string {
	dir, _, err := GetOrCreateHomeDir(AppName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return dataFileName
	}
	return filepath.Join(dir, dataFileName)
}
