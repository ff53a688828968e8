// Package config provides configuration loading and structs for stemmaflat.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/stemmaflat/internal/ranking"
)

// Environment variables that override repository settings.
const (
	EnvRepository = "STEMMAREST_REPOSITORY"
	EnvTradition  = "STEMMAREST_TRADITION"
	EnvUsername   = "STEMMAREST_USERNAME"
	EnvPassword   = "STEMMAREST_PASSWORD"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Repository RepositoryConfig `yaml:"repository"`
	Output     OutputConfig     `yaml:"output"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Edition    EditionConfig    `yaml:"edition"`
	Gazetteer  GazetteerConfig  `yaml:"gazetteer"`
	Graphs     GraphsConfig     `yaml:"graphs"`
	Server     ServerConfig     `yaml:"server"`
	Search     SearchConfig     `yaml:"search"`
	Storage    StorageConfig    `yaml:"storage"`
}

// RepositoryConfig locates the tradition on the collation service.
type RepositoryConfig struct {
	URL         string `yaml:"url"`
	TraditionID string `yaml:"tradition_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password,omitempty"`
}

// BaseURL returns {url}/tradition/{tradition_id}. A url that already ends in
// "/tradition" is not extended twice.
func (r *RepositoryConfig) BaseURL() string {
	base := strings.TrimRight(strings.TrimSpace(r.URL), "/")
	if !strings.HasSuffix(base, "/tradition") {
		base += "/tradition"
	}
	return base + "/" + strings.TrimSpace(r.TraditionID)
}

// HasAuth reports whether basic auth credentials are configured.
func (r *RepositoryConfig) HasAuth() bool {
	return r.Username != ""
}

// OutputConfig holds where generated files go.
type OutputConfig struct {
	Root string `yaml:"root"`
}

// FetchConfig tunes requests to the collation service.
type FetchConfig struct {
	Concurrency int           `yaml:"concurrency"`
	RateLimit   float64       `yaml:"rate_limit"` // requests per second
	Burst       int           `yaml:"burst"`
	Retries     int           `yaml:"retries"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// EditionConfig holds document-level metadata for the TEI header.
type EditionConfig struct {
	Title string `yaml:"title"`
}

// GazetteerConfig holds settings for place resolution.
type GazetteerConfig struct {
	GeonamesURL      string `yaml:"geonames_url"`
	GeonamesUsername string `yaml:"geonames_username"`
}

// GraphsConfig holds settings for variant graph rendering.
type GraphsConfig struct {
	DotBinary string `yaml:"dot_binary"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SearchConfig tunes section search.
type SearchConfig struct {
	TitleBoost    float64        `yaml:"title_boost"`
	SnippetLength int            `yaml:"snippet_length"`
	Ranking       ranking.Config `yaml:"ranking"`
}

// StorageConfig holds paths for the run database and search index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// Load reads and parses the config file at path, applies environment overrides
// (including a .env file next to the config), expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configDir := filepath.Dir(path)
	if err := loadDotEnv(filepath.Join(configDir, ".env")); err != nil {
		return nil, err
	}
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	cfg.Output.Root = expandPath(cfg.Output.Root, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)

	return &cfg, nil
}

// Validate reports configuration that makes generators unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Repository.URL) == "" {
		return fmt.Errorf("repository.url is required")
	}
	if strings.TrimSpace(c.Repository.TraditionID) == "" {
		return fmt.Errorf("repository.tradition_id is required")
	}
	if c.Repository.Username != "" && c.Repository.Password == "" {
		return fmt.Errorf("repository.password is required when username is set")
	}
	return nil
}

// loadDotEnv loads variables from path into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides repository settings from STEMMAREST_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvRepository); v != "" {
		cfg.Repository.URL = v
	}
	if v := os.Getenv(EnvTradition); v != "" {
		cfg.Repository.TraditionID = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		cfg.Repository.Username = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Repository.Password = strings.TrimSpace(v)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
