package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for a comment scrape
type Config struct {
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`
	Fetch     FetchConfig     `yaml:"fetch" json:"fetch"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Upload    UploadConfig    `yaml:"upload" json:"upload"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// InstagramConfig holds transport settings for the GraphQL endpoint.
// Session cookies are not part of the config; see pkg/auth.
type InstagramConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url" env:"INSTACOMMENTS_BASE_URL" env-description:"GraphQL host"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent" env:"INSTACOMMENTS_USER_AGENT" env-description:"User-Agent header"`
	AppID          string        `yaml:"app_id" json:"app_id" env:"INSTACOMMENTS_APP_ID" env-description:"X-IG-App-ID header"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" env:"INSTACOMMENTS_REQUEST_TIMEOUT" env-description:"per-request transport timeout"`
}

// FetchConfig mirrors the run configuration flags
type FetchConfig struct {
	DataFormat     string `yaml:"data_format" json:"data_format" env:"INSTACOMMENTS_DATA_FORMAT" env-description:"usernames or detailed"`
	FileFormat     string `yaml:"file_format" json:"file_format" env:"INSTACOMMENTS_FILE_FORMAT" env-description:"json, csv or txt (empty: infer from output path)"`
	PerPage        int    `yaml:"per_page" json:"per_page" env:"INSTACOMMENTS_PER_PAGE" env-description:"comments requested per page"`
	MaxComments    int    `yaml:"max_comments" json:"max_comments" env:"INSTACOMMENTS_MAX_COMMENTS" env-description:"stop after N parent comments (0: unlimited)"`
	MinLikes       int    `yaml:"min_likes" json:"min_likes" env:"INSTACOMMENTS_MIN_LIKES" env-description:"minimum likes for a parent comment"`
	IncludeReplies bool   `yaml:"include_replies" json:"include_replies" env:"INSTACOMMENTS_INCLUDE_REPLIES" env-description:"fetch replies for each parent"`
	Dedupe         bool   `yaml:"dedupe" json:"dedupe" env:"INSTACOMMENTS_DEDUPE" env-description:"drop duplicate usernames or ids"`
	SortUsernames  bool   `yaml:"sort_usernames" json:"sort_usernames" env:"INSTACOMMENTS_SORT_USERNAMES" env-description:"sort usernames case-insensitively on export"`
}

// RateLimitConfig spaces consecutive requests. Zero disables pacing.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute" env:"INSTACOMMENTS_REQUESTS_PER_MINUTE" env-description:"client-side request pace (0: unpaced)"`
	BurstSize         int `yaml:"burst_size" json:"burst_size" env:"INSTACOMMENTS_BURST_SIZE" env-description:"requests allowed back to back"`
}

// OutputConfig holds output file settings
type OutputConfig struct {
	Path     string `yaml:"path" json:"path" env:"INSTACOMMENTS_OUTPUT" env-description:"output file path"`
	Progress bool   `yaml:"progress" json:"progress" env:"INSTACOMMENTS_PROGRESS" env-description:"show progress while fetching"`
}

// UploadConfig configures the optional S3-compatible copy of the export
type UploadConfig struct {
	Bucket          string `yaml:"bucket" json:"bucket" env:"INSTACOMMENTS_UPLOAD_BUCKET" env-description:"bucket for an uploaded copy (empty: no upload)"`
	Prefix          string `yaml:"prefix" json:"prefix" env:"INSTACOMMENTS_UPLOAD_PREFIX"`
	Region          string `yaml:"region" json:"region" env:"INSTACOMMENTS_UPLOAD_REGION"`
	Endpoint        string `yaml:"endpoint" json:"endpoint" env:"INSTACOMMENTS_UPLOAD_ENDPOINT" env-description:"custom endpoint, e.g. MinIO"`
	AccessKeyID     string `yaml:"access_key_id" json:"-" env:"INSTACOMMENTS_UPLOAD_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" json:"-" env:"INSTACOMMENTS_UPLOAD_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" json:"use_path_style" env:"INSTACOMMENTS_UPLOAD_PATH_STYLE"`
}

// MetricsConfig controls the prometheus textfile written at the end of a run
type MetricsConfig struct {
	File string `yaml:"file" json:"file" env:"INSTACOMMENTS_METRICS_FILE" env-description:"prometheus textfile path (empty: disabled)"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level" env:"INSTACOMMENTS_LOG_LEVEL" env-description:"debug, info, warn, error"`
	File    string `yaml:"file" json:"file" env:"INSTACOMMENTS_LOG_FILE"`
	NoColor bool   `yaml:"no_color" json:"no_color" env:"INSTACOMMENTS_NO_COLOR"`
}

const (
	DefaultOutputPath = "listComments.json"
	DefaultPerPage    = 50
	DefaultUserAgent  = "Mozilla/5.0 (Linux; Android 13; SM-A125F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Mobile Safari/537.36"
	DefaultAppID      = "936619743392459"
)

// DefaultConfig returns a Config instance with the CLI defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL:        "https://www.instagram.com",
			UserAgent:      DefaultUserAgent,
			AppID:          DefaultAppID,
			RequestTimeout: 30 * time.Second,
		},
		Fetch: FetchConfig{
			DataFormat: "usernames",
			PerPage:    DefaultPerPage,
			Dedupe:     true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			BurstSize:         1,
		},
		Output: OutputConfig{
			Path:     DefaultOutputPath,
			Progress: true,
		},
		Upload: UploadConfig{
			Prefix: "instacomments",
			Region: "us-east-1",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overlays INSTACOMMENTS_* environment variables.
// Unset variables leave the current value untouched.
func (c *Config) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// DefaultPath is where `config init` writes when no path is given
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "instacomments", "config.yaml")
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".instacomments.yaml",
		".instacomments.yml",
		DefaultPath(),
		filepath.Join(os.Getenv("HOME"), ".instacomments.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var (
	validDataFormats = map[string]bool{"usernames": true, "detailed": true}
	validFileFormats = map[string]bool{"": true, "json": true, "csv": true, "txt": true}
	validLogLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "off": true}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base URL is required"))
	}
	if c.Instagram.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if !validDataFormats[strings.ToLower(c.Fetch.DataFormat)] {
		errs = append(errs, fmt.Errorf("invalid data format %q (want usernames or detailed)", c.Fetch.DataFormat))
	}
	if !validFileFormats[strings.ToLower(c.Fetch.FileFormat)] {
		errs = append(errs, fmt.Errorf("invalid file format %q (want json, csv or txt)", c.Fetch.FileFormat))
	}
	if c.Fetch.PerPage <= 0 {
		errs = append(errs, errors.New("per page must be positive"))
	}
	if c.Fetch.MaxComments < 0 {
		errs = append(errs, errors.New("max comments cannot be negative"))
	}
	if c.Fetch.MinLikes < 0 {
		errs = append(errs, errors.New("min likes cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Output.Path == "" {
		errs = append(errs, errors.New("output path is required"))
	}

	if c.Upload.Bucket != "" && c.Upload.Region == "" {
		errs = append(errs, errors.New("upload region is required when a bucket is set"))
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags applies explicitly set command line flags, keyed by flag name
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["data-format"].(string); ok && v != "" {
		c.Fetch.DataFormat = v
	}
	if v, ok := flags["file-format"].(string); ok {
		c.Fetch.FileFormat = v
	}
	if v, ok := flags["per-page"].(int); ok {
		c.Fetch.PerPage = v
	}
	if v, ok := flags["max-comments"].(int); ok {
		c.Fetch.MaxComments = v
	}
	if v, ok := flags["min-likes"].(int); ok {
		c.Fetch.MinLikes = v
	}
	if v, ok := flags["include-replies"].(bool); ok {
		c.Fetch.IncludeReplies = v
	}
	if v, ok := flags["dedupe"].(bool); ok {
		c.Fetch.Dedupe = v
	}
	if v, ok := flags["sort"].(bool); ok {
		c.Fetch.SortUsernames = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Path = v
	}
	if v, ok := flags["progress"].(bool); ok {
		c.Output.Progress = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["metrics-file"].(string); ok {
		c.Metrics.File = v
	}
	if v, ok := flags["upload-bucket"].(string); ok {
		c.Upload.Bucket = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["no-color"].(bool); ok {
		c.Logging.NoColor = v
	}
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".instacomments.env"))
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment (.env included) > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	LoadDotEnv()

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
