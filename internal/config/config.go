// Package config provides configuration loading for shopcard.
// Supports YAML files, .env files, environment variables, and flag overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/shopcard/internal/domain"
)

// Config holds all configuration for a conversion run.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Output     OutputConfig     `yaml:"output"`
	Publish    PublishConfig    `yaml:"publish"`
	Log        LogConfig        `yaml:"log"`
}

// ExtractionConfig holds PDF rendering settings.
type ExtractionConfig struct {
	DPI         float64 `yaml:"dpi"`
	JPEGQuality int     `yaml:"jpeg_quality"`
	MaxFileMB   int64   `yaml:"max_file_mb"` // files above this size only log a warning
}

// AnalysisConfig holds provider and request shaping settings.
type AnalysisConfig struct {
	Provider        string        `yaml:"provider"` // empty means auto-detect from the environment
	Model           string        `yaml:"model"`
	VisionPages     int           `yaml:"vision_pages"`
	VisionImages    int           `yaml:"vision_images"`
	VisionTextLimit int           `yaml:"vision_text_limit"`
	TextLimit       int           `yaml:"text_limit"`
	TableLimit      int           `yaml:"table_limit"`
	TableRows       int           `yaml:"table_rows"`
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	Fallback        bool          `yaml:"fallback"`
}

// OutputConfig holds artifact settings.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	SaveJSON   bool   `yaml:"save_json"`
	SaveImages bool   `yaml:"save_images"`
	Markdown   bool   `yaml:"markdown"`
}

// PublishConfig holds Cloud Storage upload settings.
type PublishConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Load reads .env files, the optional YAML file at path, and environment overrides.
func Load(path string) (*Config, error) {
	LoadDotEnv()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	}

	applyEnvOverrides(cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("invalid configuration", err)
	}

	return cfg, nil
}

// LoadDotEnv loads .env from the working directory. Variables already set win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", f, err)
		}
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			DPI:         144, // 2x zoom
			JPEGQuality: 85,
			MaxFileMB:   100,
		},
		Analysis: AnalysisConfig{
			VisionPages:     5,
			VisionImages:    3,
			VisionTextLimit: 15000,
			TextLimit:       20000,
			TableLimit:      5,
			TableRows:       10,
			MaxTokens:       4096,
			Timeout:         120 * time.Second,
			Fallback:        true,
		},
		Output: OutputConfig{
			SaveJSON:   true,
			SaveImages: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Extraction.DPI < 36 || c.Extraction.DPI > 600 {
		return fmt.Errorf("extraction.dpi must be between 36 and 600, got %v", c.Extraction.DPI)
	}

	if c.Extraction.JPEGQuality < 1 || c.Extraction.JPEGQuality > 100 {
		return fmt.Errorf("extraction.jpeg_quality must be between 1 and 100, got %d", c.Extraction.JPEGQuality)
	}

	if c.Analysis.VisionPages < 1 || c.Analysis.VisionImages < 1 {
		return fmt.Errorf("analysis.vision_pages and analysis.vision_images must be positive")
	}

	if c.Analysis.TextLimit < 1 || c.Analysis.VisionTextLimit < 1 {
		return fmt.Errorf("analysis text limits must be positive")
	}

	if c.Analysis.TableLimit < 0 || c.Analysis.TableRows < 0 {
		return fmt.Errorf("analysis table limits cannot be negative")
	}

	if c.Analysis.MaxTokens < 256 {
		return fmt.Errorf("analysis.max_tokens must be at least 256, got %d", c.Analysis.MaxTokens)
	}

	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis.timeout must be positive")
	}

	if f := strings.ToLower(c.Log.Format); f != "console" && f != "json" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	if c.Publish.Prefix != "" && c.Publish.Bucket == "" {
		return fmt.Errorf("publish.prefix set without publish.bucket")
	}

	return nil
}

// PublishEnabled reports whether artifacts should be uploaded after conversion.
func (c *Config) PublishEnabled() bool {
	return c.Publish.Bucket != ""
}

// SetPublishURL parses a gs://bucket/prefix location into the publish section.
func (c *Config) SetPublishURL(raw string) error {
	rest, ok := strings.CutPrefix(raw, "gs://")
	if !ok {
		return fmt.Errorf("publish location must start with gs://, got %q", raw)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return fmt.Errorf("publish location %q has no bucket", raw)
	}
	c.Publish.Bucket = bucket
	c.Publish.Prefix = strings.Trim(prefix, "/")
	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if v := getenv("LLM_MODEL"); v != "" {
		cfg.Analysis.Model = v
	}

	if v := getenv("SHOPCARD_PROVIDER"); v != "" {
		cfg.Analysis.Provider = strings.ToLower(v)
	}

	if v := getenv("SHOPCARD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analysis.Timeout = d
		}
	}

	if v := getenv("SHOPCARD_DPI"); v != "" {
		if dpi, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Extraction.DPI = dpi
		}
	}

	if v := getenv("SHOPCARD_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}

	if v := getenv("SHOPCARD_PUBLISH"); v != "" {
		// invalid locations surface through the --publish flag path instead
		_ = cfg.SetPublishURL(v)
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
