// Package config loads the tracereader YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/digitrace/errs"
	"github.com/arloliu/digitrace/format"
)

// ReaderConfig controls event decoding.
type ReaderConfig struct {
	ChunkSize    int  `yaml:"chunk_size"`
	SavedOnly    bool `yaml:"saved_only"`
	RawSamples   bool `yaml:"raw_samples"`
	BufferSizeKB int  `yaml:"buffer_size_kb"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// ArchiveConfig controls `tracereader pack`.
type ArchiveConfig struct {
	Compression string `yaml:"compression"` // none|zstd|s2|lz4
}

// Config is the top-level structure of the configuration file.
type Config struct {
	Reader  ReaderConfig  `yaml:"reader"`
	Log     LogConfig     `yaml:"log"`
	Archive ArchiveConfig `yaml:"archive"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Reader: ReaderConfig{
			ChunkSize:    1000,
			BufferSizeKB: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Archive: ArchiveConfig{
			Compression: "zstd",
		},
	}
}

// Load reads path over the defaults; keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges and enumerations. All problems are reported
// together, wrapped with errs.ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []error

	if c.Reader.ChunkSize < 0 {
		problems = append(problems, fmt.Errorf("reader.chunk_size must not be negative: %d", c.Reader.ChunkSize))
	}
	if c.Reader.BufferSizeKB < 0 {
		problems = append(problems, fmt.Errorf("reader.buffer_size_kb must not be negative: %d", c.Reader.BufferSizeKB))
	}
	if _, err := c.LogLevel(); err != nil {
		problems = append(problems, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Errorf("log.format must be text or json: %q", c.Log.Format))
	}
	if _, err := c.Compression(); err != nil {
		problems = append(problems, err)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", errs.ErrInvalidConfig, errors.Join(problems...))
	}

	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}

	return level, nil
}

// Compression parses Archive.Compression.
func (c *Config) Compression() (format.CompressionType, error) {
	ct, err := format.ParseCompressionType(c.Archive.Compression)
	if err != nil {
		return 0, fmt.Errorf("archive.compression: %w", err)
	}

	return ct, nil
}

// BufferSize returns the cursor buffer size in bytes.
func (c *Config) BufferSize() int {
	return c.Reader.BufferSizeKB * 1024
}
