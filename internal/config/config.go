// Package config loads .azkar/config.yaml: where the Document lives, which
// keys its records use, where launcher icons go and how azkarctl logs.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"azkartool/internal/document"
	"azkartool/internal/icons"
	"azkartool/internal/logging"
	"azkartool/internal/record"
)

const (
	// Dir is the per-workspace directory holding config and logs.
	Dir      = ".azkar"
	fileName = "config.yaml"
)

// Config holds all azkarctl configuration.
type Config struct {
	Document DocumentConfig `yaml:"document"`
	Schema   record.Schema  `yaml:"schema"`
	Icons    IconsConfig    `yaml:"icons"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DocumentConfig locates the content file.
type DocumentConfig struct {
	Path     string `yaml:"path"`
	Encoding string `yaml:"encoding"` // utf-8, utf-16, utf-16le, utf-16be

	// Blocks limits renumber and check to these names; empty means every
	// named block in the Document.
	Blocks []string `yaml:"blocks,omitempty"`
}

// IconsConfig configures the icon batch transform.
type IconsConfig struct {
	Source       string         `yaml:"source"`
	OutputRoot   string         `yaml:"output_root"`
	CropFraction float64        `yaml:"crop_fraction"`
	Targets      []icons.Target `yaml:"targets"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // console, json
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories,omitempty"` // missing entries are enabled
}

// envOverrides are read after the file and win over it. Flags win over both.
type envOverrides struct {
	Document   string `env:"AZKAR_DOCUMENT"`
	Encoding   string `env:"AZKAR_ENCODING"`
	IconSource string `env:"AZKAR_ICON_SOURCE"`
	IconOutput string `env:"AZKAR_ICON_OUTPUT"`
	LogLevel   string `env:"AZKAR_LOG_LEVEL"`
	Debug      string `env:"AZKAR_DEBUG"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Document: DocumentConfig{
			Path:     "src/lib/azkar-data.ts",
			Encoding: string(document.EncodingUTF8),
		},
		Schema: record.DefaultSchema(),
		Icons: IconsConfig{
			OutputRoot:   "android/app/src/main/res",
			CropFraction: icons.DefaultCropFraction,
			Targets:      icons.DefaultTargets(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the config path inside workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, Dir, fileName)
}

// LogsDir returns the directory for debug log files inside workspace.
func LogsDir(workspace string) string {
	return filepath.Join(workspace, Dir, "logs")
}

// Load reads path over the defaults and applies AZKAR_* environment
// overrides. A missing file yields the defaults.
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadWith(ctx, path, envconfig.OsLookuper())
}

// LoadWith is Load with an explicit environment source.
func LoadWith(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(ctx, lookuper); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(ctx context.Context, lookuper envconfig.Lookuper) error {
	var env envOverrides
	if err := envconfig.ProcessWith(ctx, &env, lookuper); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Document.Path, env.Document)
	set(&c.Document.Encoding, env.Encoding)
	set(&c.Icons.Source, env.IconSource)
	set(&c.Icons.OutputRoot, env.IconOutput)
	set(&c.Logging.Level, env.LogLevel)
	if env.Debug != "" {
		debug, err := strconv.ParseBool(env.Debug)
		if err != nil {
			return fmt.Errorf("AZKAR_DEBUG: %w", err)
		}
		c.Logging.DebugMode = debug
	}
	return nil
}

// Save writes the configuration as YAML, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Document.Path) == "" {
		return fmt.Errorf("document.path is empty")
	}
	if _, err := document.ParseEncoding(c.Document.Encoding); err != nil {
		return fmt.Errorf("document.encoding: %w", err)
	}
	if err := c.Schema.Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	opts := c.IconOptions("")
	opts.Source, opts.OutputRoot = "-", "-" // paths are checked when the icons command runs
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("icons: %w", err)
	}

	level := strings.ToLower(c.Logging.Level)
	valid := false
	for _, l := range ValidLogLevels {
		if level == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if f := c.Logging.Format; f != "" && f != "console" && f != "json" {
		return fmt.Errorf("invalid logging.format: %s (valid: console, json)", f)
	}
	for name := range c.Logging.Categories {
		if !slices.Contains(logging.AllCategories(), logging.Category(name)) {
			return fmt.Errorf("unknown logging category: %s (valid: %v)", name, logging.AllCategories())
		}
	}
	return nil
}

// Encoding returns the parsed document encoding.
func (c *Config) Encoding() document.Encoding {
	enc, err := document.ParseEncoding(c.Document.Encoding)
	if err != nil {
		return document.EncodingUTF8
	}
	return enc
}

// DocumentPath resolves the Document path against workspace.
func (c *Config) DocumentPath(workspace string) string {
	return resolve(workspace, c.Document.Path)
}

// IconOptions builds icons.Options with paths resolved against workspace.
func (c *Config) IconOptions(workspace string) icons.Options {
	opts := icons.Options{
		Source:       c.Icons.Source,
		OutputRoot:   c.Icons.OutputRoot,
		CropFraction: c.Icons.CropFraction,
		Targets:      c.Icons.Targets,
	}
	if opts.CropFraction == 0 {
		opts.CropFraction = icons.DefaultCropFraction
	}
	if len(opts.Targets) == 0 {
		opts.Targets = icons.DefaultTargets()
	}
	if workspace != "" {
		if opts.Source != "" {
			opts.Source = resolve(workspace, opts.Source)
		}
		opts.OutputRoot = resolve(workspace, opts.OutputRoot)
	}
	return opts
}

func resolve(workspace, p string) string {
	if p == "" || filepath.IsAbs(p) || workspace == "" {
		return p
	}
	return filepath.Join(workspace, p)
}
