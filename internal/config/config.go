package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/ttml2srt/internal/model"
)

// FileNames lists the configuration files searched for, in priority order,
// when no explicit --config path is given.
var FileNames = []string{".ttml2srt.yaml", ".ttml2srt.yml", ".ttml2srt.json"}

// Config holds the batch conversion settings.
type Config struct {
	// Extensions is the source filter. Matching is case-insensitive and a
	// leading dot is added when missing.
	Extensions []string `yaml:"extensions" json:"extensions"`

	// Overwrite allows replacing existing .srt outputs.
	Overwrite bool `yaml:"overwrite" json:"overwrite"`

	// Jobs is the number of files converted concurrently.
	Jobs int `yaml:"jobs" json:"jobs"`

	// OnCueError is the policy for cues without usable times.
	OnCueError model.CuePolicy `yaml:"on_cue_error" json:"on_cue_error"`

	// NormalizeUnicode enables NFC normalization of cue text.
	NormalizeUnicode bool `yaml:"normalize_unicode" json:"normalize_unicode"`

	// ContainerOffsets adds body/div begin attributes to cue times.
	ContainerOffsets bool `yaml:"container_offsets" json:"container_offsets"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Path is the file the configuration was loaded from, empty for
	// built-in defaults.
	Path string `yaml:"-" json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Extensions:       []string{".ttml", ".xml"},
		Overwrite:        true,
		Jobs:             1,
		OnCueError:       model.PolicySkip,
		NormalizeUnicode: true,
		LogLevel:         "info",
	}
}

// Load reads a configuration file, decoding it according to its extension,
// then normalizes and validates the result.
//
// Returns a CLIError with ExitConfigError if the file does not exist or
// cannot be decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("config file not found: %s", path), err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json", ".jsonc":
		// Strip // and /* */ comments and trailing commas first.
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		return nil, model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("unsupported config format %q (use .yaml, .yml, .json or .jsonc)", ext))
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	cfg.Path = path
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("invalid config file %s", path), err)
	}
	return cfg, nil
}

// Find looks for one of FileNames in dir and returns the first that
// exists.
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Resolve returns the configuration to use: the explicit path when given,
// otherwise the first file found in dir, otherwise the defaults.
func Resolve(explicit, dir string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	if path, ok := Find(dir); ok {
		return Load(path)
	}
	return Default(), nil
}

// Normalize lower-cases the extensions, adds missing leading dots and drops
// duplicates and blanks.
func (c *Config) Normalize() {
	seen := make(map[string]bool, len(c.Extensions))
	exts := make([]string, 0, len(c.Extensions))
	for _, e := range c.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		exts = append(exts, e)
	}
	c.Extensions = exts
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.OnCueError = model.CuePolicy(strings.ToLower(strings.TrimSpace(string(c.OnCueError))))
}

// ValidationError reports one invalid configuration key.
type ValidationError struct {
	// Field is the configuration key (e.g. "jobs").
	Field string

	// Message describes what is wrong with the value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every key and joins all problems into one error.
// It returns nil for a valid configuration.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Extensions) == 0 {
		errs = append(errs, &ValidationError{Field: "extensions", Message: "at least one source extension is required"})
	}
	for _, e := range c.Extensions {
		if strings.EqualFold(e, ".srt") {
			errs = append(errs, &ValidationError{Field: "extensions", Message: ".srt cannot be a source extension"})
		}
	}
	if c.Jobs < 1 {
		errs = append(errs, &ValidationError{Field: "jobs", Message: fmt.Sprintf("must be at least 1, got %d", c.Jobs)})
	}
	if !c.OnCueError.IsValid() {
		errs = append(errs, &ValidationError{Field: "on_cue_error", Message: fmt.Sprintf("invalid policy %q (valid: skip, fail, keep)", c.OnCueError)})
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, &ValidationError{Field: "log_level", Message: err.Error()})
	}

	return errors.Join(errs...)
}

// ParseLogLevel maps a level name to its slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", s)
	}
}
