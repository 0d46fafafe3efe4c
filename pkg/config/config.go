package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the config file read when no path is given.
const DefaultConfigPath = "config.json"

// Defaults applied before the config file is read
const (
	DefaultWeeksAhead  = 26
	DefaultConcurrency = 1
	MaxConcurrency     = 20
)

// Strategy, color mode and rollover values accepted in the config file.
const (
	StrategyCreateFirst = "create-first"
	StrategyPreCheck    = "pre-check"

	ColorModeGradient = "gradient"
	ColorModeRandom   = "random"

	RolloverFixed52 = "fixed52"
	RolloverISO     = "iso"
)

// Config represents the weeklabel configuration
type Config struct {
	GitHubToken   string `mapstructure:"github_token" json:"github_token" yaml:"github_token"`
	OrgName       string `mapstructure:"org_name" json:"org_name,omitempty" yaml:"org_name,omitempty"`
	Repo          string `mapstructure:"repo" json:"repo,omitempty" yaml:"repo,omitempty"`
	WeeksAhead    int    `mapstructure:"weeks_ahead" json:"weeks_ahead,omitempty" yaml:"weeks_ahead,omitempty"`
	Concurrency   int    `mapstructure:"concurrency" json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Strategy      string `mapstructure:"strategy" json:"strategy,omitempty" yaml:"strategy,omitempty"`
	ColorMode     string `mapstructure:"color_mode" json:"color_mode,omitempty" yaml:"color_mode,omitempty"`
	Rollover      string `mapstructure:"rollover" json:"rollover,omitempty" yaml:"rollover,omitempty"`
	OrgBulkCreate bool   `mapstructure:"org_bulk_create" json:"org_bulk_create,omitempty" yaml:"org_bulk_create,omitempty"`
}

// Error is a fatal configuration problem: the file is missing or unreadable,
// cannot be parsed, or holds invalid values.
type Error struct {
	Path   string
	Fields []FieldError
	Cause  error
}

// FieldError describes one invalid configuration value
type FieldError struct {
	Field   string
	Value   string
	Message string
}

func (e FieldError) String() string {
	if e.Value != "" {
		return fmt.Sprintf("%s (value: %s): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if len(e.Fields) > 0 {
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.String())
		}
		fmt.Fprintf(&b, ": %s", strings.Join(msgs, "; "))
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsConfigError reports whether err is (or wraps) a configuration error.
func IsConfigError(err error) bool {
	var cfgErr *Error
	return errors.As(err, &cfgErr)
}

// Default returns a configuration populated with default values
func Default() *Config {
	return &Config{
		WeeksAhead:  DefaultWeeksAhead,
		Concurrency: DefaultConcurrency,
		Strategy:    StrategyCreateFirst,
		ColorMode:   ColorModeGradient,
		Rollover:    RolloverFixed52,
	}
}

// LoadConfigFromPath loads configuration from a JSON (or YAML) file. The token
// may be supplied or overridden by GITHUB_TOKEN, then WEEKLABEL_GITHUB_TOKEN.
func LoadConfigFromPath(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		return nil, &Error{Path: path, Cause: fmt.Errorf("failed to read config file: %w", err)}
	}

	defaults := Default()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType(path))
	v.SetDefault("weeks_ahead", defaults.WeeksAhead)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("strategy", defaults.Strategy)
	v.SetDefault("color_mode", defaults.ColorMode)
	v.SetDefault("rollover", defaults.Rollover)
	if err := v.BindEnv("github_token", "GITHUB_TOKEN", "WEEKLABEL_GITHUB_TOKEN"); err != nil {
		return nil, &Error{Path: path, Cause: err}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, &Error{Path: path, Cause: fmt.Errorf("failed to parse config file: %w", err)}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &Error{Path: path, Cause: fmt.Errorf("failed to decode config file: %w", err)}
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		var cfgErr *Error
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}

	return &cfg, nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func (c *Config) normalize() {
	c.GitHubToken = strings.TrimSpace(c.GitHubToken)
	c.OrgName = strings.TrimSpace(c.OrgName)
	c.Repo = strings.Trim(strings.TrimSpace(c.Repo), "/")
	c.Strategy = strings.ToLower(strings.TrimSpace(c.Strategy))
	c.ColorMode = strings.ToLower(strings.TrimSpace(c.ColorMode))
	c.Rollover = strings.ToLower(strings.TrimSpace(c.Rollover))
}

var (
	validOwner    = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)
	validRepoName = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// Validate validates the configuration
func (c *Config) Validate() error {
	var fields []FieldError
	add := func(field, value, message string) {
		fields = append(fields, FieldError{Field: field, Value: value, Message: message})
	}

	if c.GitHubToken == "" {
		add("github_token", "", "GitHub token is required")
	}

	if c.OrgName != "" {
		if err := validateOwner(c.OrgName); err != nil {
			add("org_name", c.OrgName, err.Error())
		}
	}

	if c.Repo != "" {
		owner, name := SplitRepo(c.Repo)
		if owner != "" {
			if err := validateOwner(owner); err != nil {
				add("repo", c.Repo, err.Error())
			}
		}
		if err := validateRepoName(name); err != nil {
			add("repo", c.Repo, err.Error())
		}
	}

	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		add("concurrency", fmt.Sprintf("%d", c.Concurrency), fmt.Sprintf("must be between 1 and %d", MaxConcurrency))
	}

	switch c.Strategy {
	case "", StrategyCreateFirst, StrategyPreCheck:
	default:
		add("strategy", c.Strategy, fmt.Sprintf("must be one of: %s, %s", StrategyCreateFirst, StrategyPreCheck))
	}

	switch c.ColorMode {
	case "", ColorModeGradient, ColorModeRandom:
	default:
		add("color_mode", c.ColorMode, fmt.Sprintf("must be one of: %s, %s", ColorModeGradient, ColorModeRandom))
	}

	switch c.Rollover {
	case "", RolloverFixed52, RolloverISO:
	default:
		add("rollover", c.Rollover, fmt.Sprintf("must be one of: %s, %s", RolloverFixed52, RolloverISO))
	}

	if len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}

// SplitRepo splits "owner/name" into its parts. A bare name yields an empty owner.
func SplitRepo(repo string) (owner, name string) {
	if i := strings.Index(repo, "/"); i >= 0 {
		return repo[:i], repo[i+1:]
	}
	return "", repo
}

func validateOwner(owner string) error {
	if len(owner) > 39 {
		return fmt.Errorf("owner must be 39 characters or less")
	}
	if !validOwner.MatchString(owner) || strings.Contains(owner, "--") {
		return fmt.Errorf("owner '%s' is invalid: must contain only alphanumeric characters and single hyphens, cannot start or end with hyphen", owner)
	}
	return nil
}

func validateRepoName(name string) error {
	if name == "" {
		return fmt.Errorf("repository name is required")
	}
	if len(name) > 100 {
		return fmt.Errorf("repository name must be 100 characters or less")
	}
	if !validRepoName.MatchString(name) {
		return fmt.Errorf("repository name can only contain alphanumeric characters, periods, hyphens, and underscores")
	}
	return nil
}

// SaveConfigToPath writes the configuration as indented JSON (or YAML when
// the path has a .yaml/.yml extension).
func (c *Config) SaveConfigToPath(path string) error {
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.marshal(configType(path))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) marshal(format string) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(c)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
