package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/site-guard/internal/check"
	"github.com/angeloszaimis/site-guard/internal/content"
	"github.com/angeloszaimis/site-guard/internal/retry"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Load failure kinds. Schema violations come back as ozzo validation
// errors; everything here is a distinct pre-validation failure.
var (
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrEmptyConfig       = errors.New("configuration file is empty")
	ErrUnsupportedFormat = errors.New("unsupported configuration file format")
	ErrMalformedConfig   = errors.New("configuration file cannot be parsed")
)

// RequirementConfig is one content requirement. A bare string in the config
// is shorthand for a case-sensitive literal requirement and is normalized
// into this form at parse time.
type RequirementConfig struct {
	Pattern       string `mapstructure:"pattern"`
	UseWildcards  bool   `mapstructure:"use_wildcards"`
	CaseSensitive *bool  `mapstructure:"case_sensitive"`
}

// RetryConfig mirrors retry.Options with optional fields; unset fields fall
// back to the package defaults.
type RetryConfig struct {
	Enabled                *bool         `mapstructure:"enabled"`
	MaxAttempts            int           `mapstructure:"max_attempts"`
	Strategy               string        `mapstructure:"strategy"`
	BaseDelay              time.Duration `mapstructure:"base_delay"`
	MaxDelay               time.Duration `mapstructure:"max_delay"`
	BackoffMultiplier      float64       `mapstructure:"backoff_multiplier"`
	RetryOnStatusCodes     []int         `mapstructure:"retry_on_status_codes"`
	RetryOnTimeout         *bool         `mapstructure:"retry_on_timeout"`
	RetryOnConnectionError *bool         `mapstructure:"retry_on_connection_error"`
	Jitter                 *bool         `mapstructure:"jitter"`
}

type SiteConfig struct {
	Name                string              `mapstructure:"name"`
	URL                 string              `mapstructure:"url"`
	Timeout             time.Duration       `mapstructure:"timeout"`
	RequireAllContent   *bool               `mapstructure:"require_all_content"`
	ContentRequirements []RequirementConfig `mapstructure:"content_requirements"`
	Retry               *RetryConfig        `mapstructure:"retry"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

type Config struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	LogFile       string        `mapstructure:"log_file"`
	GlobalRetry   *RetryConfig  `mapstructure:"global_retry"`
	Sites         []SiteConfig  `mapstructure:"sites"`
	Server        ServerConfig  `mapstructure:"server"`
	Logging       LoggingConfig `mapstructure:"logging"`
}

// Load reads, decodes, normalizes, and validates the configuration at path.
// The format is selected by file extension (yaml/yml/json). Any error here
// is a fatal startup failure; there is no partial-config recovery.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyConfig, path)
	}

	v := viper.New()
	v.SetDefault("check_interval", "60s")
	v.SetDefault("log_file", "site_guard.log")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.environment", EnvDev)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		slog.Error("failed to read config file", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// decodeHooks augments viper's decoding: duration strings, bare numbers as
// seconds, and the bare-string content requirement shorthand.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		secondsToDurationHookFunc(),
		stringToRequirementHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// secondsToDurationHookFunc lets numeric config values stand for seconds,
// so both `timeout: 30` and `timeout: "30s"` load.
func secondsToDurationHookFunc() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))

	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != durationType {
			return data, nil
		}

		switch value := data.(type) {
		case int:
			return time.Duration(value) * time.Second, nil
		case int64:
			return time.Duration(value) * time.Second, nil
		case uint64:
			return time.Duration(value) * time.Second, nil
		case float64:
			return time.Duration(value * float64(time.Second)), nil
		default:
			return data, nil
		}
	}
}

func stringToRequirementHookFunc() mapstructure.DecodeHookFuncType {
	requirementType := reflect.TypeOf(RequirementConfig{})

	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != requirementType || f.Kind() != reflect.String {
			return data, nil
		}
		return RequirementConfig{Pattern: data.(string)}, nil
	}
}

// normalize trims patterns, applies field defaults, and lets sites without
// their own retry block inherit the global one.
func (c *Config) normalize() {
	for i := range c.Sites {
		site := &c.Sites[i]

		if site.Retry == nil {
			site.Retry = c.GlobalRetry
		}
		if site.RequireAllContent == nil {
			site.RequireAllContent = boolPtr(true)
		}

		for j := range site.ContentRequirements {
			req := &site.ContentRequirements[j]
			req.Pattern = strings.TrimSpace(req.Pattern)
			if req.CaseSensitive == nil {
				req.CaseSensitive = boolPtr(true)
			}
		}
	}
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CheckInterval,
			validation.Required,
			validation.By(validatePositiveDuration),
		),
		validation.Field(&c.LogFile,
			validation.Required,
		),
		validation.Field(&c.GlobalRetry,
			validation.By(validateRetryConfig),
		),
		validation.Field(&c.Sites,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateSiteConfig)),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
					validation.Field(&lc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
				)
			}),
		),
	)
}

// WithCheckInterval returns a copy of the config with the interval
// overridden, for the CLI flag.
func (c *Config) WithCheckInterval(interval time.Duration) *Config {
	override := *c
	override.CheckInterval = interval
	return &override
}

// BuildSites converts the validated configuration into immutable domain
// site specs. Construction failures here are fatal startup errors.
func (c *Config) BuildSites() ([]*check.Site, error) {
	sites := make([]*check.Site, 0, len(c.Sites))

	for _, sc := range c.Sites {
		target, err := url.Parse(sc.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing URL %q: %w", sc.URL, err)
		}

		requirements := make([]*content.Requirement, 0, len(sc.ContentRequirements))
		for _, rc := range sc.ContentRequirements {
			req, err := content.New(rc.Pattern, rc.UseWildcards, rc.CaseSensitive == nil || *rc.CaseSensitive)
			if err != nil {
				return nil, fmt.Errorf("site %q: %w", sc.URL, err)
			}
			requirements = append(requirements, req)
		}

		policy, err := retry.NewPolicy(sc.Retry.options())
		if err != nil {
			return nil, fmt.Errorf("site %q retry policy: %w", sc.URL, err)
		}

		site, err := check.NewSite(sc.Name, target, sc.Timeout,
			sc.RequireAllContent == nil || *sc.RequireAllContent, requirements, policy)
		if err != nil {
			return nil, fmt.Errorf("site %q: %w", sc.URL, err)
		}
		sites = append(sites, site)
	}

	return sites, nil
}

// options overlays this config onto the default retry options. A nil
// receiver means the site declared no retry block at all.
func (rc *RetryConfig) options() retry.Options {
	opts := retry.DefaultOptions()
	if rc == nil {
		return opts
	}

	if rc.Enabled != nil {
		opts.Enabled = *rc.Enabled
	}
	if rc.MaxAttempts != 0 {
		opts.MaxAttempts = rc.MaxAttempts
	}
	if rc.Strategy != "" {
		opts.Strategy = retry.Strategy(strings.ToUpper(rc.Strategy))
	}
	if rc.BaseDelay != 0 {
		opts.BaseDelay = rc.BaseDelay
	}
	if rc.MaxDelay != 0 {
		opts.MaxDelay = rc.MaxDelay
	}
	if rc.BackoffMultiplier != 0 {
		opts.BackoffMultiplier = rc.BackoffMultiplier
	}
	if rc.RetryOnStatusCodes != nil {
		opts.RetryOnStatusCodes = rc.RetryOnStatusCodes
	}
	if rc.RetryOnTimeout != nil {
		opts.RetryOnTimeout = *rc.RetryOnTimeout
	}
	if rc.RetryOnConnectionError != nil {
		opts.RetryOnConnectionError = *rc.RetryOnConnectionError
	}
	if rc.Jitter != nil {
		opts.Jitter = *rc.Jitter
	}

	return opts
}

func validateSiteConfig(value interface{}) error {
	site, ok := value.(SiteConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a SiteConfig")
	}

	if err := validateSiteURL(site.URL); err != nil {
		return err
	}

	if len(site.ContentRequirements) == 0 {
		return validation.NewError("validation_no_requirements",
			"at least one content requirement must be specified")
	}
	for _, req := range site.ContentRequirements {
		if strings.TrimSpace(req.Pattern) == "" {
			return validation.NewError("validation_empty_pattern",
				"content requirement pattern cannot be empty")
		}
	}

	if site.Timeout < 0 {
		return validation.NewError("validation_invalid_timeout", "timeout cannot be negative")
	}

	return validateRetryConfig(site.Retry)
}

func validateRetryConfig(value interface{}) error {
	var rc *RetryConfig
	switch v := value.(type) {
	case nil:
		return nil
	case *RetryConfig:
		rc = v
	case RetryConfig:
		rc = &v
	default:
		return validation.NewError("validation_invalid_type", "must be a RetryConfig")
	}
	if rc == nil {
		return nil
	}

	if rc.Strategy != "" {
		if _, err := retry.ParseStrategy(strings.ToUpper(rc.Strategy)); err != nil {
			return validation.NewError("validation_invalid_strategy",
				"retry strategy must be one of FIXED, LINEAR, EXPONENTIAL")
		}
	}
	if rc.MaxAttempts < 0 {
		return validation.NewError("validation_invalid_max_attempts",
			"max_attempts must be at least 1")
	}
	if rc.BaseDelay < 0 || rc.MaxDelay < 0 {
		return validation.NewError("validation_invalid_delay", "delays cannot be negative")
	}
	if rc.BaseDelay > 0 && rc.MaxDelay > 0 && rc.MaxDelay < rc.BaseDelay {
		return validation.NewError("validation_invalid_delay",
			"max_delay must be >= base_delay")
	}
	if rc.BackoffMultiplier < 0 {
		return validation.NewError("validation_invalid_multiplier",
			"backoff_multiplier must be positive")
	}

	return nil
}

func validateSiteURL(serverURL string) error {
	if serverURL == "" {
		return validation.NewError("validation_empty_url", "site URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	d, ok := value.(time.Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}

	if d <= 0 {
		return validation.NewError("validation_invalid_duration",
			"must be a positive duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
