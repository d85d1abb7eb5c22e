// Package config loads vetprice settings from the config file, environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/vetprice/internal/output"
	"github.com/jmylchreest/vetprice/pkg/fetcher"
	"github.com/jmylchreest/vetprice/pkg/scan"
)

// EnvPrefix prefixes environment overrides, e.g. VETPRICE_OUTPUT_FORMAT.
const EnvPrefix = "VETPRICE"

// Config holds all settings.
type Config struct {
	Debug   bool   `mapstructure:"debug"`
	Quiet   bool   `mapstructure:"quiet"`
	LogFile string `mapstructure:"log_file"`

	// Catalog is an optional YAML term list replacing the built-in one.
	Catalog string `mapstructure:"catalog"`

	// Identities overrides the built-in browser signature pool.
	Identities []string `mapstructure:"identities"`

	Fast    FastConfig    `mapstructure:"fast"`
	Browser BrowserConfig `mapstructure:"browser"`
	Pacing  PacingConfig  `mapstructure:"pacing"`
	Output  OutputConfig  `mapstructure:"output"`
}

// FastConfig configures the plain HTTP strategy.
type FastConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Attempts          int           `mapstructure:"attempts" validate:"gte=1"`
	BackoffBase       time.Duration `mapstructure:"backoff_base" validate:"gte=0"`
	BackoffStep       time.Duration `mapstructure:"backoff_step" validate:"gte=0"`
	Jitter            time.Duration `mapstructure:"jitter" validate:"gte=0"`
	RateLimitCooldown time.Duration `mapstructure:"rate_limit_cooldown" validate:"gte=0"`
	RateLimitRetries  int           `mapstructure:"rate_limit_retries" validate:"gte=0"`
}

// BrowserConfig configures the rendering fallback.
type BrowserConfig struct {
	Engine     string        `mapstructure:"engine" validate:"oneof=chromedp rod"`
	Path       string        `mapstructure:"path"`
	Headless   bool          `mapstructure:"headless"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Attempts   int           `mapstructure:"attempts" validate:"gte=1"`
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
}

// PacingConfig sets the delays between requests.
type PacingConfig struct {
	TermMin      time.Duration `mapstructure:"term_min" validate:"gte=0"`
	TermMax      time.Duration `mapstructure:"term_max" validate:"gtefield=TermMin"`
	TestTermMin  time.Duration `mapstructure:"test_term_min" validate:"gte=0"`
	TestTermMax  time.Duration `mapstructure:"test_term_max" validate:"gtefield=TestTermMin"`
	SiteDelay    time.Duration `mapstructure:"site_delay" validate:"gte=0"`
	HostInterval time.Duration `mapstructure:"host_interval" validate:"gte=0"`
}

// OutputConfig selects where and how results are written.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" validate:"required"`
	Format string `mapstructure:"format" validate:"oneof=csv json jsonl yaml xlsx"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	fast := fetcher.DefaultFastConfig()
	v.SetDefault("fast.timeout", fast.Timeout)
	v.SetDefault("fast.attempts", fast.MaxAttempts)
	v.SetDefault("fast.backoff_base", fast.BackoffBase)
	v.SetDefault("fast.backoff_step", fast.BackoffStep)
	v.SetDefault("fast.jitter", fast.Jitter)
	v.SetDefault("fast.rate_limit_cooldown", fast.RateLimitCooldown)
	v.SetDefault("fast.rate_limit_retries", fast.MaxRateLimitRetries)

	browser := fetcher.DefaultBrowserConfig()
	v.SetDefault("browser.engine", fetcher.EngineChromedp)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.timeout", browser.Timeout)
	v.SetDefault("browser.attempts", browser.MaxAttempts)
	v.SetDefault("browser.retry_delay", browser.RetryDelay)

	v.SetDefault("pacing.term_min", time.Second)
	v.SetDefault("pacing.term_max", 3*time.Second)
	v.SetDefault("pacing.test_term_min", 500*time.Millisecond)
	v.SetDefault("pacing.test_term_max", 1500*time.Millisecond)
	v.SetDefault("pacing.site_delay", 2*time.Second)
	v.SetDefault("pacing.host_interval", fetcher.DefaultConfig().MinHostInterval)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.format", string(output.FormatCSV))
}

// Load applies defaults to v, decodes it and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the defaults without consulting any file or environment.
func Default() *Config {
	cfg, err := Load(viper.New())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks value constraints.
func Validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := strings.TrimPrefix(fe.Namespace(), "Config.") + ": failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// FetcherConfig maps the settings onto a fetcher.Config.
func (c *Config) FetcherConfig() fetcher.Config {
	return fetcher.Config{
		Fast: fetcher.FastConfig{
			Timeout:             c.Fast.Timeout,
			MaxAttempts:         c.Fast.Attempts,
			BackoffBase:         c.Fast.BackoffBase,
			BackoffStep:         c.Fast.BackoffStep,
			Jitter:              c.Fast.Jitter,
			RateLimitCooldown:   c.Fast.RateLimitCooldown,
			MaxRateLimitRetries: c.Fast.RateLimitRetries,
		},
		Browser: fetcher.BrowserConfig{
			Timeout:     c.Browser.Timeout,
			MaxAttempts: c.Browser.Attempts,
			RetryDelay:  c.Browser.RetryDelay,
		},
		MinHostInterval: c.Pacing.HostInterval,
		Identities:      c.Identities,
	}
}

// TermPacer returns the pacer used between search terms.
func (c *Config) TermPacer(testMode bool) scan.RandomPacer {
	if testMode {
		return scan.RandomPacer{Min: c.Pacing.TestTermMin, Max: c.Pacing.TestTermMax}
	}
	return scan.RandomPacer{Min: c.Pacing.TermMin, Max: c.Pacing.TermMax}
}

// OutputFormat returns the configured output format.
func (c *Config) OutputFormat() output.Format {
	return output.Format(c.Output.Format)
}
