// Package config loads run settings from flags, the environment and an
// optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/user/datadesk/internal/imdb"
	"github.com/user/datadesk/internal/matches"
	"github.com/user/datadesk/internal/payroll"
)

// Config stores all configuration for the application.
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	MaxAttempts    int           `mapstructure:"MAX_ATTEMPTS"`
	BackoffUnit    time.Duration `mapstructure:"BACKOFF_UNIT"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	UserAgents     []string      `mapstructure:"USER_AGENTS"`
	Proxies        []string      `mapstructure:"PROXIES"`

	PostgresURL  string        `mapstructure:"POSTGRES_URL"`
	RedisAddr    string        `mapstructure:"REDIS_ADDR"`
	PageCacheTTL time.Duration `mapstructure:"PAGE_CACHE_TTL"`
	StatusAddr   string        `mapstructure:"STATUS_ADDR"`

	Browser Browser        `mapstructure:"browser"`
	IMDb    imdb.Config    `mapstructure:"imdb"`
	Payroll payroll.Config `mapstructure:"payroll"`
	Merge   matches.Config `mapstructure:"merge"`
}

type Browser struct {
	Headless     bool          `mapstructure:"headless"`
	PageTimeout  time.Duration `mapstructure:"page_timeout"`
	WaitSelector string        `mapstructure:"wait_selector"`
	WaitTimeout  time.Duration `mapstructure:"wait_timeout"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
}

// ListSeparator splits list values given as a single string. User agents
// contain commas, so lists are pipe separated.
const ListSeparator = "|"

// New returns a viper instance with defaults and environment lookup set up.
// Nested keys read from the environment with "." replaced by "_", so
// imdb.start_year is IMDB_START_YEAR.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MAX_ATTEMPTS", 3)
	v.SetDefault("BACKOFF_UNIT", time.Second)
	v.SetDefault("REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("USER_AGENTS", []string{})
	v.SetDefault("PROXIES", []string{})
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("PAGE_CACHE_TTL", 24*time.Hour)
	v.SetDefault("STATUS_ADDR", "")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.page_timeout", 60*time.Second)
	v.SetDefault("browser.wait_selector", "#table")
	v.SetDefault("browser.wait_timeout", 15*time.Second)
	v.SetDefault("browser.settle_delay", 2*time.Second)

	i := imdb.DefaultConfig()
	v.SetDefault("imdb.base_url", i.BaseURL)
	v.SetDefault("imdb.start_year", i.StartYear)
	v.SetDefault("imdb.end_year", i.EndYear)
	v.SetDefault("imdb.output", i.Output)
	v.SetDefault("imdb.movie_delay", i.MovieDelay)
	v.SetDefault("imdb.year_delay", i.YearDelay)

	p := payroll.DefaultConfig()
	v.SetDefault("payroll.url_template", p.URLTemplate)
	v.SetDefault("payroll.start_year", p.StartYear)
	v.SetDefault("payroll.end_year", p.EndYear)
	v.SetDefault("payroll.seasons", []string{})
	v.SetDefault("payroll.delay", p.Delay)
	v.SetDefault("payroll.output_prefix", p.OutputPrefix)

	m := matches.DefaultConfig()
	v.SetDefault("merge.dir", m.Dir)
	v.SetDefault("merge.pattern", m.Pattern)
	v.SetDefault("merge.first_id", m.FirstID)
	v.SetDefault("merge.last_id", m.LastID)
	v.SetDefault("merge.output", m.Output)
}

// Load reads the optional env file from fs and decodes v into a Config.
func Load(v *viper.Viper, fs afero.Fs, envFile string) (*Config, error) {
	if envFile != "" {
		v.SetFs(fs)
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		// A missing .env is fine; configuration may come purely from the environment.
		if err := v.ReadInConfig(); err == nil {
			promoteNested(v)
		} else if exists, _ := afero.Exists(fs, envFile); exists {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(ListSeparator),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// promoteNested maps flat .env keys such as IMDB_START_YEAR onto nested keys.
// They are applied as defaults so real environment variables and flags still
// take precedence.
func promoteNested(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		if !strings.Contains(key, ".") {
			continue
		}
		flat := strings.ReplaceAll(key, ".", "_")
		if v.InConfig(flat) {
			v.SetDefault(key, v.Get(flat))
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts))
	}
	if c.BackoffUnit < 0 {
		errs = append(errs, fmt.Errorf("BACKOFF_UNIT must not be negative"))
	}
	if c.IMDb.StartYear > c.IMDb.EndYear {
		errs = append(errs, fmt.Errorf("imdb.start_year %d is after imdb.end_year %d", c.IMDb.StartYear, c.IMDb.EndYear))
	}
	if !strings.Contains(c.Payroll.URLTemplate, "%s") {
		errs = append(errs, fmt.Errorf("payroll.url_template needs a %%s placeholder"))
	}
	if c.Merge.FirstID > c.Merge.LastID {
		errs = append(errs, fmt.Errorf("merge.first_id %d is after merge.last_id %d", c.Merge.FirstID, c.Merge.LastID))
	}
	return errors.Join(errs...)
}
