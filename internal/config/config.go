package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jhw/go-outrights/pkg/outrights"
)

// Config is the service and CLI configuration, matching config.yaml
type Config struct {
	Env      string         `mapstructure:"env"` // development or production
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Source   SourceConfig   `mapstructure:"source"`
	Model    ModelConfig    `mapstructure:"model"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig selects the run store; an empty URL keeps runs in memory
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig enables the run cache when URL is set
type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

// SourceConfig configures the football-data.co.uk client and its refresh schedule
type SourceConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Season          string        `mapstructure:"season"` // e.g. "2425"
	Leagues         []string      `mapstructure:"leagues"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RefreshCron     string        `mapstructure:"refresh_cron"` // empty disables scheduled refresh
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
	EventsDir       string        `mapstructure:"events_dir"`
}

// ModelConfig holds solver and simulation settings
type ModelConfig struct {
	Paths              int             `mapstructure:"paths"`
	MaxIterations      int             `mapstructure:"max_iterations"`
	Strategy           string          `mapstructure:"strategy"`
	Selector           string          `mapstructure:"selector"`
	Seed               uint64          `mapstructure:"seed"`
	Workers            int             `mapstructure:"workers"`
	TrainingWindow     int             `mapstructure:"training_window"`
	GridSize           int             `mapstructure:"grid_size"`
	Rho                float64         `mapstructure:"rho"`
	RatingRange        outrights.Range `mapstructure:"rating_range"`
	HomeAdvantageRange outrights.Range `mapstructure:"home_advantage_range"`
	ExcellentError     float64         `mapstructure:"excellent_error"`
	MaxError           float64         `mapstructure:"max_error"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IsDevelopment reports whether the configuration targets a development environment
func (c *Config) IsDevelopment() bool {
	return c.Env != "production"
}

// SimParams converts the model settings into solver and simulation parameters
func (m ModelConfig) SimParams() *outrights.SimParams {
	params := outrights.DefaultSimParams()
	params.Paths = m.Paths
	params.MaxIterations = m.MaxIterations
	params.Strategy = m.Strategy
	params.Seed = m.Seed
	if m.Workers > 0 {
		params.Workers = m.Workers
	}
	params.TrainingWindow = m.TrainingWindow
	params.GridSize = m.GridSize
	params.Rho = m.Rho
	params.RatingRange = m.RatingRange
	params.HomeAdvantageRange = m.HomeAdvantageRange
	params.ExcellentError = m.ExcellentError
	params.MaxError = m.MaxError
	return params
}

func setDefaults(v *viper.Viper) {
	defaults := outrights.DefaultSimParams()

	v.SetDefault("env", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", time.Hour)

	v.SetDefault("source.base_url", "https://www.football-data.co.uk/mmz4281")
	v.SetDefault("source.season", "2425")
	v.SetDefault("source.leagues", []string{"ENG1", "ENG2", "ENG3", "ENG4", "SCO1"})
	v.SetDefault("source.timeout", 30*time.Second)
	v.SetDefault("source.refresh_cron", "")
	v.SetDefault("source.breaker_failures", 3)
	v.SetDefault("source.breaker_timeout", time.Minute)
	v.SetDefault("source.events_dir", "fixtures/events")

	v.SetDefault("model.paths", defaults.Paths)
	v.SetDefault("model.max_iterations", defaults.MaxIterations)
	v.SetDefault("model.strategy", defaults.Strategy)
	v.SetDefault("model.selector", outrights.SelectorMatchOdds)
	v.SetDefault("model.seed", defaults.Seed)
	v.SetDefault("model.workers", 0)
	v.SetDefault("model.training_window", defaults.TrainingWindow)
	v.SetDefault("model.grid_size", defaults.GridSize)
	v.SetDefault("model.rho", defaults.Rho)
	v.SetDefault("model.rating_range.min", defaults.RatingRange.Min)
	v.SetDefault("model.rating_range.max", defaults.RatingRange.Max)
	v.SetDefault("model.home_advantage_range.min", defaults.HomeAdvantageRange.Min)
	v.SetDefault("model.home_advantage_range.max", defaults.HomeAdvantageRange.Max)
	v.SetDefault("model.excellent_error", defaults.ExcellentError)
	v.SetDefault("model.max_error", defaults.MaxError)

	v.SetDefault("log.level", "")
	v.SetDefault("log.format", "")
}

// LoadConfig reads config.yaml (from ./config or the working directory, or
// configFile when given) and applies environment overrides. A missing config
// file is not an error; defaults apply.
func LoadConfig(configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("OUTRIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overrideFromEnv applies the conventional unprefixed platform variables
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" && cfg.Log.Level == "" {
		cfg.Log.Level = v
	}
}

// Validate checks settings the solver and simulator cannot recover from
func (c *Config) Validate() error {
	var problems []string
	if c.Model.MaxIterations < 1 {
		problems = append(problems, "model.max_iterations must be positive")
	}
	if err := c.Model.SimParams().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := outrights.MinimizerByName(c.Model.Strategy, c.Model.Seed, nil); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := outrights.SelectorByName(c.Model.Selector); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
