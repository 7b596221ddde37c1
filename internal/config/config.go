package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Redis
	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Simulation
	MaxSimulations     int           `mapstructure:"MAX_SIMULATIONS"`
	DefaultSimulations int           `mapstructure:"DEFAULT_SIMULATIONS"`
	SimulationWorkers  int           `mapstructure:"SIMULATION_WORKERS"`
	SimulationTimeout  time.Duration `mapstructure:"SIMULATION_TIMEOUT"`
	SimulationSeed     int64         `mapstructure:"SIMULATION_SEED"`
	PRNG               string        `mapstructure:"PRNG"`

	// Data files
	RatingsFile string `mapstructure:"RATINGS_FILE"`
	FormatsFile string `mapstructure:"FORMATS_FILE"`

	// Goal model
	PredictorURL            string        `mapstructure:"PREDICTOR_URL"`
	PredictorRateLimit      float64       `mapstructure:"PREDICTOR_RATE_LIMIT"`
	PredictorTimeout        time.Duration `mapstructure:"PREDICTOR_TIMEOUT"`
	CircuitBreakerThreshold int           `mapstructure:"CIRCUIT_BREAKER_THRESHOLD"`
	HomeAdvantage           float64       `mapstructure:"HOME_ADVANTAGE"`
	GoalBase                float64       `mapstructure:"GOAL_BASE"`
	GoalScale               float64       `mapstructure:"GOAL_SCALE"`
}

// LoadConfig reads the service configuration from an optional .env file and
// the environment, environment winning.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	// Set defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("REDIS_URL", "") // empty disables the result cache
	v.SetDefault("CACHE_TTL", "1h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("MAX_SIMULATIONS", 100000)
	v.SetDefault("DEFAULT_SIMULATIONS", 100)
	v.SetDefault("SIMULATION_WORKERS", 0) // 0 = one per CPU
	v.SetDefault("SIMULATION_TIMEOUT", "30s")
	v.SetDefault("SIMULATION_SEED", 0) // 0 = time based
	v.SetDefault("PRNG", "xorshift32")
	v.SetDefault("RATINGS_FILE", "")
	v.SetDefault("FORMATS_FILE", "")
	v.SetDefault("PREDICTOR_URL", "") // empty = in-process Elo model
	v.SetDefault("PREDICTOR_RATE_LIMIT", 20)
	v.SetDefault("PREDICTOR_TIMEOUT", "10s")
	v.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 5)
	v.SetDefault("HOME_ADVANTAGE", 0)
	v.SetDefault("GOAL_BASE", 1.35)
	v.SetDefault("GOAL_SCALE", 1000)

	// Read from environment
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse CORS origins from comma-separated string
	config.CorsOrigins = nil
	if corsStr := v.GetString("CORS_ORIGINS"); corsStr != "" {
		for _, origin := range strings.Split(corsStr, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				config.CorsOrigins = append(config.CorsOrigins, origin)
			}
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch {
	case c.MaxSimulations < 1:
		return fmt.Errorf("config error: 'MAX_SIMULATIONS' must be positive")
	case c.DefaultSimulations < 1 || c.DefaultSimulations > c.MaxSimulations:
		return fmt.Errorf("config error: 'DEFAULT_SIMULATIONS' must be in [1, %d]", c.MaxSimulations)
	case c.SimulationWorkers < 0:
		return fmt.Errorf("config error: 'SIMULATION_WORKERS' cannot be negative")
	case c.SimulationTimeout <= 0:
		return fmt.Errorf("config error: 'SIMULATION_TIMEOUT' must be positive")
	case c.GoalBase <= 0:
		return fmt.Errorf("config error: 'GOAL_BASE' must be positive")
	case c.GoalScale <= 0:
		return fmt.Errorf("config error: 'GOAL_SCALE' must be positive")
	case c.HomeAdvantage < 0:
		return fmt.Errorf("config error: 'HOME_ADVANTAGE' cannot be negative")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

