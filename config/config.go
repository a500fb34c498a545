package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
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

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// BreakerConfig holds the breaker parameters shared by the defaults section
// and the per-service overrides. Durations are strings so they can come
// from YAML and env vars alike.
type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	SuccessThreshold int    `mapstructure:"success_threshold"`
	OpenTimeout      string `mapstructure:"open_timeout"`
	HalfOpenMaxCalls int    `mapstructure:"half_open_max_calls"`
}

// ServiceConfig is a per-service breaker override. Zero-valued fields
// inherit the defaults section.
type ServiceConfig struct {
	Name    string        `mapstructure:"name"`
	Breaker BreakerConfig `mapstructure:",squash"`
}

type MonitorConfig struct {
	Interval string `mapstructure:"interval"`
}

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Logging  LoggingConfig   `mapstructure:"logging"`
	Defaults BreakerConfig   `mapstructure:"defaults"`
	Services []ServiceConfig `mapstructure:"services"`
	Monitor  MonitorConfig   `mapstructure:"monitor"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("defaults.failure_threshold", 5)
	viper.SetDefault("defaults.success_threshold", 2)
	viper.SetDefault("defaults.open_timeout", "30s")
	viper.SetDefault("defaults.half_open_max_calls", 1)
	viper.SetDefault("monitor.interval", "2s")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
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
				)
			}),
		),
		validation.Field(&c.Defaults,
			validation.Required,
			validation.By(validateBreakerDefaults),
		),
		validation.Field(&c.Services,
			validation.Each(validation.By(validateServiceConfig)),
		),
		validation.Field(&c.Monitor,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MonitorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MonitorConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
	)
}

// validateBreakerDefaults requires every field: the defaults section is the
// fallback for services that omit values, so it must be complete.
func validateBreakerDefaults(value interface{}) error {
	bc, ok := value.(BreakerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
	}
	return validation.ValidateStruct(&bc,
		validation.Field(&bc.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&bc.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&bc.OpenTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&bc.HalfOpenMaxCalls, validation.Required, validation.Min(1)),
	)
}

// validateServiceConfig only checks fields a service actually sets;
// omitted fields inherit the defaults.
func validateServiceConfig(value interface{}) error {
	svc, ok := value.(ServiceConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ServiceConfig")
	}

	if svc.Name == "" {
		return validation.NewError("validation_empty_name", "service name cannot be empty")
	}

	return validation.ValidateStruct(&svc.Breaker,
		validation.Field(&svc.Breaker.FailureThreshold, validation.Min(0)),
		validation.Field(&svc.Breaker.SuccessThreshold, validation.Min(0)),
		validation.Field(&svc.Breaker.OpenTimeout, validation.By(validateOptionalDuration)),
		validation.Field(&svc.Breaker.HalfOpenMaxCalls, validation.Min(0)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateOptionalDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if durationStr == "" {
		return nil
	}

	return validateDuration(durationStr)
}
