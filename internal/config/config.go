package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Store      StoreConfig   `mapstructure:"store"`
	Redis      RedisConfig   `mapstructure:"redis"`
	History    HistoryConfig `mapstructure:"history"`
	Auth       AuthConfig    `mapstructure:"auth"`
	Rate       RateConfig    `mapstructure:"rate"`
	Rooms      RoomsConfig   `mapstructure:"rooms"`
	ICEServers []ICEServer   `mapstructure:"ice_servers"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type HistoryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
	// MaxLen caps the stored messages per room; 0 keeps everything.
	MaxLen int `mapstructure:"max_len"`
}

type AuthConfig struct {
	Required bool          `mapstructure:"required"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// RateConfig limits inbound events per connection.
type RateConfig struct {
	EventsPerSec float64 `mapstructure:"events_per_sec"`
	Burst        int     `mapstructure:"burst"`
}

type RoomsConfig struct {
	Exclusive    bool   `mapstructure:"exclusive"`
	Backpressure string `mapstructure:"backpressure"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	// DefaultSecret signs session cookies in development only.
	DefaultSecret = "huddle-dev-secret"
)

func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName over the defaults. A missing file is not an error.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("secret", "HUDDLE_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("store", cfg.Store.Driver).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("secret", DefaultSecret)
	v.SetDefault("log_level", "info")

	v.SetDefault("store.driver", DriverRedis)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("history.default_limit", 200)
	v.SetDefault("history.max_limit", 200)
	v.SetDefault("history.max_len", 1000)

	v.SetDefault("auth.required", true)
	v.SetDefault("auth.token_ttl", "168h")

	v.SetDefault("rate.events_per_sec", 20)
	v.SetDefault("rate.burst", 40)

	v.SetDefault("rooms.exclusive", true)
	v.SetDefault("rooms.backpressure", "drop")

	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Mode != "release" && c.Mode != "debug" && c.Mode != "test" {
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.ReadLimit <= 0 || c.SendBuffer <= 0 {
		errs = append(errs, errors.New("read_limit and send_buffer must be positive"))
	}
	if c.PingPeriod <= 0 || c.WriteWait <= 0 {
		errs = append(errs, errors.New("ping_period and write_wait must be positive"))
	}
	if c.Secret == "" {
		errs = append(errs, errors.New("secret must be set"))
	} else if c.Mode == "release" && c.Secret == DefaultSecret {
		errs = append(errs, errors.New("secret must be overridden in release mode (HUDDLE_SECRET)"))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr must be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.History.DefaultLimit <= 0 || c.History.MaxLimit <= 0 {
		errs = append(errs, errors.New("history limits must be positive"))
	} else if c.History.DefaultLimit > c.History.MaxLimit {
		errs = append(errs, errors.New("history.default_limit exceeds history.max_limit"))
	}
	if c.History.MaxLen < 0 {
		errs = append(errs, errors.New("history.max_len must not be negative"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Rate.EventsPerSec <= 0 || c.Rate.Burst <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	switch c.Rooms.Backpressure {
	case "drop", "kick":
	default:
		errs = append(errs, fmt.Errorf("unknown backpressure policy %q", c.Rooms.Backpressure))
	}
	for i, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			errs = append(errs, fmt.Errorf("ice_servers[%d] has no urls", i))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
