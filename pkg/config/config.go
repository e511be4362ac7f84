package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	API        APIConfig
	Redis      RedisConfig
	Session    SessionConfig
	ChangeFeed ChangeFeedConfig
	Countdown  CountdownConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLEETDRIVER_APP_ENV" required:"true"`
	Port         string `envconfig:"FLEETDRIVER_APP_PORT" default:"8090"`
	LogLevel     string `envconfig:"FLEETDRIVER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLEETDRIVER_LOG_WARN_STACK" default:"false"`
	DriverID     string `envconfig:"FLEETDRIVER_DRIVER_ID" required:"true"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL string        `envconfig:"FLEETDRIVER_API_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"FLEETDRIVER_API_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLEETDRIVER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FLEETDRIVER_REDIS_ADDR"`
	Password     string        `envconfig:"FLEETDRIVER_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLEETDRIVER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLEETDRIVER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLEETDRIVER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLEETDRIVER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLEETDRIVER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLEETDRIVER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	// StaticToken short-circuits the redis-backed session lookup. Dev only.
	StaticToken string `envconfig:"FLEETDRIVER_SESSION_STATIC_TOKEN"`
}

type ChangeFeedConfig struct {
	ChannelPrefix string        `envconfig:"FLEETDRIVER_CHANGEFEED_CHANNEL_PREFIX" default:"fleet:assignments"`
	Debounce      time.Duration `envconfig:"FLEETDRIVER_CHANGEFEED_DEBOUNCE" default:"750ms"`
}

type CountdownConfig struct {
	TickInterval time.Duration `envconfig:"FLEETDRIVER_COUNTDOWN_TICK_INTERVAL" default:"1s"`
}
