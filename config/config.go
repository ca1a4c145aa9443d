package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WebhookConfig struct {
	ProvidersFile     string        `mapstructure:"providers_file"`
	Tolerance         time.Duration `mapstructure:"tolerance"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
	ReapInterval      time.Duration `mapstructure:"reap_interval"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`

	// InsecureSkipVerification disables signature checks. Local
	// development only.
	InsecureSkipVerification bool `mapstructure:"insecure_skip_verification"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("webhook.providers_file", "providers.yaml")
	v.SetDefault("webhook.tolerance", "300s")
	v.SetDefault("webhook.max_body_bytes", 1048576)
	v.SetDefault("webhook.idempotency_ttl", "24h")
	v.SetDefault("webhook.reap_interval", "1h")
	v.SetDefault("webhook.rate_limit_requests", 100)
	v.SetDefault("webhook.rate_limit_window", "1m")
	v.SetDefault("webhook.insecure_skip_verification", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", true)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/webhook-gateway")
	}

	// Environment variables override
	v.SetEnvPrefix("WEBHOOK")
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}

	return &cfg, nil
}
