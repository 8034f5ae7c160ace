package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	// DeliveryAsync acknowledges the caller first and enqueues through the dispatcher.
	DeliveryAsync = "async"
	// DeliverySync awaits the enqueue before answering the caller.
	DeliverySync = "sync"

	envPrefix = "PRIMARY_SERVER"
)

// Config holds the application's configuration settings.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Submit SubmitConfig `mapstructure:"submit"`
	Log    LogConfig    `mapstructure:"log"`
	CORS   CORSConfig   `mapstructure:"cors"`

	settings map[string]interface{}
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// QueueConfig describes where submissions go and how they get there.
type QueueConfig struct {
	Name           string        `mapstructure:"name"`
	Delivery       string        `mapstructure:"delivery"`
	BufferSize     int           `mapstructure:"buffer_size"`
	Workers        int           `mapstructure:"workers"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	EnqueueTimeout time.Duration `mapstructure:"enqueue_timeout"`
}

type SubmitConfig struct {
	// Strict rejects submissions whose fields are not non-empty strings.
	Strict bool `mapstructure:"strict"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("queue.name", "workQueue")
	v.SetDefault("queue.delivery", DeliveryAsync)
	v.SetDefault("queue.buffer_size", 1024)
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.retry_backoff", "500ms")
	v.SetDefault("queue.enqueue_timeout", "5s")

	v.SetDefault("submit.strict", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Option adjusts the viper instance after the config file has been read.
type Option func(v *viper.Viper)

// WithOverride sets key with the highest precedence, e.g. from a CLI flag.
func WithOverride(key string, value interface{}) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// Load reads configuration from defaults, an optional YAML file,
// PRIMARY_SERVER_* environment variables and opts, in increasing precedence.
// An empty path searches ., ./configs and /etc/primary-server for config.yaml.
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/primary-server")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			fmt.Fprintln(os.Stderr, "Config file not found, using defaults and environment variables.")
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for _, opt := range opts {
		opt(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.settings = v.AllSettings()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	switch c.Queue.Delivery {
	case DeliveryAsync, DeliverySync:
	default:
		return fmt.Errorf("invalid queue.delivery: %q", c.Queue.Delivery)
	}
	if strings.TrimSpace(c.Queue.Name) == "" {
		return fmt.Errorf("queue.name must not be empty")
	}
	if c.Queue.BufferSize <= 0 {
		return fmt.Errorf("queue.buffer_size must be positive, got %d", c.Queue.BufferSize)
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive, got %d", c.Queue.Workers)
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("queue.max_retries must not be negative, got %d", c.Queue.MaxRetries)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}

// YAML renders the effective settings as a config file.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
