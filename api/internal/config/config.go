package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Stream StreamConfig `yaml:"stream"`
	Upload UploadConfig `yaml:"upload"`
	Sink   SinkConfig   `yaml:"sink"`
	Redis  RedisConfig  `yaml:"redis"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"ENV_HOST" env-default:"0.0.0.0"`
	Port            int           `yaml:"port" env:"ENV_PORT" env-default:"5000"`
	StaticDir       string        `yaml:"static_dir" env:"STATIC_DIR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type StreamConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" env:"STREAM_POLL_INTERVAL" env-default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"STREAM_WRITE_TIMEOUT" env-default:"10s"`
	MaxViewers   int           `yaml:"max_viewers" env:"STREAM_MAX_VIEWERS" env-default:"0"`
}

type UploadConfig struct {
	MaxBytes  int64  `yaml:"max_bytes" env:"UPLOAD_MAX_BYTES" env-default:"10485760"`
	FormField string `yaml:"form_field" env:"UPLOAD_FORM_FIELD" env-default:"image"`
}

type SinkConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"SINK_TIMEOUT" env-default:"2s"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"1"`
	Key      string        `yaml:"key" env:"REDIS_FRAME_KEY" env-default:"camrelay:frame:latest"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_FRAME_TTL" env-default:"3m"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_ADDRESS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"frames"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"28"`
}

// New reads the YAML file at path with environment overrides, or only the
// environment when path is empty.
func New(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(cfg)
	} else {
		err = cleanenv.ReadConfig(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func MustNew(path string) *Config {
	cfg, err := New(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1-65535)", c.Server.Port)
	}

	if c.Stream.PollInterval <= 0 {
		return fmt.Errorf("invalid stream poll interval: %v (must be positive)", c.Stream.PollInterval)
	}

	if c.Stream.WriteTimeout < 0 {
		return fmt.Errorf("invalid stream write timeout: %v (must be non-negative)", c.Stream.WriteTimeout)
	}

	if c.Stream.MaxViewers < 0 {
		return fmt.Errorf("invalid max_viewers: %d (must be non-negative)", c.Stream.MaxViewers)
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("invalid upload max_bytes: %d (must be positive)", c.Upload.MaxBytes)
	}

	if c.Upload.FormField == "" {
		return fmt.Errorf("upload form_field must not be empty")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.Log.Level)
	}

	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
