// Package config loads relayd's configuration from defaults, an optional
// config file, RELAY_* environment variables, and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
	BackendS3         = "s3"
)

// EnvPrefix prefixes every environment variable read.
const EnvPrefix = "RELAY"

// Config is relayd's configuration.
type Config struct {
	Addr            string          `mapstructure:"addr"`
	NameLength      int             `mapstructure:"name_length"`
	Storage         StorageConfig   `mapstructure:"storage"`
	Upload          UploadConfig    `mapstructure:"upload"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	MetricsAddr     string          `mapstructure:"metrics_addr"`
	LogLevel        string          `mapstructure:"log_level"`
	Gops            bool            `mapstructure:"gops"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
}

// StorageConfig picks where uploaded files are kept.
type StorageConfig struct {
	Backend string   `mapstructure:"backend"`
	Dir     string   `mapstructure:"dir"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config describes an S3-compatible object store.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

// UploadConfig holds the optional limits on uploads.
type UploadConfig struct {
	MaxBytes      int64    `mapstructure:"max_bytes"`
	AcceptedMIMEs []string `mapstructure:"accepted_mimes"`
	MaxAttempts   int      `mapstructure:"max_attempts"`
}

// RateLimitConfig limits requests per second across all clients.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

var defaults = map[string]interface{}{
	"addr":                  "127.0.0.1:8080",
	"name_length":           20,
	"storage.backend":       BackendFilesystem,
	"storage.dir":           "./files",
	"storage.s3.endpoint":   "",
	"storage.s3.access_key": "",
	"storage.s3.secret_key": "",
	"storage.s3.bucket":     "",
	"storage.s3.region":     "",
	"upload.max_bytes":      0,
	"upload.accepted_mimes": []string{},
	"upload.max_attempts":   5,
	"rate_limit.rps":        0,
	"rate_limit.burst":      1,
	"metrics_addr":          "",
	"log_level":             "info",
	"gops":                  false,
	"shutdown_timeout":      5 * time.Second,
}

// flagKeys maps command line flags to the keys they override.
var flagKeys = map[string]string{
	"addr":         "addr",
	"dir":          "storage.dir",
	"backend":      "storage.backend",
	"metrics-addr": "metrics_addr",
	"log-level":    "log_level",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (yaml, json, or toml)")
	fs.String("addr", "", "address to listen on")
	fs.String("dir", "", "directory to store files in, for the filesystem backend")
	fs.String("backend", "", "storage backend: filesystem, memory, or s3")
	fs.String("metrics-addr", "", "address to serve Prometheus metrics on; empty disables")
	fs.String("log-level", "", "log level: debug or info")
}

// Load builds a Config. fs may be nil; flags in it are only applied when
// they were set explicitly.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if path, err := fs.GetString("config"); err == nil && path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
			}
		}
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("error binding flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first problem with c, if any.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must be set")
	}
	if c.NameLength < 1 {
		return fmt.Errorf("name_length must be positive, got %d", c.NameLength)
	}
	switch c.Storage.Backend {
	case BackendFilesystem:
		if c.Storage.Dir == "" {
			return errors.New("storage.dir must be set for the filesystem backend")
		}
	case BackendMemory:
	case BackendS3:
		if c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.endpoint and storage.s3.bucket must be set for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Upload.MaxBytes < 0 {
		return fmt.Errorf("upload.max_bytes can't be negative, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.MaxAttempts < 1 {
		return fmt.Errorf("upload.max_attempts must be positive, got %d", c.Upload.MaxAttempts)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps can't be negative, got %v", c.RateLimit.RPS)
	}
	switch c.LogLevel {
	case "debug", "info":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
