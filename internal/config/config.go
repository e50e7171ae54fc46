package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration for the monitoring server.
type Config struct {
	// Address the device ingest listener binds to
	IngestAddr string `mapstructure:"ingest_addr"`

	// Address the dashboard/API server binds to
	APIAddr string `mapstructure:"api_addr"`

	// Per-connection read deadline for device payloads
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// Maximum number of payloads processed concurrently
	MaxConns int `mapstructure:"max_conns"`

	// Maximum size of a single device payload in bytes
	MaxPayloadBytes int `mapstructure:"max_payload_bytes"`

	// Number of alert events retained in memory
	AlertLogCap int `mapstructure:"alert_log_cap"`

	// Initial alert thresholds, keyed by limit name
	Thresholds map[string]float64 `mapstructure:"thresholds"`

	// Log level: trace, debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`

	Notify NotifyConfig `mapstructure:"notify"`
}

// NotifyConfig configures alert delivery.
type NotifyConfig struct {
	// Notification workers draining the alert queue
	Workers int `mapstructure:"workers"`

	// Alert queue capacity; alerts are dropped (and counted) when full
	QueueSize int `mapstructure:"queue_size"`

	// Per-delivery timeout
	SendTimeout time.Duration `mapstructure:"send_timeout"`

	// Kafka brokers (CSV); empty means log-only delivery
	KafkaBrokers string `mapstructure:"kafka_brokers"`

	// Kafka topic alert events are published to
	KafkaTopic string `mapstructure:"kafka_topic"`
}

// Load reads configuration from an optional config.yaml in the given
// path plus MONITOR_-prefixed environment variables, falling back to
// defaults for anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// A missing config file is fine; env and defaults still apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration, used when no file or
// environment overrides are wanted (tests, local runs).
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err) // defaults are static, this cannot fail
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ingest_addr", ":5001")
	v.SetDefault("api_addr", ":5000")
	v.SetDefault("read_timeout", 10*time.Second)
	v.SetDefault("max_conns", 64)
	v.SetDefault("max_payload_bytes", 64*1024)
	v.SetDefault("alert_log_cap", 1000)
	v.SetDefault("log_level", "info")

	// Stock device client limits: battery alerts below, the others above
	v.SetDefault("thresholds", map[string]float64{
		"battery":      20,
		"ram_used":     85,
		"storage_used": 90,
	})

	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.send_timeout", 5*time.Second)
	v.SetDefault("notify.kafka_brokers", "")
	v.SetDefault("notify.kafka_topic", "device-alerts")
}
