// Package config loads the YAML configuration used by consumers that wire a
// controller together with the journal, metrics and the MQTT announcer.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Controller struct {
	Host               string `yaml:"host"`
	Password           string `yaml:"password"`
	UpdateDelaySeconds int    `yaml:"update_delay_seconds"`
	Retries            int    `yaml:"retries"`
	RetryDelaySeconds  int    `yaml:"retry_delay_seconds"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
}

func (c Controller) UpdateDelay() time.Duration {
	return time.Duration(c.UpdateDelaySeconds) * time.Second
}

func (c Controller) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

func (c Controller) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type Journal struct {
	Path string `yaml:"path"`
}

type Statsd struct {
	Addr      string   `yaml:"addr"`
	Namespace string   `yaml:"namespace"`
	Tags      []string `yaml:"tags"`
}

type MQTT struct {
	Enabled         bool   `yaml:"enabled"`
	Broker          string `yaml:"broker"`
	Port            int    `yaml:"port"`
	ClientID        string `yaml:"client_id"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	TopicPrefix     string `yaml:"topic_prefix"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

func (m MQTT) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

type Config struct {
	LogLevel   string     `yaml:"log_level"`
	Controller Controller `yaml:"controller"`
	Journal    Journal    `yaml:"journal"`
	Statsd     Statsd     `yaml:"statsd"`
	MQTT       MQTT       `yaml:"mqtt"`
}

// Load reads and validates the configuration at path, filling in defaults
// for everything optional.
func Load(path string) (Config, error) {
	var cfg Config

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Controller.UpdateDelaySeconds == 0 {
		cfg.Controller.UpdateDelaySeconds = 20
	}
	if cfg.Controller.Retries == 0 {
		cfg.Controller.Retries = 3
	}
	if cfg.Controller.RetryDelaySeconds == 0 {
		cfg.Controller.RetryDelaySeconds = 10
	}
	if cfg.Controller.TimeoutSeconds == 0 {
		cfg.Controller.TimeoutSeconds = 20
	}
	if cfg.MQTT.Port == 0 {
		cfg.MQTT.Port = 1883
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "rainbird"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "rainbird"
	}
	if cfg.MQTT.IntervalSeconds == 0 {
		cfg.MQTT.IntervalSeconds = 60
	}
}

func (cfg *Config) validate() error {
	var missing []string
	if cfg.Controller.Host == "" {
		missing = append(missing, "controller.host")
	}
	if cfg.Controller.Password == "" {
		missing = append(missing, "controller.password")
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		missing = append(missing, "mqtt.broker")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config fields: %s", strings.Join(missing, ", "))
	}
	if cfg.Controller.Retries < 1 {
		return fmt.Errorf("controller.retries must be at least 1, got %d", cfg.Controller.Retries)
	}
	if cfg.Controller.UpdateDelaySeconds < 1 {
		return fmt.Errorf("controller.update_delay_seconds must be positive, got %d", cfg.Controller.UpdateDelaySeconds)
	}
	if cfg.Controller.RetryDelaySeconds < 1 {
		return fmt.Errorf("controller.retry_delay_seconds must be positive, got %d", cfg.Controller.RetryDelaySeconds)
	}
	if cfg.Controller.TimeoutSeconds < 1 {
		return fmt.Errorf("controller.timeout_seconds must be positive, got %d", cfg.Controller.TimeoutSeconds)
	}
	if cfg.MQTT.IntervalSeconds < 1 {
		return fmt.Errorf("mqtt.interval_seconds must be positive, got %d", cfg.MQTT.IntervalSeconds)
	}
	return nil
}

// ParseLevel maps a config log level onto zerolog's scale.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
