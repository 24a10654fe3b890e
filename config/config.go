package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Config holds user-configurable defaults and integrations.
type Config struct {
	StoreDSN         string     `json:"store_dsn"`
	KVURL            string     `json:"kv_url"`
	TickIntervalSec  int        `json:"tick_interval_sec"`
	Workers          int        `json:"workers"`
	DefaultFromEmail string     `json:"default_from_email"`
	SMTP             SMTPConfig `json:"smtp"`
}

// SMTPConfig defines the outbound mail transport.
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		StoreDSN:         "pulse.db",
		KVURL:            "redis://localhost:6379/0",
		TickIntervalSec:  60,
		Workers:          8,
		DefaultFromEmail: "pulse@localhost",
		SMTP: SMTPConfig{
			Host: "localhost",
			Port: 25,
		},
	}
}

// Path returns ~/.config/pulse/config.json (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "pulse", "config.json")
}

// Load loads config from disk and applies environment overrides;
// returns defaults on error.
func Load() Config {
	cfg := Default()
	p := Path()
	if p != "" {
		if data, err := os.ReadFile(p); err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				logrus.Warnf("config parse error: %v", err)
			}
		}
	}
	cfg.applyEnv()
	return cfg
}

// applyEnv overrides fields from the environment. Recognized variables:
// PULSE_STORE_DSN, PULSE_KV_URL, PULSE_TICK_INTERVAL, PULSE_WORKERS,
// PULSE_FROM_EMAIL, PULSE_SMTP_HOST, PULSE_SMTP_PORT, PULSE_SMTP_USERNAME,
// PULSE_SMTP_PASSWORD.
func (c *Config) applyEnv() {
	if v := os.Getenv("PULSE_STORE_DSN"); v != "" {
		c.StoreDSN = v
	}
	if v := os.Getenv("PULSE_KV_URL"); v != "" {
		c.KVURL = v
	}
	if v := os.Getenv("PULSE_TICK_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TickIntervalSec = n
		}
	}
	if v := os.Getenv("PULSE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if v := os.Getenv("PULSE_FROM_EMAIL"); v != "" {
		c.DefaultFromEmail = v
	}
	if v := os.Getenv("PULSE_SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("PULSE_SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.SMTP.Port = n
		}
	}
	if v := os.Getenv("PULSE_SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("PULSE_SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	path := Path()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
