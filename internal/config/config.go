package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied when the config file is missing or a field is unset.
const (
	DefaultServerURL    = "http://localhost:8990"
	DefaultChatPoll     = 5 * time.Second
	DefaultSyncInterval = 30 * time.Second
)

// Config represents the global ~/.ilmq/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	ServerURL      string `toml:"server_url"`
	DeviceID       string `toml:"device_id"`
	ChatPollSec    int    `toml:"chat_poll_sec"`
	SyncSec        int    `toml:"sync_sec"`
}

// Load reads config from the given path. Returns zero config and error if
// file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// ServerBaseURL returns the configured room service URL or the default.
func (c *Config) ServerBaseURL() string {
	if c == nil || c.ServerURL == "" {
		return DefaultServerURL
	}
	return c.ServerURL
}

// ChatPollInterval returns the chat refresh interval or the default.
func (c *Config) ChatPollInterval() time.Duration {
	if c == nil || c.ChatPollSec <= 0 {
		return DefaultChatPoll
	}
	return time.Duration(c.ChatPollSec) * time.Second
}

// SyncFlushInterval returns the reconciler loop interval or the default.
func (c *Config) SyncFlushInterval() time.Duration {
	if c == nil || c.SyncSec <= 0 {
		return DefaultSyncInterval
	}
	return time.Duration(c.SyncSec) * time.Second
}
