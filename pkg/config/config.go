package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	API      APIConfig      `json:"api"`
	Realtime RealtimeConfig `json:"realtime"`
	Typing   TypingConfig   `json:"typing"`
	Upload   UploadConfig   `json:"upload"`
}

type APIConfig struct {
	BaseURL        string `env:"WIRECHAT_API_BASE_URL"        json:"base_url"`
	TimeoutSeconds int    `env:"WIRECHAT_API_TIMEOUT_SECONDS" json:"timeout_seconds"`
}

type RealtimeConfig struct {
	SocketURL        string `env:"WIRECHAT_REALTIME_SOCKET_URL"        json:"socket_url"`
	ReconnectSeconds int    `env:"WIRECHAT_REALTIME_RECONNECT_SECONDS" json:"reconnect_seconds"`
}

type TypingConfig struct {
	IdleMillis int `env:"WIRECHAT_TYPING_IDLE_MILLIS" json:"idle_millis"`
}

type UploadConfig struct {
	MaxBytes int64 `env:"WIRECHAT_UPLOAD_MAX_BYTES" json:"max_bytes"` // 0 means no limit
}

func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:5000/api",
			TimeoutSeconds: 15,
		},
		Realtime: RealtimeConfig{
			SocketURL:        "ws://localhost:5000/ws",
			ReconnectSeconds: 5,
		},
		Typing: TypingConfig{
			IdleMillis: 3000,
		},
		Upload: UploadConfig{
			MaxBytes: 0,
		},
	}
}

// LoadConfig reads a JSON config file and overlays WIRECHAT_* environment
// variables. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
