package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces every environment override, e.g. TRACKROOM_SERVER_ADDR.
const EnvPrefix = "TRACKROOM_"

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "TRACKROOM_CONFIG"

var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trackroom/config.yaml",
}

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Socket  SocketConfig  `koanf:"socket"`
	RoomSvc RoomSvcConfig `koanf:"roomsvc"`
	Redis   RedisConfig   `koanf:"redis"`
	Logging LoggingConfig `koanf:"logging"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type SocketConfig struct {
	WriteWaitMS     int `koanf:"write_wait_ms"`
	PongWaitMS      int `koanf:"pong_wait_ms"`
	PingPeriodMS    int `koanf:"ping_period_ms"`
	MaxMessageBytes int `koanf:"max_message_bytes"`
	SendBuffer      int `koanf:"send_buffer"`
	JoinTimeoutMS   int `koanf:"join_timeout_ms"`
}

type RoomSvcConfig struct {
	BaseURL   string `koanf:"base_url"`
	TimeoutMS int    `koanf:"timeout_ms"`
}

type RedisConfig struct {
	Enabled            bool   `koanf:"enabled"`
	Addr               string `koanf:"addr"`
	Password           string `koanf:"password"`
	DB                 int    `koanf:"db"`
	Workers            int    `koanf:"workers"`
	QueueSize          int    `koanf:"queue_size"`
	LocationTTLSeconds int    `koanf:"location_ttl_seconds"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Socket: SocketConfig{
			WriteWaitMS:     5000,
			PongWaitMS:      60000,
			PingPeriodMS:    50000,
			MaxMessageBytes: 4096,
			SendBuffer:      128,
			JoinTimeoutMS:   5000,
		},
		RoomSvc: RoomSvcConfig{
			BaseURL:   "http://127.0.0.1:8000/api",
			TimeoutMS: 5000,
		},
		Redis: RedisConfig{
			Enabled:            true,
			Addr:               "localhost:6379",
			Password:           "",
			DB:                 0,
			Workers:            8,
			QueueSize:          100_000,
			LocationTTLSeconds: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers defaults, an optional YAML file, and TRACKROOM_* environment
// variables, highest priority last.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps TRACKROOM_SOCKET_PONG_WAIT_MS to socket.pong_wait_ms.
// Only the first underscore becomes a section separator; section names
// themselves carry no underscores.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}
