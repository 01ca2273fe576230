package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Redis       RedisConfig       `json:"redis"`
	Server      ServerConfig      `json:"server"`
	Proxy       *ProxyConfig      `json:"proxy,omitempty"`
	Logging     LoggingConfig     `json:"logging"`
	FundingRate FundingRateConfig `json:"funding_rate"`
}

// RedisConfig locates the queue backend.
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type ServerConfig struct {
	WorkerCount     int    `json:"worker_count"`      // number of shards
	MaxKlineCount   int    `json:"max_kline_count"`   // per (symbol, interval) sequence cap
	RedisDataExpire int    `json:"redis_data_expire"` // default event TTL, seconds
	MetricsAddr     string `json:"metrics_addr"`      // optional prometheus listener
}

// ProxyConfig is the optional SOCKS5 proxy for the websocket.
type ProxyConfig struct {
	Addr string `json:"addr"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // zerolog level filter
	JSONFormat bool   `json:"json_format"` // structured output vs console writer
}

// FundingRateConfig holds the thresholds for the funding-rate detector.
type FundingRateConfig struct {
	MinFundingRate       float64 `json:"min_funding_rate"`        // absolute rate floor
	MinFundingRateChange float64 `json:"min_funding_rate_change"` // minimum change vs last acknowledged rate
	FundingRateInterval  uint64  `json:"funding_rate_interval"`   // seconds between emissions per symbol
}

// Load reads the config file, applies environment overrides and
// validates. Any failure here is fatal to startup.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides; these take
// precedence over the file.
func applyEnvOverrides(cfg *Config) {
	cfg.Redis.Host = getEnvOrDefault("PERPX_REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = getEnvIntOrDefault("PERPX_REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.User = getEnvOrDefault("PERPX_REDIS_USER", cfg.Redis.User)
	cfg.Redis.Password = getEnvOrDefault("PERPX_REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Server.WorkerCount = getEnvIntOrDefault("PERPX_WORKER_COUNT", cfg.Server.WorkerCount)
	cfg.Server.MaxKlineCount = getEnvIntOrDefault("PERPX_MAX_KLINE_COUNT", cfg.Server.MaxKlineCount)
	cfg.Server.RedisDataExpire = getEnvIntOrDefault("PERPX_REDIS_DATA_EXPIRE", cfg.Server.RedisDataExpire)
	cfg.Server.MetricsAddr = getEnvOrDefault("PERPX_METRICS_ADDR", cfg.Server.MetricsAddr)

	if addr := os.Getenv("PERPX_PROXY_ADDR"); addr != "" {
		cfg.Proxy = &ProxyConfig{Addr: addr}
	}

	cfg.Logging.Level = getEnvOrDefault("PERPX_LOG_LEVEL", cfg.Logging.Level)
	if v := os.Getenv("PERPX_LOG_JSON"); v != "" {
		cfg.Logging.JSONFormat = v == "true"
	}

	cfg.FundingRate.MinFundingRate = getEnvFloatOrDefault("PERPX_MIN_FUNDING_RATE", cfg.FundingRate.MinFundingRate)
	cfg.FundingRate.MinFundingRateChange = getEnvFloatOrDefault("PERPX_MIN_FUNDING_RATE_CHANGE", cfg.FundingRate.MinFundingRateChange)
	if v := getEnvIntOrDefault("PERPX_FUNDING_RATE_INTERVAL", int(cfg.FundingRate.FundingRateInterval)); v >= 0 {
		cfg.FundingRate.FundingRateInterval = uint64(v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Server.RedisDataExpire == 0 {
		cfg.Server.RedisDataExpire = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required")
	}
	if c.Server.WorkerCount < 1 {
		return fmt.Errorf("server.worker_count must be >= 1, got %d", c.Server.WorkerCount)
	}
	if c.Server.MaxKlineCount < 1 {
		return fmt.Errorf("server.max_kline_count must be >= 1, got %d", c.Server.MaxKlineCount)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
