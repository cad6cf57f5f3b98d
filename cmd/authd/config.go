package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	storeMemory    = "memory"
	storeMiniredis = "miniredis"
	storeRedis     = "redis"
	storeMongo     = "mongo"
)

type serverConfig struct {
	Listen        string          `yaml:"listen"`
	TrustProxy    bool            `yaml:"trust_proxy"`
	SweepSchedule string          `yaml:"sweep_schedule"`
	Store         storeConfig     `yaml:"store"`
	Log           logConfig       `yaml:"log"`
	Auth          authcore.Config `yaml:"auth"`

	// jwtSecret comes from JWT_SECRET only.
	jwtSecret string
}

type storeConfig struct {
	Kind          string `yaml:"kind"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPrefix   string `yaml:"redis_prefix"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Listen:        ":8080",
		SweepSchedule: "@every 1h",
		Store: storeConfig{
			Kind:          storeMemory,
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "authcore",
			MongoDatabase: "authcore",
		},
		Log: logConfig{
			Level:  "info",
			Format: "text",
		},
		Auth: authcore.DefaultConfig(),
	}
}

// loadConfig layers defaults, the optional YAML file, the environment and
// explicitly set flags, in that order.
func loadConfig(flags *pflag.FlagSet, getenv func(string) string) (serverConfig, error) {
	cfg := defaultServerConfig()

	path, _ := flags.GetString("config")
	if path == "" {
		path = getenv("AUTHD_CONFIG")
	}
	if path != "" {
		if err := readConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	if err := applyFlags(&cfg, flags); err != nil {
		return cfg, err
	}

	if cfg.jwtSecret != "" {
		cfg.Auth.JWT.PrivateKey = []byte(cfg.jwtSecret)
	}
	return cfg, cfg.validate()
}

func readConfigFile(path string, cfg *serverConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *serverConfig, getenv func(string) string) error {
	if v := getenv("JWT_SECRET"); v != "" {
		cfg.jwtSecret = v
	}
	if v := getenv("AUTHD_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := getenv("AUTHD_STORE"); v != "" {
		cfg.Store.Kind = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := getenv("MONGODB_URI"); v != "" {
		cfg.Store.MongoURI = v
	}
	if v := getenv("MONGODB_DATABASE"); v != "" {
		cfg.Store.MongoDatabase = v
	}
	if v := getenv("AUTHD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("AUTHD_TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTHD_TRUST_PROXY: %w", err)
		}
		cfg.TrustProxy = b
	}
	if v := getenv("AUTHD_RESET_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AUTHD_RESET_TOKEN_TTL: %w", err)
		}
		cfg.Auth.PasswordReset.TTL = d
	}
	return nil
}

func applyFlags(cfg *serverConfig, flags *pflag.FlagSet) error {
	var err error
	if flags.Changed("listen") {
		cfg.Listen, err = flags.GetString("listen")
	}
	if err == nil && flags.Changed("store") {
		cfg.Store.Kind, err = flags.GetString("store")
	}
	if err == nil && flags.Changed("log-level") {
		cfg.Log.Level, err = flags.GetString("log-level")
	}
	if err == nil && flags.Changed("log-format") {
		cfg.Log.Format, err = flags.GetString("log-format")
	}
	if err == nil && flags.Changed("trust-proxy") {
		cfg.TrustProxy, err = flags.GetBool("trust-proxy")
	}
	if err == nil && flags.Changed("sweep-schedule") {
		cfg.SweepSchedule, err = flags.GetString("sweep-schedule")
	}
	if err == nil && flags.Changed("expose-reset-token") {
		cfg.Auth.PasswordReset.ExposeToken, err = flags.GetBool("expose-reset-token")
	}
	return err
}

func (c serverConfig) validate() error {
	switch c.Store.Kind {
	case storeMemory, storeMiniredis:
	case storeRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store redis needs redis_addr")
		}
	case storeMongo:
		if c.Store.MongoURI == "" {
			return errors.New("store mongo needs MONGODB_URI")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store.Kind)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// devStore reports whether the store loses its data on exit. Only such stores
// may run with a generated signing secret.
func (c serverConfig) devStore() bool {
	return c.Store.Kind == storeMemory || c.Store.Kind == storeMiniredis
}

// addServeFlags registers the flags loadConfig reads.
func addServeFlags(flags *pflag.FlagSet) {
	flags.String("listen", ":8080", "listen address")
	flags.String("store", storeMemory, "document store: memory, miniredis, redis or mongo")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")
	flags.Bool("trust-proxy", false, "take the client IP from X-Forwarded-For")
	flags.String("sweep-schedule", "@every 1h", "cron schedule for the stale login-attempt sweep")
	flags.Bool("expose-reset-token", false, "return reset tokens in responses (development only)")
}
