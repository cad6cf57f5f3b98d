package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("authd", pflag.ContinueOnError)
	fs.String("config", "", "")
	addServeFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(testFlags(t), envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, storeMemory, cfg.Store.Kind)
	assert.Equal(t, "@every 1h", cfg.SweepSchedule)
	assert.Equal(t, 5, cfg.Auth.Lockout.MaxAttempts)
	assert.Empty(t, cfg.Auth.JWT.PrivateKey)
	assert.True(t, cfg.devStore())
}

func TestLoadConfigLayering(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
store:
  kind: redis
  redis_addr: "cache:6379"
log:
  level: debug
auth:
  lockout:
    max_attempts: 3
    lock_duration: 10m
  password_reset:
    ttl: 30m
`)

	tests := []struct {
		name       string
		args       []string
		env        map[string]string
		wantListen string
		wantStore  string
		wantAddr   string
		wantTTL    time.Duration
	}{
		{
			name:       "file only",
			args:       []string{"--config", path},
			wantListen: ":9000",
			wantStore:  storeRedis,
			wantAddr:   "cache:6379",
			wantTTL:    30 * time.Minute,
		},
		{
			name:       "env over file",
			args:       []string{"--config", path},
			env:        map[string]string{"AUTHD_LISTEN": ":9100", "REDIS_ADDR": "r2:6379", "AUTHD_RESET_TOKEN_TTL": "2h"},
			wantListen: ":9100",
			wantStore:  storeRedis,
			wantAddr:   "r2:6379",
			wantTTL:    2 * time.Hour,
		},
		{
			name:       "flag over env",
			args:       []string{"--config", path, "--listen", ":9200", "--store", "memory"},
			env:        map[string]string{"AUTHD_LISTEN": ":9100"},
			wantListen: ":9200",
			wantStore:  storeMemory,
			wantAddr:   "cache:6379",
			wantTTL:    30 * time.Minute,
		},
		{
			name:       "config path from env",
			env:        map[string]string{"AUTHD_CONFIG": path},
			wantListen: ":9000",
			wantStore:  storeRedis,
			wantAddr:   "cache:6379",
			wantTTL:    30 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(testFlags(t, tt.args...), envMap(tt.env))
			require.NoError(t, err)

			assert.Equal(t, tt.wantListen, cfg.Listen)
			assert.Equal(t, tt.wantStore, cfg.Store.Kind)
			assert.Equal(t, tt.wantAddr, cfg.Store.RedisAddr)
			assert.Equal(t, tt.wantTTL, cfg.Auth.PasswordReset.TTL)
			assert.Equal(t, 3, cfg.Auth.Lockout.MaxAttempts)
			assert.Equal(t, 10*time.Minute, cfg.Auth.Lockout.LockDuration)
			assert.Equal(t, "debug", cfg.Log.Level)
		})
	}
}

func TestLoadConfigSecretFromEnvOnly(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt:\n    issuer: authd\n")

	cfg, err := loadConfig(testFlags(t, "--config", path), envMap(map[string]string{
		"JWT_SECRET": "0123456789abcdef0123456789abcdef",
	}))
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), cfg.Auth.JWT.PrivateKey)
	assert.Equal(t, "authd", cfg.Auth.JWT.Issuer)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "unknown store", args: []string{"--store", "sqlite"}},
		{name: "mongo without uri", args: []string{"--store", "mongo"}},
		{name: "bad log format", args: []string{"--log-format", "xml"}},
		{name: "bad trust proxy", env: map[string]string{"AUTHD_TRUST_PROXY": "maybe"}},
		{name: "bad reset ttl", env: map[string]string{"AUTHD_RESET_TOKEN_TTL": "soon"}},
		{name: "missing file", args: []string{"--config", "/nonexistent/authd.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(testFlags(t, tt.args...), envMap(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMongoFromEnv(t *testing.T) {
	cfg, err := loadConfig(testFlags(t, "--store", "mongo"), envMap(map[string]string{
		"MONGODB_URI":      "mongodb://db:27017",
		"MONGODB_DATABASE": "accounts",
	}))
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27017", cfg.Store.MongoURI)
	assert.Equal(t, "accounts", cfg.Store.MongoDatabase)
	assert.False(t, cfg.devStore())
}
