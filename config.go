package authcore

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete engine configuration. Build one with DefaultConfig,
// adjust it, and hand it to Builder.WithConfig; it is treated as immutable after Build.
type Config struct {
	JWT           JWTConfig           `yaml:"jwt"`
	Password      PasswordConfig      `yaml:"password"`
	Lockout       LockoutConfig       `yaml:"lockout"`
	PasswordReset PasswordResetConfig `yaml:"password_reset"`
	Audit         AuditConfig         `yaml:"audit"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session tokens. PrivateKey is the HMAC secret for hs256
// and is never read from config files.
type JWTConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SigningMethod string        `yaml:"signing_method"` // "hs256" (default) or "ed25519"
	PrivateKey    []byte        `yaml:"-"`
	PublicKey     []byte        `yaml:"-"`
	Issuer        string        `yaml:"issuer"`
	Leeway        time.Duration `yaml:"leeway"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id cost parameters. Memory is in KiB.
type PasswordConfig struct {
	Memory         uint32 `yaml:"memory"`
	Time           uint32 `yaml:"time"`
	Parallelism    uint8  `yaml:"parallelism"`
	SaltLength     uint32 `yaml:"salt_length"`
	KeyLength      uint32 `yaml:"key_length"`
	UpgradeOnLogin bool   `yaml:"upgrade_on_login"`
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig drives the per-(email, origin) login attempt tracker.
type LockoutConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	LockDuration time.Duration `yaml:"lock_duration"`
	// StaleAfter is the age past which unlocked records are purged by SweepLoginAttempts.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// PasswordResetConfig configures reset tokens.
type PasswordResetConfig struct {
	TTL time.Duration `yaml:"ttl"`
	// ExposeToken returns the plaintext reset token in the ForgotPassword result.
	// Development only; production deployments deliver it through the Notifier.
	ExposeToken bool `yaml:"expose_token"`
}

// AuditConfig controls activity logging. With Async set, entries are relayed
// through a buffered dispatcher drained on Engine.Close.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	Async      bool `yaml:"async"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns the production defaults. JWT.PrivateKey must still be set.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:           7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			MaxAttempts:  5,
			LockDuration: 15 * time.Minute,
			StaleAfter:   24 * time.Hour,
		},
		PasswordReset: PasswordResetConfig{
			TTL: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			Async:      true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return fmt.Errorf("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Password
	if c.Password.Memory < 8*1024 || c.Password.Memory > 1024*1024 {
		return errors.New("Password Memory must be within [8192, 1048576] KiB")
	}
	if c.Password.Time < 1 || c.Password.Time > 32 {
		return errors.New("Password Time must be within [1, 32]")
	}
	if c.Password.Parallelism < 1 || c.Password.Parallelism > 64 {
		return errors.New("Password Parallelism must be within [1, 64]")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 || c.Password.KeyLength > 128 {
		return errors.New("Password KeyLength must be within [16, 128]")
	}

	// Lockout
	if c.Lockout.MaxAttempts < 1 {
		return errors.New("Lockout MaxAttempts must be >= 1")
	}
	if c.Lockout.LockDuration <= 0 {
		return errors.New("Lockout LockDuration must be > 0")
	}
	if c.Lockout.StaleAfter < c.Lockout.LockDuration {
		return errors.New("Lockout StaleAfter must be >= LockDuration")
	}

	// Password reset
	if c.PasswordReset.TTL <= 0 {
		return errors.New("PasswordReset TTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.Async && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Async is true")
	}

	return nil
}
