package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"

	// Ceilings for both the configured cost and any stored digest. A digest
	// outside them is treated as malformed rather than evaluated.
	maxMemoryKB    uint32 = 1024 * 1024
	maxTimeCost    uint32 = 32
	maxParallelism uint8  = 64
	maxKeyLength   uint32 = 128
	maxBcryptCost         = 16
)

var (
	// ErrEmptyPassword is returned by Hash for an empty plaintext.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrInvalidConfig is returned by NewArgon2 for parameters below the floor.
	ErrInvalidConfig = errors.New("invalid password hashing config")
)

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32 `yaml:"memory"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
}

// DefaultConfig returns parameters that hash in roughly 100ms on commodity hardware.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes new credentials with argon2id and verifies both argon2id and
// legacy bcrypt digests. It is safe for concurrent use.
type Argon2 struct {
	config Config
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC-encoded argon2id digest with a fresh random salt.
// The plaintext is used byte for byte; no Unicode normalisation is applied.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches digest. Malformed or unknown digests
// verify as false.
func (a *Argon2) Verify(password, digest string) bool {
	if isBcrypt(digest) {
		cost, err := bcrypt.Cost([]byte(digest))
		if err != nil || cost > maxBcryptCost {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	}

	parsed, err := parsePHC(digest)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, parsed.keyLength)
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1
}

// NeedsUpgrade reports whether digest should be replaced by a fresh Hash: it is
// bcrypt, or argon2id with weaker parameters than the current config.
// Malformed digests report false; they never verify in the first place.
func (a *Argon2) NeedsUpgrade(digest string) bool {
	if isBcrypt(digest) {
		return true
	}

	parsed, err := parsePHC(digest)
	if err != nil {
		return false
	}
	return a.config.Memory > parsed.memory ||
		a.config.Time > parsed.time ||
		a.config.Parallelism > parsed.parallelism ||
		a.config.KeyLength != parsed.keyLength
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") || strings.HasPrefix(digest, "$2b$") || strings.HasPrefix(digest, "$2y$")
}

func parsePHC(encoded string) (*parsedPHC, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	params, err := parseParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	hash, err := decodeB64(parts[5])
	if err != nil || len(hash) == 0 || len(hash) > int(maxKeyLength) {
		return nil, errors.New("invalid hash")
	}

	return &parsedPHC{
		memory:      params.memory,
		time:        params.time,
		parallelism: params.parallelism,
		salt:        salt,
		hash:        hash,
		keyLength:   uint32(len(hash)),
	}, nil
}

// decodeB64 accepts both the unpadded PHC form and padded digests written by
// earlier releases.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

type parsedParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parseParams(part string) (*parsedParams, error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return nil, errors.New("invalid parameter format")
	}

	var (
		seen   = map[string]bool{}
		params parsedParams
	)
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || seen[k] {
			return nil, errors.New("invalid parameter entry")
		}
		seen[k] = true

		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minMemoryKB) || n > uint64(maxMemoryKB) {
				return nil, errors.New("invalid memory parameter")
			}
			params.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < uint64(minTimeCost) || n > uint64(maxTimeCost) {
				return nil, errors.New("invalid time parameter")
			}
			params.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < uint64(minParallelism) || n > uint64(maxParallelism) {
				return nil, errors.New("invalid parallelism parameter")
			}
			params.parallelism = uint8(n)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	return &params, nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return fmt.Errorf("%w: memory must be >= %d KiB", ErrInvalidConfig, minMemoryKB)
	case cfg.Time < minTimeCost:
		return fmt.Errorf("%w: time must be >= %d", ErrInvalidConfig, minTimeCost)
	case cfg.Parallelism < minParallelism:
		return fmt.Errorf("%w: parallelism must be >= %d", ErrInvalidConfig, minParallelism)
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt length must be >= %d", ErrInvalidConfig, minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key length must be >= %d", ErrInvalidConfig, minKeyLength)
	case cfg.Memory > maxMemoryKB:
		return fmt.Errorf("%w: memory must be <= %d KiB", ErrInvalidConfig, maxMemoryKB)
	case cfg.Time > maxTimeCost:
		return fmt.Errorf("%w: time must be <= %d", ErrInvalidConfig, maxTimeCost)
	case cfg.Parallelism > maxParallelism:
		return fmt.Errorf("%w: parallelism must be <= %d", ErrInvalidConfig, maxParallelism)
	case cfg.KeyLength > maxKeyLength:
		return fmt.Errorf("%w: key length must be <= %d", ErrInvalidConfig, maxKeyLength)
	}
	return nil
}
