package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret (PrivateKey).
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with the public key.
	MethodEd25519 SigningMethod = "ed25519"
)

// DefaultTTL is the session lifetime when Config.TTL is zero.
const DefaultTTL = 7 * 24 * time.Hour

const minHMACKeyBytes = 32

// Config configures a Manager. PrivateKey is the HMAC secret for HS256.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	// Now overrides the clock used for iat, exp and validation. Defaults to time.Now.
	Now func() time.Time
}

// Identity is the subject a session token is issued for.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// Claims is the verified content of a session token.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the subject carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UID, Email: c.Email, Role: c.Role}
}

// Manager issues and verifies stateless session tokens. Tokens are never revoked;
// expiry and key rotation are the only ways to end them. Rotating the key
// invalidates every token signed with the previous one.
type Manager struct {
	config Config
	method jwt.SigningMethod
	sign   any
	verify any
}

// NewManager validates cfg and parses key material once.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}

	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHMACKeyBytes {
			return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", minHMACKeyBytes)
		}
		m.method = jwt.SigningMethodHS256
		m.sign = cfg.PrivateKey
		m.verify = cfg.PrivateKey
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.sign = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verify = pub
		}
		if m.verify == nil {
			return nil, errors.New("ed25519 requires a public key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue signs a token for id with iat = now and exp = now + TTL.
func (m *Manager) Issue(id Identity) (string, error) {
	if m.sign == nil {
		return "", errors.New("manager has no signing key")
	}

	now := m.config.Now()
	claims := Claims{
		UID:   id.UserID,
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	return jwt.NewWithClaims(m.method, claims).SignedString(m.sign)
}

// Verify checks signature, algorithm, expiry and issuer. Any failure, including a
// malformed token, returns (nil, false).
func (m *Manager) Verify(token string) (*Claims, bool) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func (m *Manager) parse(token string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, m.keyFunc)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != m.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}
	return m.verify, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
