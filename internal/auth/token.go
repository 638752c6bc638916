package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenType is the scheme of issued tokens.
	TokenType = "Bearer"
	// DefaultTokenTTL is the lifetime of an issued token.
	DefaultTokenTTL = 30 * 24 * time.Hour
	// KeyLength is the length of generated signing keys.
	KeyLength = 64

	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	// ErrInvalidToken is returned for tokens with a bad signature, format or expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenCreation is returned when a token cannot be signed.
	ErrTokenCreation = errors.New("token creation error")
)

// Claims is the payload of an issued token. The subject is the client id.
type Claims struct {
	jwt.RegisteredClaims
}

// ClientID returns the client the token was issued to.
func (c *Claims) ClientID() string {
	return c.Subject
}

// TokenService issues and validates HS256 signed bearer tokens.
// The key is fixed for the lifetime of the service.
type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithClock replaces the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a new TokenService signing with key.
func NewTokenService(key []byte, ttl time.Duration, opts ...Option) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		key: append([]byte(nil), key...),
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateKey returns KeyLength random alphanumeric characters.
func GenerateKey() ([]byte, error) {
	max := big.NewInt(int64(len(alphanumeric)))
	key := make([]byte, KeyLength)
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return nil, fmt.Errorf("generating signing key: %w", err)
		}
		key[i] = alphanumeric[n.Int64()]
	}
	return key, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token for subject that expires after the configured TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenCreation, err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry of token and returns its claims.
// Tokens without an expiry are rejected.
func (s *TokenService) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
