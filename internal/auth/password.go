// Package auth provides password hashing and bearer token handling for API clients.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmArgon2id = "argon2id"

// ErrInvalidHash is returned when a stored hash is not a PHC formatted Argon2 string.
var ErrInvalidHash = errors.New("hash is not in the expected PHC format")

// Params are the Argon2id cost parameters.
type Params struct {
	// Memory in KiB
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns the cost parameters used for stored credentials.
func DefaultParams() Params {
	return Params{
		Memory:      19 * 1024,
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies client secrets with Argon2id.
type Hasher struct {
	params Params
}

// NewHasher creates a new Hasher with the given cost parameters.
func NewHasher(params Params) *Hasher {
	return &Hasher{params: params}
}

// Hash derives a PHC string ($argon2id$v=19$m=..,t=..,p=..$salt$digest) from secret
// using a fresh random salt.
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmArgon2id,
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches the encoded hash.
// A hash produced by another algorithm or Argon2 version does not match;
// only a structurally broken string is an error.
func (h *Hasher) Verify(encoded, secret string) (bool, error) {
	d, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	if d.algorithm != algorithmArgon2id || d.version != argon2.Version {
		return false, nil
	}

	key := argon2.IDKey([]byte(secret), d.salt, d.params.Iterations, d.params.Memory, d.params.Parallelism, uint32(len(d.key)))

	return subtle.ConstantTimeCompare(key, d.key) == 1, nil
}

type decodedHash struct {
	algorithm string
	version   int
	params    Params
	salt      []byte
	key       []byte
}

func decodeHash(encoded string) (*decodedHash, error) {
	// "", algorithm, version, params, salt, digest
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, ErrInvalidHash
	}

	d := &decodedHash{algorithm: parts[1]}

	if _, err := fmt.Sscanf(parts[2], "v=%d", &d.version); err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrInvalidHash, err)
	}

	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.params.Memory, &d.params.Iterations, &parallelism); err != nil {
		return nil, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}
	if parallelism == 0 || parallelism > 255 || d.params.Iterations == 0 {
		return nil, fmt.Errorf("%w: parameters out of range", ErrInvalidHash)
	}
	d.params.Parallelism = uint8(parallelism)

	var err error
	if d.salt, err = base64.RawStdEncoding.Strict().DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	if d.key, err = base64.RawStdEncoding.Strict().DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("%w: digest: %v", ErrInvalidHash, err)
	}
	if len(d.salt) == 0 || len(d.key) == 0 {
		return nil, fmt.Errorf("%w: empty salt or digest", ErrInvalidHash)
	}

	return d, nil
}
