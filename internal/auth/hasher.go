// Package auth provides password hashing and session tokens.
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

// DefaultMinSecretLength is the shortest password accepted by Hash.
const DefaultMinSecretLength = 6

const (
	saltLen = 16

	// Upper bounds on parameters read back from stored records.
	maxMemory     = 1024 * 1024
	maxIterations = 16
)

// ErrSecretTooShort is returned by Hash for secrets under the minimum length.
var ErrSecretTooShort = errors.New("secret is shorter than the minimum length")

// Argon2Params are the cost parameters written into every new record.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultArgon2Params returns the OWASP 2024 recommended minimum for argon2id.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    3,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
	}
}

// Hasher turns plaintext passwords into self-describing argon2id records
// in PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<digest>
//
// Salt and digest are unpadded standard base64, which never contains '$'.
type Hasher struct {
	minLength int
	params    Argon2Params
}

// NewHasher creates a Hasher. A non-positive minLength falls back to
// DefaultMinSecretLength.
func NewHasher(minLength int, params Argon2Params) *Hasher {
	if minLength <= 0 {
		minLength = DefaultMinSecretLength
	}
	return &Hasher{minLength: minLength, params: params}
}

// MinLength returns the minimum accepted secret length.
func (h *Hasher) MinLength() int {
	return h.minLength
}

// Hash derives a record from secret using a fresh random salt, so equal
// secrets never produce equal records.
func (h *Hasher) Hash(secret string) (string, error) {
	if len(secret) < h.minLength {
		return "", ErrSecretTooShort
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify reports whether secret matches record. The digest is recomputed
// with the parameters stored in the record. Malformed records, unsupported
// versions and mismatches all yield false.
func (h *Hasher) Verify(secret, record string) bool {
	parts := strings.Split(record, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}
	if memory == 0 || iterations == 0 || threads == 0 || memory > maxMemory || iterations > maxIterations {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	computed := argon2.IDKey([]byte(secret), salt, iterations, memory, threads, uint32(len(expected)))

	return subtle.ConstantTimeCompare(computed, expected) == 1
}
