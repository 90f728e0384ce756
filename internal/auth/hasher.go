// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for new bcrypt digests.
const DefaultBcryptCost = 10

// bcryptMaxPasswordBytes is the longest input bcrypt hashes without truncating.
const bcryptMaxPasswordBytes = 72

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes

	argon2MaxMemory = 1 << 20 // KiB accepted when verifying a stored digest
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher turns plaintext passwords into salted digests and checks them.
type PasswordHasher interface {
	// Hash returns a salted digest of password. The salt is embedded in the digest.
	Hash(password string) (string, error)

	// Verify reports whether password matches digest. A malformed digest is a mismatch.
	Verify(password, digest string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher. A zero cost selects DefaultBcryptCost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_BCRYPT_COST_INVALID").
			With("cost", cost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash produces a bcrypt digest of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > bcryptMaxPasswordBytes {
		return "", oops.Code("AUTH_PASSWORD_TOO_LONG").
			With("max_bytes", bcryptMaxPasswordBytes).
			Errorf("password exceeds %d bytes", bcryptMaxPasswordBytes)
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("scheme", "bcrypt").Wrap(err)
	}
	return string(digest), nil
}

// Verify checks password against a bcrypt digest.
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// Argon2idHasher implements PasswordHasher using argon2id PHC strings.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against an argon2id PHC string.
func (h *Argon2idHasher) Verify(password, digest string) bool {
	params, salt, expected, ok := parseArgon2id(digest)
	if !ok {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
}

func parseArgon2id(digest string) (argon2Params, []byte, []byte, bool) {
	var p argon2Params

	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, false
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return p, nil, nil, false
	}
	if threads == 0 || threads > 255 || time == 0 || memory == 0 || memory > argon2MaxMemory {
		return p, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > 1<<10 {
		return p, nil, nil, false
	}

	p = argon2Params{memory: memory, time: time, threads: uint8(threads)}
	return p, salt, key, true
}

// MultiHasher hashes with a primary scheme and verifies digests of any known scheme.
type MultiHasher struct {
	primary  PasswordHasher
	bcrypt   PasswordHasher
	argon2id PasswordHasher
}

// NewMultiHasher returns a hasher that writes with primary and reads bcrypt and argon2id digests.
func NewMultiHasher(primary PasswordHasher, bcryptHasher *BcryptHasher) *MultiHasher {
	return &MultiHasher{
		primary:  primary,
		bcrypt:   bcryptHasher,
		argon2id: NewArgon2idHasher(),
	}
}

// Hash delegates to the primary scheme.
func (h *MultiHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

// Verify picks the scheme from the digest prefix.
func (h *MultiHasher) Verify(password, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return h.argon2id.Verify(password, digest)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return h.bcrypt.Verify(password, digest)
	default:
		return false
	}
}

// Hasher scheme names accepted by NewHasher.
const (
	SchemeBcrypt   = "bcrypt"
	SchemeArgon2id = "argon2id"
)

// NewHasher builds the configured hasher. Digests from the other scheme still verify.
func NewHasher(scheme string, bcryptCost int) (*MultiHasher, error) {
	bh, err := NewBcryptHasher(bcryptCost)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "", SchemeBcrypt:
		return NewMultiHasher(bh, bh), nil
	case SchemeArgon2id:
		return NewMultiHasher(NewArgon2idHasher(), bh), nil
	default:
		return nil, oops.Code("AUTH_HASHER_UNKNOWN").
			With("scheme", scheme).
			Errorf("unknown password hasher %q", scheme)
	}
}
