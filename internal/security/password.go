package security

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	argon2Prefix = "$argon2id$"
	// bcrypt ignores input past this length, so longer passwords are refused.
	maxBcryptPasswordLen = 72
)

var (
	ErrPasswordTooLong    = errors.New("password too long")
	ErrUnknownHashFormat  = errors.New("unknown password hash format")
	ErrUnknownHashAlgo    = errors.New("unknown password hash algorithm")
	errMalformedArgonHash = errors.New("malformed argon2id hash")
)

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

// PasswordHasher hashes new passwords with the configured algorithm and
// verifies any stored hash it recognises, so the algorithm can change without
// invalidating existing accounts.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int
	argon      Argon2Params

	dummyOnce sync.Once
	dummy     []byte
}

func NewPasswordHasher(algorithm string, bcryptCost int, argon Argon2Params) (*PasswordHasher, error) {
	switch algorithm {
	case AlgorithmBcrypt:
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
		}
	case AlgorithmArgon2id:
		if argon.KeyLen == 0 {
			argon.KeyLen = DefaultArgon2Params.KeyLen
		}
		if argon.SaltLen == 0 {
			argon.SaltLen = DefaultArgon2Params.SaltLen
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHashAlgo, algorithm)
	}

	return &PasswordHasher{
		algorithm:  algorithm,
		bcryptCost: bcryptCost,
		argon:      argon,
	}, nil
}

func (h *PasswordHasher) Hash(password string) ([]byte, error) {
	if h.algorithm == AlgorithmArgon2id {
		return hashArgon2id(password, h.argon)
	}

	if len(password) > maxBcryptPasswordLen {
		return nil, ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}
	return hash, nil
}

// Verify reports whether password matches encodedHash. A mismatch is not an
// error; an unreadable hash is.
func (h *PasswordHasher) Verify(password string, encodedHash []byte) (bool, error) {
	if bytes.HasPrefix(encodedHash, []byte(argon2Prefix)) {
		return verifyArgon2id(password, encodedHash)
	}
	if _, err := bcrypt.Cost(encodedHash); err != nil {
		return false, ErrUnknownHashFormat
	}

	err := bcrypt.CompareHashAndPassword(encodedHash, []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("bcrypt compare: %w", err)
}

// BurnVerify spends the same work as a real verification against a throwaway
// hash. Used when the account does not exist.
func (h *PasswordHasher) BurnVerify(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = h.Hash("codepilot-dummy-password")
	})
	if h.dummy != nil {
		_, _ = h.Verify(password, h.dummy)
	}
}

func hashArgon2id(password string, params Argon2Params) ([]byte, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLen)

	result := fmt.Sprintf("$argon2id$v=%d$t=%d,m=%d,p=%d$%s$%s",
		argon2.Version, params.Time, params.Memory, params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))

	return []byte(result), nil
}

func verifyArgon2id(password string, encodedHash []byte) (bool, error) {
	// "", "argon2id", "v=19", "t=..,m=..,p=..", salt, hash
	parts := strings.Split(string(encodedHash), "$")
	if len(parts) != 6 {
		return false, errMalformedArgonHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errMalformedArgonHash
	}

	var (
		time    uint32
		memory  uint32
		threads uint8
	)
	if _, err := fmt.Sscanf(parts[3], "t=%d,m=%d,p=%d", &time, &memory, &threads); err != nil {
		return false, fmt.Errorf("parse params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}
