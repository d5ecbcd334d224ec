// AngelaMos | 2026
// security.go

package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
)

var ErrMalformedHash = errors.New("malformed password hash")

const dummyPassword = "dummy_password_for_timing_attack_prevention"

// PasswordHasher hashes with argon2id. At most MaxConcurrent hashes are
// computed at once; callers wait on ctx for a slot.
type PasswordHasher struct {
	params    argonParams
	saltLen   uint32
	slots     *semaphore.Weighted
	dummyHash string
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

func NewPasswordHasher(cfg config.PasswordConfig) (*PasswordHasher, error) {
	if cfg.Memory < 8*1024 {
		return nil, fmt.Errorf("password memory must be at least 8192 KiB")
	}
	if cfg.Iterations < 1 || cfg.Parallelism < 1 {
		return nil, fmt.Errorf("password iterations and parallelism must be positive")
	}
	if cfg.SaltLength < 16 || cfg.KeyLength < 16 {
		return nil, fmt.Errorf("password salt and key length must be at least 16")
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	h := &PasswordHasher{
		params: argonParams{
			memory:  cfg.Memory,
			time:    cfg.Iterations,
			threads: cfg.Parallelism,
			keyLen:  cfg.KeyLength,
		},
		saltLen: cfg.SaltLength,
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
	}

	dummy, err := h.Hash(context.Background(), dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	h.dummyHash = dummy

	return h, nil
}

func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash, err := h.derive(ctx, password, salt, h.params)
	if err != nil {
		return "", err
	}

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.memory,
		h.params.time,
		h.params.threads,
		b64Salt,
		b64Hash,
	)

	return encoded, nil
}

func (h *PasswordHasher) Verify(
	ctx context.Context,
	password, encodedHash string,
) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}

	otherHash, err := h.derive(ctx, password, salt, *params)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(hash, otherHash) == 1, nil
}

// VerifyTimingSafe spends the same work whether or not an account exists.
// A nil or empty hash always reports false.
func (h *PasswordHasher) VerifyTimingSafe(
	ctx context.Context,
	password string,
	encodedHash *string,
) (bool, error) {
	hashToVerify := h.dummyHash
	if encodedHash != nil && *encodedHash != "" {
		hashToVerify = *encodedHash
	}

	valid, err := h.Verify(ctx, password, hashToVerify)

	if encodedHash == nil || *encodedHash == "" {
		return false, nil
	}

	return valid, err
}

func (h *PasswordHasher) NeedsRehash(encodedHash string) bool {
	params, _, _, err := decodeHash(encodedHash)
	if err != nil {
		return true
	}

	return params.memory != h.params.memory ||
		params.time != h.params.time ||
		params.threads != h.params.threads ||
		params.keyLen != h.params.keyLen
}

func (h *PasswordHasher) derive(
	ctx context.Context,
	password string,
	salt []byte,
	params argonParams,
) ([]byte, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for hash slot: %w", err)
	}
	defer h.slots.Release(1)

	return argon2.IDKey(
		[]byte(password),
		salt,
		params.time,
		params.memory,
		params.threads,
		params.keyLen,
	), nil
}

func decodeHash(encodedHash string) (*argonParams, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	_, err := fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}

	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("incompatible version: %d", version)
	}

	params := &argonParams{}
	_, err = fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&params.memory,
		&params.time,
		&params.threads,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid params: %w", err)
	}

	if params.memory == 0 || params.time == 0 || params.threads == 0 {
		return nil, nil, nil, fmt.Errorf("invalid params: zero cost")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode hash: %w", err)
	}

	if len(hash) == 0 {
		return nil, nil, nil, fmt.Errorf("empty hash")
	}

	//nolint:gosec // G115: hash length is always small (32 bytes for Argon2id)
	params.keyLen = uint32(len(hash))

	return params, salt, hash, nil
}

func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func GenerateNonce() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func CompareTokenHash(token, hash string) bool {
	tokenHash := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(tokenHash), []byte(hash)) == 1
}
