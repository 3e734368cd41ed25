// Package cryptox produces and verifies password digests.
//
// Digests are self-describing PHC-style strings:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt b64>$<key b64>
//
// so parameters can change without invalidating stored credentials.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sitestore/internal/common"
	"golang.org/x/crypto/argon2"
)

const digestPrefix = "$argon2id$"

// Upper bounds for parameters read from a stored digest. Digests may come
// from a snapshot written elsewhere, so their cost is capped before use.
const (
	maxMemory     = 1 << 20 // KiB, 1 GiB
	maxIterations = 16
	maxKeyLength  = 128
)

var (
	ErrInvalidDigest        = errors.New("invalid digest format")
	ErrUnsupportedAlgorithm = errors.New("unsupported digest algorithm")
)

// PasswordHasher hashes passwords and checks them against stored digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

var _ PasswordHasher = (*Argon2)(nil)

// Argon2 holds argon2id cost parameters. SaltLength is only used by Hash;
// Verify reads every parameter from the digest itself.
type Argon2 struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// NewArgon2 returns the default cost parameters.
func NewArgon2() *Argon2 {
	return &Argon2{
		Memory:      64 * 1024,
		Iterations:  1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (a *Argon2) Hash(password string) (string, error) {
	if a.SaltLength == 0 || a.KeyLength == 0 {
		return "", fmt.Errorf("%w: zero salt or key length", ErrInvalidDigest)
	}
	salt := common.GenerateRandByteArray(int(a.SaltLength))
	key := argon2.IDKey([]byte(password), salt, a.Iterations, a.Memory, a.Parallelism, a.KeyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		digestPrefix,
		argon2.Version,
		a.Memory,
		a.Iterations,
		a.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify recomputes the key for password and compares it in constant time.
func (a *Argon2) Verify(password, digest string) (bool, error) {
	params, salt, key, err := decodeDigest(digest)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)
	defer common.WipeByteArray(candidate)

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// IsDigest reports whether s parses as a digest produced by Hash. Anything
// else stored in a credential column is treated as legacy plaintext.
func IsDigest(s string) bool {
	if !strings.HasPrefix(s, digestPrefix) {
		return false
	}
	_, _, _, err := decodeDigest(s)
	return err == nil
}

func decodeDigest(digest string) (*Argon2, []byte, []byte, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return nil, nil, nil, ErrInvalidDigest
	}
	if parts[1] != "argon2id" {
		return nil, nil, nil, ErrUnsupportedAlgorithm
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: version: %v", ErrInvalidDigest, err)
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("%w: version %d", ErrUnsupportedAlgorithm, version)
	}

	params := &Argon2{}
	var p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &p); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: parameters: %v", ErrInvalidDigest, err)
	}
	if p == 0 || p > 255 || params.Iterations == 0 || params.Iterations > maxIterations ||
		params.Memory == 0 || params.Memory > maxMemory {
		return nil, nil, nil, fmt.Errorf("%w: parameters out of range", ErrInvalidDigest)
	}
	params.Parallelism = uint8(p)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidDigest, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: key: %v", ErrInvalidDigest, err)
	}
	if len(key) == 0 || len(key) > maxKeyLength {
		return nil, nil, nil, fmt.Errorf("%w: key length %d", ErrInvalidDigest, len(key))
	}
	params.SaltLength = uint32(len(salt))
	params.KeyLength = uint32(len(key))

	return params, salt, key, nil
}
