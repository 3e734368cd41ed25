package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast; Verify reads them back from the digest
func testHasher() *Argon2 {
	return &Argon2{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func TestHash_Format(t *testing.T) {
	d, err := testHasher().Hash("secret1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(d, "$argon2id$v=19$m=1024,t=1,p=1$"), d)
	assert.Len(t, strings.Split(d, "$"), 6)
	assert.True(t, IsDigest(d))
}

func TestHash_UniqueSalts(t *testing.T) {
	h := testHasher()
	d1, err := h.Hash("same")
	require.NoError(t, err)
	d2, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestVerify(t *testing.T) {
	h := testHasher()
	d, err := h.Hash("secret1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"correct", "secret1", true},
		{"wrong", "wrong", false},
		{"case differs", "SECRET1", false},
		{"empty", "", false},
		{"digest itself", d, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify(tt.password, d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVerify_UsesParametersFromDigest(t *testing.T) {
	d, err := testHasher().Hash("pw")
	require.NoError(t, err)

	ok, err := NewArgon2().Verify("pw", d)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_MalformedDigest(t *testing.T) {
	h := testHasher()
	tests := []struct {
		name   string
		digest string
		want   error
	}{
		{"plaintext", "admin123", ErrInvalidDigest},
		{"wrong algorithm", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5", ErrUnsupportedAlgorithm},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", ErrInvalidDigest},
		{"bad salt", "$argon2id$v=19$m=8,t=1,p=1$!!$a2V5", ErrInvalidDigest},
		{"empty key", "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$", ErrInvalidDigest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := h.Verify("x", tt.digest)
			require.ErrorIs(t, err, tt.want)
			assert.False(t, ok)
		})
	}
}

func TestIsDigest(t *testing.T) {
	assert.False(t, IsDigest(""))
	assert.False(t, IsDigest("password123"))
	assert.False(t, IsDigest("$argon2id$garbage"))
}

func TestVerify_RejectsExcessiveCost(t *testing.T) {
	h := testHasher()
	tests := []struct {
		name   string
		digest string
	}{
		{"max memory and iterations", "$argon2id$v=19$m=4294967295,t=4294967295,p=255$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5"},
		{"memory over 1GiB", "$argon2id$v=19$m=1048577,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5"},
		{"too many iterations", "$argon2id$v=19$m=1024,t=17,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5"},
		{"zero memory", "$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5"},
		{"oversized key", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$" + strings.Repeat("a2V5", 60)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, IsDigest(tt.digest))

			ok, err := h.Verify("x", tt.digest)
			require.ErrorIs(t, err, ErrInvalidDigest)
			assert.False(t, ok)
		})
	}
}

func TestIsDigest_AcceptsDefaultCost(t *testing.T) {
	d, err := testHasher().Hash("pw")
	require.NoError(t, err)
	assert.True(t, IsDigest(d))

	bound := "$argon2id$v=19$m=1048576,t=16,p=4$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5"
	assert.True(t, IsDigest(bound))
}
