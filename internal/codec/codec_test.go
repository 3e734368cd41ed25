package codec

import (
	"crypto/rand"
	"testing"

	"github.com/dmitrijs2005/sitestore/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", []byte{}},
		{"nil", nil},
		{"single zero byte", []byte{0x00}},
		{"sqlite header", []byte("SQLite format 3\x00")},
		{"all byte values", func() []byte {
			b := make([]byte, 256)
			for i := range b {
				b[i] = byte(i)
			}
			return b
		}()},
		{"random 4k", random},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Decode(Encode(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.in, out)
		})
	}
}

func TestEncode_EmptyIsEmptyString(t *testing.T) {
	assert.Equal(t, "", Encode(nil))
	assert.Equal(t, "", Encode([]byte{}))
}

func TestDecode_Malformed(t *testing.T) {
	for _, in := range []string{"!!!", "abc", "QUJDRA=x", "Zm9v YmFy"} {
		t.Run(in, func(t *testing.T) {
			out, err := Decode(in)
			require.ErrorIs(t, err, common.ErrCorruptEncoding)
			assert.Nil(t, out, "must not return partially decoded bytes")
		})
	}
}
