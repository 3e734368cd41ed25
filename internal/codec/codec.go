// Package codec converts between a binary database image and the text-safe
// base64 form used for the local cache slot and for transport.
package codec

import (
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/sitestore/internal/common"
)

// Encode returns the standard base64 encoding of b. The empty slice encodes
// to the empty string.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode reverses Encode. Malformed input yields an error wrapping
// common.ErrCorruptEncoding and no bytes at all.
func Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCorruptEncoding, err)
	}
	return b, nil
}
