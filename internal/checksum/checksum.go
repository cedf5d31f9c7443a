// Package checksum derives content digests used as entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// JSON returns the hex-encoded SHA-256 digest of v's JSON encoding. Equal
// values always produce equal digests because struct fields and map keys
// encode in a fixed order.
func JSON(v any) (string, error) {
	h := sha256.New()
	if err := json.NewEncoder(h).Encode(v); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
