// Package storage defines the persistence capability behind the custom
// product cache.
package storage

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned by Get when nothing is stored under the key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrUnavailable is returned by every operation of a store that has no
	// durable medium behind it.
	ErrUnavailable = errors.New("storage: unavailable")
)

// Provider is a minimal key/value capability. Values are opaque bytes.
type Provider interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set durably replaces the value stored under key.
	Set(key string, value []byte) error
	// Clear removes key. Clearing a missing key is not an error.
	Clear(key string) error
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}
