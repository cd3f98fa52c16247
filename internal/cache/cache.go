package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const keyPrefix = "legisla:v1:"

// Cache stores fetched pages and rendered views
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// RequestKey derives a cache key from an HTTP request.
// Form posts with different bodies get different keys.
func RequestKey(method, url, body string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Key derives a cache key from arbitrary parts
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
