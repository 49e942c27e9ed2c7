package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores provider replies keyed by request fingerprint
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "caselabel:v1:"

// Key fingerprints a request. Parts are joined with a separator that cannot
// appear in UTF-8 text, so ("ab", "c") and ("a", "bc") never collide.
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\xff")))
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

// SuggestionKey identifies a suggestion reply. The schema version is part of
// the key so a taxonomy change never serves replies built for older ids.
func SuggestionKey(schemaVersion, provider, model, caseText string) string {
	return Key("suggest", schemaVersion, provider, model, caseText)
}
