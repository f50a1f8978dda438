package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// maxRawKeyLength is the longest key stored verbatim; longer keys are
// hashed so Redis key sizes stay bounded.
const maxRawKeyLength = 200

// RequestKey builds a deterministic cache key for a proxied read. Query
// parameters are sorted so equivalent requests share an entry.
func RequestKey(method, path string, query map[string]string) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(':')
	b.WriteString(path)

	if len(query) > 0 {
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('?')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(query[k])
		}
	}

	key := b.String()
	if len(key) > maxRawKeyLength {
		return HashKey(key)
	}
	return key
}

// HashKey returns the hex-encoded SHA-256 of the key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
