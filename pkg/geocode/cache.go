package geocode

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// cacheKey returns SHA-256 hex of the normalized address for cache lookup.
func cacheKey(addr AddressInput) string {
	normalized := fmt.Sprintf("%s|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(addr.Street)),
		strings.ToLower(strings.TrimSpace(addr.City)),
		strings.ToLower(strings.TrimSpace(addr.State)),
		strings.TrimSpace(addr.ZipCode),
	)
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// CacheKey exposes the cache key for an address so commands sharing the
// checkpoint store can look up what the cascade cached for it.
func CacheKey(addr AddressInput) string { return cacheKey(addr) }
