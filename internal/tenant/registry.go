package tenant

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Registry resolves an inbound API key to the tenant it is issued for.
// The mapping is fixed configuration resolved once at process start;
// only key digests are kept in memory.
type Registry struct {
	byDigest map[string]registryEntry
}

type registryEntry struct {
	digest string
	tenant string
}

// HashAPIKey returns the hex sha256 digest of an API key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// NewRegistry builds a registry from a key→tenant map.
func NewRegistry(keys map[string]string) *Registry {
	byDigest := make(map[string]registryEntry, len(keys))
	for key, slug := range keys {
		key = strings.TrimSpace(key)
		slug = strings.TrimSpace(slug)
		if key == "" || slug == "" {
			continue
		}
		digest := HashAPIKey(key)
		byDigest[digest] = registryEntry{digest: digest, tenant: slug}
	}
	return &Registry{byDigest: byDigest}
}

// Resolve returns the tenant slug for an API key, if the key is known.
func (r *Registry) Resolve(apiKey string) (string, bool) {
	if r == nil || strings.TrimSpace(apiKey) == "" {
		return "", false
	}
	digest := HashAPIKey(apiKey)
	entry, ok := r.byDigest[digest]
	if !ok {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(entry.digest), []byte(digest)) != 1 {
		return "", false
	}
	return entry.tenant, true
}

// Len reports the number of configured keys.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byDigest)
}
