// Package cache stores registry responses between runs.
//
// Implementations share the byte-oriented [Cache] interface so the CLI can
// pick a local directory, Redis, or nothing at all without the HTTP clients
// noticing. Keys are built by a [Keyer] so namespaces stay consistent.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Cache is a TTL-aware byte store. Get reports a miss with ok == false and
// a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey keys a raw registry response.
	HTTPKey(namespace, key string) string
	// VersionsKey keys a filtered candidate list for one package.
	VersionsKey(id string, prerelease bool, frameworks []string) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// VersionsKey lowercases the package id and frameworks and sorts the
// frameworks, so equivalent requests share one entry.
func (DefaultKeyer) VersionsKey(id string, prerelease bool, frameworks []string) string {
	fws := make([]string, len(frameworks))
	for i, f := range frameworks {
		fws[i] = strings.ToLower(strings.TrimSpace(f))
	}
	sort.Strings(fws)
	return hashKey("versions", strings.ToLower(id), prerelease, fws)
}

// hashKey returns "<prefix>:<sha256 of the JSON-encoded parts>".
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + hashBytes(data)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NullCache stores nothing. GitHub reads use it because a batch must see
// the branch as it is now, and --no-cache selects it for registry reads.
type NullCache struct{}

// NewNullCache returns a cache that always misses.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
