package cache

// ScopedKeyer prefixes every key produced by another Keyer, so that runs
// against different registries never share entries.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with prefix. A nil inner uses DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// HTTPKey returns the prefixed HTTP key.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// VersionsKey returns the prefixed versions key.
func (k *ScopedKeyer) VersionsKey(id string, prerelease bool, frameworks []string) string {
	return k.prefix + k.inner.VersionsKey(id, prerelease, frameworks)
}
