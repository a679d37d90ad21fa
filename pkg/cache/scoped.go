package cache

// ScopedKeyer prefixes every key, so several graftwood deployments can share
// one Redis database:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "graftwood:staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the [DefaultKeyer] when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// Prefix returns the scope prefix.
func (k *ScopedKeyer) Prefix() string { return k.prefix }

// DocumentKey prefixes the inner key.
func (k *ScopedKeyer) DocumentKey(source string) string {
	return k.prefix + k.inner.DocumentKey(source)
}
