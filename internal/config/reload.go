package config

import "sync/atomic"

// Live holds a Config behind an atomic pointer so REHASH can swap the
// Reloadable subset in without readers taking a lock, per spec section
// 6.6.
type Live struct {
	ptr atomic.Pointer[Config]
}

// NewLive wraps an initial Config.
func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.ptr.Store(cfg)
	return l
}

// Get returns the currently-live Config. The returned pointer must be
// treated as read-only; Rehash always installs a new value rather than
// mutating in place.
func (l *Live) Get() *Config {
	return l.ptr.Load()
}

// Rehash re-parses document and, if it parses successfully, installs
// only its Reloadable fields into the live config -- listeners, links,
// limits and security thresholds are left untouched, matching spec
// section 6.6's "everything else requires a process restart".
func (l *Live) Rehash(loader ConfigLoader) error {
	next, err := loader.Load()
	if err != nil {
		return err
	}
	cur := l.ptr.Load()
	updated := *cur
	updated.Reloadable = next.Reloadable
	l.ptr.Store(&updated)
	return nil
}
