package dictionary

import "time"

// DefaultTTL is used when no expiration is configured.
const DefaultTTL = 30 * time.Minute

// ExpirationPolicy decides how long a record stays fresh.
type ExpirationPolicy struct {
	Default   time.Duration
	Overrides map[string]time.Duration
}

// Duration returns the time-to-live for a dictionary code.
func (p ExpirationPolicy) Duration(code string) time.Duration {
	if ttl, ok := p.Overrides[code]; ok && ttl > 0 {
		return ttl
	}
	if p.Default > 0 {
		return p.Default
	}
	return DefaultTTL
}
