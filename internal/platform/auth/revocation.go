package auth

import (
	"sync"
	"time"
)

// RevocationList remembers the JTIs of session tokens that were logged out
// before they expired. Expired entries are pruned on every Revoke.
type RevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time // JTI -> token expiry
	now     func() time.Time
}

func NewRevocationList() *RevocationList {
	return &RevocationList{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke blocks jti until expiresAt, after which the token is invalid anyway.
func (l *RevocationList) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, exp := range l.entries {
		if now.After(exp) {
			delete(l.entries, id)
		}
	}
	l.entries[jti] = expiresAt
}

func (l *RevocationList) IsRevoked(jti string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.entries[jti]
	return ok
}

func (l *RevocationList) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
