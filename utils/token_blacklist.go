package utils

import (
	"context"
	"sync"
	"time"
)

// blacklistEntry keeps expiration metadata for a revoked session.
type blacklistEntry struct {
	expiresAt time.Time
}

var (
	blacklist   = map[string]blacklistEntry{}
	blacklistMu sync.RWMutex
)

// BlacklistSession revokes a JWT session id until the token's natural
// expiration to support logout semantics.
func BlacklistSession(session string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	// Prefer Redis: key with TTL until token expiration
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "jwt:blacklist:"+session, "1", ttl).Err(); err == nil {
			return
		}
	}
	// Fallback to in-memory
	blacklistMu.Lock()
	blacklist[session] = blacklistEntry{expiresAt: expiresAt}
	blacklistMu.Unlock()
}

// IsSessionBlacklisted checks if a session was revoked before natural expiration.
func IsSessionBlacklisted(session string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, "jwt:blacklist:"+session).Result()
		if err == nil && n > 0 {
			return true
		}
		// fail open on redis errors and fall through to the memory copy
	}
	blacklistMu.RLock()
	entry, ok := blacklist[session]
	blacklistMu.RUnlock()
	if !ok {
		return false
	}

	if time.Now().After(entry.expiresAt) {
		blacklistMu.Lock()
		delete(blacklist, session)
		blacklistMu.Unlock()
		return false
	}

	return true
}
