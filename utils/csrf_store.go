package utils

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type csrfEntry struct {
	token     string
	expiresAt time.Time
}

var (
	csrfStore   = map[string]csrfEntry{}
	csrfStoreMu sync.Mutex
)

// IssueCSRFToken creates a fresh anti-forgery token for the session,
// replacing any previous one.
func IssueCSRFToken(session string, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	token := uuid.NewString()
	// Prefer Redis for distributed consistency
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "csrf:"+session, token, ttl).Err(); err == nil {
			return token
		}
		Sugar.Warnf("csrf store: redis set failed for session %s, using memory", session)
	}
	// Fallback to in-memory (single-instance only)
	csrfStoreMu.Lock()
	purgeExpiredCSRFLocked()
	csrfStore[session] = csrfEntry{token: token, expiresAt: time.Now().Add(ttl)}
	csrfStoreMu.Unlock()
	return token
}

// VerifyCSRFToken reports whether token is the live token of the session.
// Tokens stay valid until they expire or the session is revoked.
func VerifyCSRFToken(session, token string) bool {
	if session == "" || token == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stored, err := rc.Get(ctx, "csrf:"+session).Result()
		if err == nil {
			return equalTokens(stored, token)
		}
		if errors.Is(err, redis.Nil) {
			// may have been issued while redis was failing
			return verifyMemoryToken(session, token)
		}
		return false
	}
	return verifyMemoryToken(session, token)
}

// RevokeCSRFToken drops the session's token, used on logout.
func RevokeCSRFToken(session string) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Del(ctx, "csrf:"+session).Err()
	}
	csrfStoreMu.Lock()
	delete(csrfStore, session)
	csrfStoreMu.Unlock()
}

// purgeExpiredCSRFLocked drops expired fallback tokens of sessions that never
// came back to verify them.
func purgeExpiredCSRFLocked() {
	now := time.Now()
	for session, entry := range csrfStore {
		if now.After(entry.expiresAt) {
			delete(csrfStore, session)
		}
	}
}

func verifyMemoryToken(session, token string) bool {
	csrfStoreMu.Lock()
	defer csrfStoreMu.Unlock()
	entry, ok := csrfStore[session]
	if !ok {
		return false
	}
	if time.Now().After(entry.expiresAt) {
		delete(csrfStore, session)
		return false
	}
	return equalTokens(entry.token, token)
}

func equalTokens(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
