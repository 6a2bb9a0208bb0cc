package utils

import (
	"context"
	"sync"
	"time"
)

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.RWMutex
)

func revokedKey(tokenID string) string { return "jwt:revoked:" + tokenID }

// RevokeToken marks a token id as logged out until it would have expired anyway.
// Redis is used when configured so every instance sees the revocation.
func RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, revokedKey(tokenID), "1", ttl).Err(); err == nil {
			return
		}
	}
	revokedMu.Lock()
	revoked[tokenID] = expiresAt
	revokedMu.Unlock()
}

// IsTokenRevoked reports whether the token id was revoked before its natural expiry.
func IsTokenRevoked(ctx context.Context, tokenID string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, revokedKey(tokenID)).Result()
		if err == nil && n > 0 {
			return true
		}
		// Fall through: the revocation may have been recorded locally while Redis was down.
	}

	revokedMu.RLock()
	exp, ok := revoked[tokenID]
	revokedMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		revokedMu.Lock()
		delete(revoked, tokenID)
		revokedMu.Unlock()
		return false
	}
	return true
}
