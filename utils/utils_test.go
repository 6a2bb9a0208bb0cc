package utils

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/paperroom/config"
)

func TestToken_RoundTrip(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "s1", TokenTTLHours: 1})

	signed, claims, err := GenerateToken(7, "ada")
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	parsed, err := ParseToken(signed)
	require.NoError(t, err)
	assert.Equal(t, uint(7), parsed.UserID)
	assert.Equal(t, "ada", parsed.Username)
	assert.Equal(t, claims.ID, parsed.ID)

	config.Set(config.AppConfig{JWTSecret: "s2"})
	_, err = ParseToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeToken_InMemory(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "s"})
	ctx := context.Background()
	id := uuid.NewString()

	assert.False(t, IsTokenRevoked(ctx, id))
	RevokeToken(ctx, id, time.Now().Add(time.Hour))
	assert.True(t, IsTokenRevoked(ctx, id))

	expired := uuid.NewString()
	RevokeToken(ctx, expired, time.Now().Add(-time.Second))
	assert.False(t, IsTokenRevoked(ctx, expired))
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"too short", "seven77", true},
		{"minimum", "eight888", false},
		{"multibyte counts runes", "пароль12", false},
		{"beyond bcrypt limit", string(make([]byte, 73)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakPassword)
				return
			}
			require.NoError(t, err)
			assert.True(t, CheckPassword(hash, tt.password))
			assert.False(t, CheckPassword(hash, tt.password+"x"))
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Read chapter two", SanitizeText("  Read <script>alert(1)</script>chapter <b>two</b> "))
	assert.Equal(t, "Tom & Jerry", SanitizeText("Tom & Jerry"))
	assert.Equal(t, "<b>bold</b> ", SanitizeRich(`<b>bold</b> <script>x()</script>`))
}

func TestCacheWithoutRedisIsNoop(t *testing.T) {
	SetRedis(nil)
	ctx := context.Background()
	CacheSetJSON(ctx, ChartCacheKey(1, "2024-03-10"), []int{1}, time.Minute)

	var out []int
	assert.False(t, CacheGetJSON(ctx, ChartCacheKey(1, "2024-03-10"), &out))
	InvalidateByPrefix(ctx, ChartCachePrefix(1))
	assert.Equal(t, "chart:room:1:2024-03-10", ChartCacheKey(1, "2024-03-10"))
}
