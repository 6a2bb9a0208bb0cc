package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/paperroom/config"
	"github.com/cppla/paperroom/utils"
)

func TestLimiterSet(t *testing.T) {
	set := newLimiterSet(4) // burst 2, one token every 15s
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, set.allow("a", now))
	assert.True(t, set.allow("a", now))
	assert.False(t, set.allow("a", now))
	assert.True(t, set.allow("b", now), "keys are independent")
	assert.True(t, set.allow("a", now.Add(15*time.Second)))

	set.allow("c", now.Add(time.Hour))
	assert.Len(t, set.entries, 1, "idle keys are dropped")
}

func TestAuthRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "mw-secret"})
	token, _, err := utils.GenerateToken(3, "cyd")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthRequired(), func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"id": CurrentUserID(ctx)})
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
