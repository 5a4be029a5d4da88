package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func protected() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(secret))
	r.GET("/me", func(c *gin.Context) {
		id, _ := c.Get("userID")
		// 必须已经是uint64，handler层直接断言
		c.JSON(http.StatusOK, gin.H{"id": id.(uint64)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	valid := jwt.MapClaims{"user_id": 42, "username": "alice", "exp": time.Now().Add(time.Hour).Unix()}
	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"valid", "Bearer " + sign(t, secret, valid), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + sign(t, secret, valid), http.StatusUnauthorized},
		{"wrong key", "Bearer " + sign(t, "other", valid), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, secret, jwt.MapClaims{"user_id": 42, "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"no user id", "Bearer " + sign(t, secret, jwt.MapClaims{"username": "alice"}), http.StatusUnauthorized},
		{"refresh token", "Bearer " + sign(t, secret, jwt.MapClaims{"user_id": 42, "typ": "refresh", "exp": time.Now().Add(time.Hour).Unix()}), http.StatusUnauthorized},
		{"access token", "Bearer " + sign(t, secret, jwt.MapClaims{"user_id": 42, "typ": "access", "exp": time.Now().Add(time.Hour).Unix()}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			protected().ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.JSONEq(t, `{"id":42}`, w.Body.String())
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/upload", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("definitely too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
