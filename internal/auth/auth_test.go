package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tokens := NewTokens("test-secret", 0)

	token, err := tokens.GenerateToken("test-user-id")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestGenerateTokenWithoutSecret(t *testing.T) {
	tokens := NewTokens("", 0)

	_, err := tokens.GenerateToken("test-user-id")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestValidateToken(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	token, err := tokens.GenerateToken("test-user-id")
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "test-user-id", claims.UserID)
	assert.Equal(t, "booklist", claims.Issuer)
}

func TestValidateInvalidToken(t *testing.T) {
	tokens := NewTokens("test-secret", 0)

	_, err := tokens.ValidateToken("invalid-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewTokens("secret-a", 0).GenerateToken("user")
	require.NoError(t, err)

	_, err = NewTokens("secret-b", 0).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpiredToken(t *testing.T) {
	secret := "test-secret"
	claims := &Claims{
		UserID: "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			Issuer:    issuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewTokens(secret, 0).ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := NewTokens("test-secret", 0)
	valid, err := tokens.GenerateToken("user-42")
	require.NoError(t, err)

	tests := []struct {
		name       string
		optional   bool
		header     string
		wantStatus int
		wantUser   string
	}{
		{"required missing header", false, "", http.StatusUnauthorized, ""},
		{"required bad format", false, "Token abc", http.StatusUnauthorized, ""},
		{"required invalid token", false, "Bearer abc", http.StatusUnauthorized, ""},
		{"required valid", false, "Bearer " + valid, http.StatusOK, "user-42"},
		{"optional missing header", true, "", http.StatusOK, ""},
		{"optional invalid token", true, "Bearer abc", http.StatusOK, ""},
		{"optional valid", true, "bearer " + valid, http.StatusOK, "user-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			if tt.optional {
				r.Use(tokens.OptionalAuthMiddleware())
			} else {
				r.Use(tokens.AuthMiddleware())
			}
			var gotUser string
			r.GET("/", func(c *gin.Context) {
				gotUser = GetUserID(c)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantUser, gotUser)
		})
	}
}
