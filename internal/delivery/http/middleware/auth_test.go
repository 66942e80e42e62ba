package middleware

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

const (
	testSecret = "jwt-test-secret"
	testIssuer = "shvark"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", JWTAuth(testSecret, testIssuer))
	api.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": Subject(c), "admin": HasRole(c, RoleAdmin)})
	})
	api.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func call(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newAuthRouter()
	admin, err := NewToken(testSecret, testIssuer, "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	member, err := NewToken(testSecret, testIssuer, "member-1", RoleMember, time.Hour)
	require.NoError(t, err)
	expired, err := NewToken(testSecret, testIssuer, "ops", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	foreign, err := NewToken("other-secret", testIssuer, "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewToken(testSecret, "someone-else", "ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/api/whoami", "", http.StatusUnauthorized},
		{"not bearer", "/api/whoami", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/api/whoami", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"expired", "/api/whoami", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "/api/whoami", "Bearer " + foreign, http.StatusUnauthorized},
		{"wrong issuer", "/api/whoami", "Bearer " + otherIssuer, http.StatusUnauthorized},
		{"member", "/api/whoami", "Bearer " + member, http.StatusOK},
		{"lowercase scheme", "/api/whoami", "bearer " + member, http.StatusOK},
		{"member on admin route", "/api/admin", "Bearer " + member, http.StatusForbidden},
		{"admin on admin route", "/api/admin", "Bearer " + admin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(r, tt.path, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestParseToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, "", signed)
	assert.Error(t, err)
}
