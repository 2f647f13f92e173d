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

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret"

func newTestAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, service.AuthConfig{
		AccessTokenSecret: testSecret,
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "biodiv-api",
	})
}

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func testClaims(role models.UserRole) *models.JWTClaims {
	now := time.Now().UTC()
	return &models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "biodiv-api",
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

func runRequest(handlers []gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router := gin.New()
	router.GET("/protected/:id", append(handlers, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})...)
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAcceptsValidToken(t *testing.T) {
	auth := newTestAuthService()
	token := signToken(t, testSecret, testClaims(models.RoleBiologist))

	req := httptest.NewRequest(http.MethodGet, "/protected/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := runRequest([]gin.HandlerFunc{JWT(auth)}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	auth := newTestAuthService()

	req := httptest.NewRequest(http.MethodGet, "/protected/1", nil)
	rec := runRequest([]gin.HandlerFunc{JWT(auth)}, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	auth := newTestAuthService()

	req := httptest.NewRequest(http.MethodGet, "/protected/1", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := runRequest([]gin.HandlerFunc{JWT(auth)}, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTRejectsForeignSignature(t *testing.T) {
	auth := newTestAuthService()
	token := signToken(t, "other-secret", testClaims(models.RoleBiologist))

	req := httptest.NewRequest(http.MethodGet, "/protected/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := runRequest([]gin.HandlerFunc{JWT(auth)}, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalJWTDoesNotBlock(t *testing.T) {
	auth := newTestAuthService()

	req := httptest.NewRequest(http.MethodGet, "/protected/1", nil)
	rec := runRequest([]gin.HandlerFunc{OptionalJWT(auth)}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	auth := newTestAuthService()
	token := signToken(t, testSecret, testClaims(models.RoleDataAdmin))

	req := httptest.NewRequest(http.MethodGet, "/protected/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := runRequest([]gin.HandlerFunc{
		JWT(auth),
		RequireRoles(models.RoleSystemAdmin, models.RoleDataAdmin),
	}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACRejectsUnlistedRole(t *testing.T) {
	auth := newTestAuthService()
	token := signToken(t, testSecret, testClaims(models.RoleBiologist))

	req := httptest.NewRequest(http.MethodGet, "/protected/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := runRequest([]gin.HandlerFunc{
		JWT(auth),
		RequireRoles(models.RoleSystemAdmin),
	}, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRBACAllowsSelfAccess(t *testing.T) {
	auth := newTestAuthService()
	token := signToken(t, testSecret, testClaims(models.RoleBiologist))

	req := httptest.NewRequest(http.MethodGet, "/protected/user-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := runRequest([]gin.HandlerFunc{
		JWT(auth),
		RBAC("SELF", string(models.RoleSystemAdmin)),
	}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRBACRequiresAuthentication(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected/1", nil)
	rec := runRequest([]gin.HandlerFunc{RequireRoles(models.RoleSystemAdmin)}, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
