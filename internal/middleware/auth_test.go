package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/adenafil/campus-timetable-api/internal/models"
	"github.com/adenafil/campus-timetable-api/internal/service"
)

func authFixture(t *testing.T) (*service.AuthService, string) {
	t.Helper()
	svc := service.NewAuthService(nil, nil, service.AuthConfig{Secret: "fixture-secret"})
	resp, err := svc.IssueToken(models.TokenRequest{Subject: "scheduler-bot", Role: models.RoleScheduler})
	require.NoError(t, err)
	return svc, resp.Token
}

func claimsEcho() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextUserKey); ok {
			c.String(http.StatusOK, "authenticated")
			return
		}
		c.String(http.StatusOK, "anonymous")
	}
}

func TestJWTRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, token := authFixture(t)

	router := gin.New()
	router.GET("/protected", JWT(svc), claimsEcho())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "authenticated", w.Body.String())
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, token := authFixture(t)

	router := gin.New()
	router.GET("/protected", JWT(svc), claimsEcho())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalJWTPassesWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, token := authFixture(t)

	router := gin.New()
	router.GET("/open", OptionalJWT(svc), claimsEcho())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/open", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "anonymous", w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "authenticated", w.Body.String())
}

func TestOptionalJWTIgnoresInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := authFixture(t)

	router := gin.New()
	router.GET("/open", OptionalJWT(svc), claimsEcho())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer expired-or-garbage")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "anonymous", w.Body.String())
}
