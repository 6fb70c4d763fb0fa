package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testKeys = Keys{Anon: "anon-key", Service: "service-key", Automation: "automation-key"}

func newRouter(t *testing.T) (*gin.Engine, *utils.TokenIssuer) {
	t.Helper()
	issuer := utils.NewTokenIssuer("test-secret", time.Hour)
	auth := NewAuth(issuer, testKeys)

	r := gin.New()
	echo := func(c *gin.Context) { c.String(http.StatusOK, c.GetString("principal")) }
	r.GET("/public", auth.AnonRequired(), echo)
	r.GET("/stats", auth.OperatorRequired(), echo)
	r.DELETE("/data", auth.OperatorJWTRequired(), echo)
	return r, issuer
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnonRequired(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodGet, "/public", map[string]string{"apikey": "anon-key"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, PrincipalAnon, w.Body.String())

	w = do(r, http.MethodGet, "/public", map[string]string{"apikey": "service-key"})
	assert.Equal(t, PrincipalService, w.Body.String())

	w = do(r, http.MethodGet, "/public", map[string]string{"apikey": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/public", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperatorRequired(t *testing.T) {
	r, issuer := newRouter(t)
	token, err := issuer.GenerateJWT(&models.Operator{ID: 7, Email: "op@example.com"})
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/stats", map[string]string{"X-API-KEY": "automation-key"})
	assert.Equal(t, PrincipalAutomation, w.Body.String())

	w = do(r, http.MethodGet, "/stats", map[string]string{"apikey": "service-key"})
	assert.Equal(t, PrincipalService, w.Body.String())

	w = do(r, http.MethodGet, "/stats", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, PrincipalOperator, w.Body.String())

	w = do(r, http.MethodGet, "/stats", map[string]string{"apikey": "anon-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperatorJWTRequiredRejectsKeys(t *testing.T) {
	r, issuer := newRouter(t)

	w := do(r, http.MethodDelete, "/data", map[string]string{"X-API-KEY": "automation-key", "apikey": "service-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := issuer.GenerateJWT(&models.Operator{ID: 7, Email: "op@example.com"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/data", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	other := utils.NewTokenIssuer("other-secret", time.Hour)
	forged, err := other.GenerateJWT(&models.Operator{ID: 1})
	require.NoError(t, err)
	w = do(r, http.MethodDelete, "/data", map[string]string{"Authorization": "Bearer " + forged})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnonRequiredOpenWithoutKey(t *testing.T) {
	auth := NewAuth(utils.NewTokenIssuer("s", time.Hour), Keys{})
	r := gin.New()
	r.GET("/public", auth.AnonRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/public", nil).Code)
}

func TestKeyEquals(t *testing.T) {
	assert.True(t, KeyEquals("abc", "abc"))
	assert.False(t, KeyEquals("abc", "abd"))
	assert.False(t, KeyEquals("", ""))
	assert.False(t, KeyEquals("abc", ""))
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("https://quiz.example.com"))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodOptions, "/x", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://quiz.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
