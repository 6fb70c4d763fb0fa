package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"quizfunnel/api/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Principals stored under the "principal" context key.
const (
	PrincipalAnon       = "anon"
	PrincipalService    = "service"
	PrincipalAutomation = "automation"
	PrincipalOperator   = "operator"
)

const (
	APIKeyHeader        = "apikey"
	AutomationKeyHeader = "X-API-KEY"
	jwtCookie           = "jwt_token"
)

type Keys struct {
	Anon       string
	Service    string
	Automation string
}

// Auth checks the three key kinds and operator JWTs.
type Auth struct {
	issuer *utils.TokenIssuer
	keys   Keys
}

func NewAuth(issuer *utils.TokenIssuer, keys Keys) *Auth {
	return &Auth{issuer: issuer, keys: keys}
}

// KeyEquals compares in constant time; an unset key never matches.
func KeyEquals(got, want string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// AnonRequired guards the public funnel endpoints. The service key is
// accepted wherever the anonymous key is. With no anonymous key configured
// the endpoints are open.
func (a *Auth) AnonRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.keys.Anon == "" {
			c.Set("principal", PrincipalAnon)
			c.Next()
			return
		}
		key := c.GetHeader(APIKeyHeader)
		switch {
		case KeyEquals(key, a.keys.Anon):
			c.Set("principal", PrincipalAnon)
		case KeyEquals(key, a.keys.Service):
			c.Set("principal", PrincipalService)
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: missing or invalid apikey"})
			return
		}
		c.Next()
	}
}

// OperatorRequired admits the automation key, the service-role key or an
// operator JWT.
func (a *Auth) OperatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if KeyEquals(c.GetHeader(AutomationKeyHeader), a.keys.Automation) {
			c.Set("principal", PrincipalAutomation)
			c.Next()
			return
		}
		if KeyEquals(c.GetHeader(APIKeyHeader), a.keys.Service) {
			c.Set("principal", PrincipalService)
			c.Next()
			return
		}
		a.requireJWT(c)
	}
}

// OperatorJWTRequired admits operator JWTs only; API keys are rejected.
func (a *Auth) OperatorJWTRequired() gin.HandlerFunc {
	return a.requireJWT
}

func (a *Auth) requireJWT(c *gin.Context) {
	tokenString, err := c.Cookie(jwtCookie)
	if err != nil || tokenString == "" {
		tokenString = bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
			return
		}
	}

	claims, err := a.issuer.ValidateJWT(tokenString)
	if err != nil {
		log.WithError(err).Debug("Rejected operator token")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
		return
	}

	c.Set("principal", PrincipalOperator)
	c.Set("operator_id", claims.OperatorID)
	c.Set("operator_email", claims.Email)
	c.Next()
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
