package handlers

import (
	"context"
	"errors"
	"net/http"

	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const jwtCookie = "jwt_token"

type OperatorStore interface {
	CreateOperator(ctx context.Context, email string, hashedPassword []byte) (*models.Operator, error)
	GetOperatorByEmail(ctx context.Context, email string) (*models.Operator, error)
}

type AuthHandlers struct {
	Operators   OperatorStore
	Tokens      *utils.TokenIssuer
	AllowSignup bool
}

func NewAuthHandlers(operators OperatorStore, tokens *utils.TokenIssuer, allowSignup bool) *AuthHandlers {
	return &AuthHandlers{Operators: operators, Tokens: tokens, AllowSignup: allowSignup}
}

// Signup registers a dashboard operator. It is closed unless explicitly enabled.
func (h *AuthHandlers) Signup(c *gin.Context) {
	if !h.AllowSignup {
		c.JSON(http.StatusForbidden, gin.H{"error": "Signup is disabled"})
		return
	}

	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).WithField("email", req.Email).Error("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	op, err := h.Operators.CreateOperator(ctx, req.Email, hashedPassword)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Operator with this email already exists"})
			return
		}
		respondError(c, err, "Failed to register operator")
		return
	}

	log.WithFields(log.Fields{"operator_id": op.ID, "email": op.Email}).Info("Operator registered")
	c.JSON(http.StatusCreated, gin.H{"message": "Operator registered successfully", "email": op.Email})
}

func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	op, err := h.Operators.GetOperatorByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			respondError(c, err, "Failed to authenticate")
			return
		}
		log.WithField("email", req.Email).Info("Login failed: unknown operator")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(op.HashedPassword, []byte(req.Password)); err != nil {
		log.WithField("email", req.Email).Info("Login failed: password mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Tokens.GenerateJWT(op)
	if err != nil {
		log.WithError(err).WithField("operator_id", op.ID).Error("Failed to generate JWT")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(jwtCookie, token, int(h.Tokens.TTL().Seconds()), "/", "", false, true)

	log.WithFields(log.Fields{"operator_id": op.ID, "email": op.Email}).Info("Operator logged in")
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"email":   op.Email,
		"token":   token,
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(jwtCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
