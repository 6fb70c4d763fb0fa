package handlers

import (
	"net/http"

	"quizfunnel/api/funnel"
	"quizfunnel/api/middleware"
	"quizfunnel/api/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const webhookSecretHeader = "X-Webhook-Secret"

type WebhookHandlers struct {
	Sales  *funnel.SalesService
	Secret string
}

func NewWebhookHandlers(sales *funnel.SalesService, secret string) *WebhookHandlers {
	return &WebhookHandlers{Sales: sales, Secret: secret}
}

// Payment receives the checkout provider notification. The shared secret
// comes in a header or, for providers that cannot set headers, the token
// query parameter.
func (h *WebhookHandlers) Payment(c *gin.Context) {
	secret := c.GetHeader(webhookSecretHeader)
	if secret == "" {
		secret = c.Query("token")
	}
	if !middleware.KeyEquals(secret, h.Secret) {
		log.WithField("ip", c.ClientIP()).Warn("Payment webhook rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.PaymentWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Sales.RecordPayment(ctx, req)
	if err != nil {
		respondError(c, err, "Failed to process payment")
		return
	}
	c.JSON(http.StatusOK, res)
}
