package models

import (
	"strings"
	"time"
)

// Payment statuses as reported by the checkout provider.
const (
	SaleApproved   = "approved"
	SaleRefunded   = "refunded"
	SaleChargeback = "chargeback"
	SaleCanceled   = "canceled"
)

// Sale is a purchase reported by the payment provider webhook.
type Sale struct {
	ID            int64     `json:"id"`
	OrderID       string    `json:"orderId"`
	Status        string    `json:"status"`
	Product       string    `json:"product"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerPhone string    `json:"customerPhone"`
	TrafficSource string    `json:"trafficSource"`
	TrafficID     string    `json:"trafficId"`
	UTMSource     string    `json:"utmSource"`
	UTMMedium     string    `json:"utmMedium"`
	UTMCampaign   string    `json:"utmCampaign"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type PaymentCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PaymentTracking carries the src/sck parameters forwarded through checkout.
type PaymentTracking struct {
	Src         string `json:"src"`
	Sck         string `json:"sck"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
}

type PaymentWebhook struct {
	OrderID  string          `json:"orderId" binding:"required"`
	Status   string          `json:"status" binding:"required"`
	Product  string          `json:"product"`
	Amount   float64         `json:"amount"`
	Currency string          `json:"currency"`
	Customer PaymentCustomer `json:"customer"`
	Tracking PaymentTracking `json:"tracking"`
}

// NormalizedStatus maps provider status spellings onto the sale statuses.
// Unrecognized statuses are returned lowercased.
func (w PaymentWebhook) NormalizedStatus() string {
	s := strings.ToLower(strings.TrimSpace(w.Status))
	switch s {
	case "approved", "paid", "complete", "completed":
		return SaleApproved
	case "refunded", "refund":
		return SaleRefunded
	case "chargeback", "chargedback", "dispute":
		return SaleChargeback
	case "canceled", "cancelled":
		return SaleCanceled
	default:
		return s
	}
}

type PaymentResult struct {
	Action  string `json:"action"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	LeadID  string `json:"leadId,omitempty"`
}
