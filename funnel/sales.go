package funnel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	log "github.com/sirupsen/logrus"
)

const buyerTag = "buyer"

// Outcomes of a payment notification.
const (
	PaymentRecorded      = "recorded"
	PaymentDuplicate     = "duplicate"
	PaymentStatusUpdated = "status_updated"
	PaymentIgnored       = "ignored"
)

type SaleStore interface {
	GetSaleByOrder(ctx context.Context, orderID string) (*models.Sale, error)
	// UpsertSale inserts the sale or overwrites the row with the same order id.
	UpsertSale(ctx context.Context, s *models.Sale) error
	UpdateSaleStatus(ctx context.Context, orderID, status string) error
}

type SalesService struct {
	sales       SaleStore
	leads       LeadStore
	phoneRegion string
}

func NewSalesService(sales SaleStore, leads LeadStore, phoneRegion string) *SalesService {
	return &SalesService{sales: sales, leads: leads, phoneRegion: phoneRegion}
}

// RecordPayment applies a provider notification. Approved payments are stored
// once per order id and tag the matching lead as a buyer; refunds and
// chargebacks only move the status of a sale already on record.
func (s *SalesService) RecordPayment(ctx context.Context, w models.PaymentWebhook) (*models.PaymentResult, error) {
	w.OrderID = strings.TrimSpace(w.OrderID)
	if w.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	status := w.NormalizedStatus()
	res := &models.PaymentResult{OrderID: w.OrderID, Status: status}
	logCtx := log.WithFields(log.Fields{"order_id": w.OrderID, "status": status})

	switch status {
	case models.SaleApproved:
		existing, err := s.sales.GetSaleByOrder(ctx, w.OrderID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up sale: %w", err)
		}
		if existing != nil && existing.Status == models.SaleApproved {
			res.Action = PaymentDuplicate
			return res, nil
		}

		sale := s.saleFromWebhook(w, status)
		if err := s.sales.UpsertSale(ctx, sale); err != nil {
			return nil, fmt.Errorf("failed to store sale: %w", err)
		}
		salesRecorded.WithLabelValues(status).Inc()
		res.Action = PaymentRecorded
		res.LeadID = s.tagBuyer(ctx, sale.CustomerEmail)
		logCtx.WithField("amount", sale.Amount).Info("Sale recorded")

	case models.SaleRefunded, models.SaleChargeback, models.SaleCanceled:
		err := s.sales.UpdateSaleStatus(ctx, w.OrderID, status)
		if errors.Is(err, models.ErrNotFound) {
			logCtx.Warn("Status change for unknown order ignored")
			res.Action = PaymentIgnored
			return res, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update sale status: %w", err)
		}
		salesRecorded.WithLabelValues(status).Inc()
		res.Action = PaymentStatusUpdated

	default:
		logCtx.Debug("Payment status not tracked")
		res.Action = PaymentIgnored
	}
	return res, nil
}

func (s *SalesService) saleFromWebhook(w models.PaymentWebhook, status string) *models.Sale {
	now := time.Now().UTC()
	return &models.Sale{
		OrderID:       w.OrderID,
		Status:        status,
		Product:       strings.TrimSpace(w.Product),
		Amount:        w.Amount,
		Currency:      strings.ToUpper(firstNonEmpty(strings.TrimSpace(w.Currency), "BRL")),
		CustomerName:  utils.Truncate(w.Customer.Name, 200),
		CustomerEmail: strings.ToLower(strings.TrimSpace(w.Customer.Email)),
		CustomerPhone: utils.NormalizePhone(w.Customer.Phone, s.phoneRegion),
		TrafficSource: strings.TrimSpace(w.Tracking.Src),
		TrafficID:     strings.TrimSpace(w.Tracking.Sck),
		UTMSource:     strings.TrimSpace(w.Tracking.UTMSource),
		UTMMedium:     strings.TrimSpace(w.Tracking.UTMMedium),
		UTMCampaign:   strings.TrimSpace(w.Tracking.UTMCampaign),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// tagBuyer is best effort; a sale without a matching lead is normal.
func (s *SalesService) tagBuyer(ctx context.Context, email string) string {
	if email == "" {
		return ""
	}
	lead, err := s.leads.GetLead(ctx, models.LeadQuery{Email: email})
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.WithError(err).Warn("Failed to look up buyer lead")
		}
		return ""
	}
	if err := s.leads.AddTags(ctx, lead.ID, []string{buyerTag}); err != nil {
		log.WithError(err).WithField("lead_id", lead.ID).Warn("Failed to tag buyer")
		return ""
	}
	return lead.ID
}
