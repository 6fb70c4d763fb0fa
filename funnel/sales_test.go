package funnel_test

import (
	"context"
	"strings"
	"testing"

	"quizfunnel/api/funnel"
	"quizfunnel/api/funnel/funneltest"
	"quizfunnel/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedPayment(orderID string) models.PaymentWebhook {
	return models.PaymentWebhook{
		OrderID:  orderID,
		Status:   "PAID",
		Product:  "marriage-rescue",
		Amount:   97,
		Customer: models.PaymentCustomer{Name: "Ana", Email: "Ana@Example.com"},
		Tracking: models.PaymentTracking{Src: "facebook", Sck: "tid-42"},
	}
}

func TestRecordPaymentIsIdempotent(t *testing.T) {
	store := funneltest.NewMemStore()
	svc := funnel.NewSalesService(store, store, "BR")
	ctx := context.Background()

	res, err := svc.RecordPayment(ctx, approvedPayment("ord-1"))
	require.NoError(t, err)
	assert.Equal(t, funnel.PaymentRecorded, res.Action)
	assert.Equal(t, models.SaleApproved, res.Status)

	res, err = svc.RecordPayment(ctx, approvedPayment("ord-1"))
	require.NoError(t, err)
	assert.Equal(t, funnel.PaymentDuplicate, res.Action)

	sales := store.Sales()
	require.Len(t, sales, 1)
	assert.Equal(t, "ana@example.com", sales[0].CustomerEmail)
	assert.Equal(t, "BRL", sales[0].Currency)
	assert.Equal(t, "tid-42", sales[0].TrafficID)
}

func TestRecordPaymentTagsBuyerLead(t *testing.T) {
	store := funneltest.NewMemStore()
	store.PutLead(models.Lead{ID: "lead-1", Name: "Ana", Email: "ana@example.com", IsValid: true})
	svc := funnel.NewSalesService(store, store, "BR")

	res, err := svc.RecordPayment(context.Background(), approvedPayment("ord-1"))
	require.NoError(t, err)
	assert.Equal(t, "lead-1", res.LeadID)

	leads := store.Leads()
	require.Len(t, leads, 1)
	assert.Contains(t, leads[0].Tags, "buyer")
}

func TestRecordPaymentStatusChanges(t *testing.T) {
	store := funneltest.NewMemStore()
	svc := funnel.NewSalesService(store, store, "BR")
	ctx := context.Background()

	res, err := svc.RecordPayment(ctx, models.PaymentWebhook{OrderID: "ord-9", Status: "refunded"})
	require.NoError(t, err)
	assert.Equal(t, funnel.PaymentIgnored, res.Action)
	assert.Empty(t, store.Sales())

	_, err = svc.RecordPayment(ctx, approvedPayment("ord-9"))
	require.NoError(t, err)

	res, err = svc.RecordPayment(ctx, models.PaymentWebhook{OrderID: "ord-9", Status: "chargeback"})
	require.NoError(t, err)
	assert.Equal(t, funnel.PaymentStatusUpdated, res.Action)
	assert.Equal(t, models.SaleChargeback, store.Sales()[0].Status)

	res, err = svc.RecordPayment(ctx, models.PaymentWebhook{OrderID: "ord-9", Status: "waiting_payment"})
	require.NoError(t, err)
	assert.Equal(t, funnel.PaymentIgnored, res.Action)
}

func TestRecordPaymentRequiresOrderID(t *testing.T) {
	store := funneltest.NewMemStore()
	svc := funnel.NewSalesService(store, store, "BR")

	_, err := svc.RecordPayment(context.Background(), models.PaymentWebhook{Status: "paid"})
	assert.ErrorIs(t, err, funnel.ErrMissingOrderID)
}

func TestSubmitComment(t *testing.T) {
	store := funneltest.NewMemStore()
	ctx := context.Background()

	c, err := funnel.SubmitComment(ctx, store, models.CommentRequest{SessionID: sessionToken, Name: " Ana ", Text: " It helped "})
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.Name)
	assert.Equal(t, "It helped", c.Text)
	assert.NotZero(t, c.ID)

	_, err = funnel.SubmitComment(ctx, store, models.CommentRequest{Name: "Ana", Text: "   "})
	assert.ErrorIs(t, err, funnel.ErrInvalidComment)

	_, err = funnel.SubmitComment(ctx, store, models.CommentRequest{Name: "Ana", Text: strings.Repeat("a", 1001)})
	assert.ErrorIs(t, err, funnel.ErrInvalidComment)

	assert.Len(t, store.Comments(), 1)
}
