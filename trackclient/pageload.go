package trackclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	log "github.com/sirupsen/logrus"
)

// PageLoad tracks one rendering of a funnel page. Its visit is sent at most
// once no matter how many times TrackVisit is called.
type PageLoad struct {
	client    *Client
	sessionID string
	attr      models.Attribution
	product   string

	visitOnce sync.Once
	visitRes  *models.TrackResult
	visitErr  error
}

// NewPageLoad starts a page load for sessionID, or for a fresh session when
// sessionID is empty.
func (c *Client) NewPageLoad(sessionID, product string, attr models.Attribution) *PageLoad {
	if sessionID == "" {
		sessionID = utils.GenerateSessionToken()
	}
	return &PageLoad{client: c, sessionID: sessionID, product: product, attr: attr}
}

func (p *PageLoad) SessionID() string {
	return p.sessionID
}

// TrackVisit sends the visit on the first call and returns that outcome on
// every call after it.
func (p *PageLoad) TrackVisit(ctx context.Context, pagePath string) (*models.TrackResult, error) {
	p.visitOnce.Do(func() {
		p.visitRes, p.visitErr = p.client.TrackEvent(ctx, models.TrackEventRequest{
			SessionID:   p.sessionID,
			EventType:   models.EventVisit,
			Product:     p.product,
			PagePath:    pagePath,
			Attribution: p.attr,
		})
		if p.visitErr != nil {
			logFailure(p.visitErr, log.Fields{"session_id": p.sessionID, "event_type": models.EventVisit})
		}
	})
	return p.visitRes, p.visitErr
}

func (p *PageLoad) Track(ctx context.Context, eventType, step string) (*models.TrackResult, error) {
	res, err := p.client.TrackEvent(ctx, models.TrackEventRequest{
		SessionID:   p.sessionID,
		EventType:   eventType,
		Step:        step,
		Product:     p.product,
		Attribution: p.attr,
	})
	if err != nil {
		logFailure(err, log.Fields{"session_id": p.sessionID, "event_type": eventType})
	}
	return res, err
}

// ErrLeadTimeout is returned by Await when no lead id arrives in time.
var ErrLeadTimeout = errors.New("timed out waiting for lead id")

// LeadFuture hands the lead id from the form submission to whoever needs it
// next, typically the checkout redirect.
type LeadFuture struct {
	once   sync.Once
	done   chan struct{}
	leadID string
}

func NewLeadFuture() *LeadFuture {
	return &LeadFuture{done: make(chan struct{})}
}

// Resolve sets the lead id. Only the first call has an effect.
func (f *LeadFuture) Resolve(leadID string) {
	f.once.Do(func() {
		f.leadID = leadID
		close(f.done)
	})
}

// Await blocks until Resolve, ctx cancellation or timeout, whichever is first.
func (f *LeadFuture) Await(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case <-f.done:
		return f.leadID, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.leadID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", ErrLeadTimeout
	}
}

// SubmitLead sends the lead for this page load and resolves future with its id.
func (p *PageLoad) SubmitLead(ctx context.Context, req models.LeadRequest, future *LeadFuture) (*LeadReceipt, error) {
	if req.SessionID == "" {
		req.SessionID = p.sessionID
	}
	if req.Product == "" {
		req.Product = p.product
	}
	if req.Attribution == (models.Attribution{}) {
		req.Attribution = p.attr
	}
	receipt, err := p.client.SubmitLead(ctx, req)
	if err != nil {
		logFailure(err, log.Fields{"session_id": p.sessionID})
		return nil, err
	}
	if future != nil {
		future.Resolve(receipt.LeadID)
	}
	return receipt, nil
}
