// Package funnel records visitor progress through the quiz funnel: session
// upserts, deduplicated events, abandonment signals and their reconciliation
// once the visitor converts into a lead.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizfunnel/api/geo"
	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Store is the persistence the tracker needs. Every method is a single round
// trip; check-then-write sequences are not wrapped in a transaction.
type Store interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
	SaveSession(ctx context.Context, s *models.Session) error

	// HasRecentEvent matches session and type; step is only compared when non-empty.
	HasRecentEvent(ctx context.Context, sessionToken, eventType, step string, since time.Time) (bool, error)
	InsertEvent(ctx context.Context, e *models.FunnelEvent) error

	HasValidLead(ctx context.Context, keys models.VisitorKeys) (bool, error)
	FindRecentAbandonment(ctx context.Context, fingerprint string, since time.Time) (*models.Abandonment, error)
	InsertAbandonment(ctx context.Context, a *models.Abandonment) error
	UpdateAbandonment(ctx context.Context, a *models.Abandonment) error
	// DeleteAbandonments removes rows matching any non-empty key.
	DeleteAbandonments(ctx context.Context, keys models.VisitorKeys) (int64, error)
}

// EventMirror receives stored events for the analytics warehouse.
type EventMirror interface {
	MirrorEvents(ctx context.Context, events []models.FunnelEvent) error
}

type Options struct {
	SessionTTL        time.Duration
	EventDedupWindow  time.Duration
	VisitDedupWindow  time.Duration
	AbandonmentWindow time.Duration
	GeoTimeout        time.Duration

	Policy     *utils.AttributionPolicy
	Geolocator geo.Geolocator
	Mirror     EventMirror
	Now        func() time.Time
}

func DefaultOptions() Options {
	return Options{
		SessionTTL:        time.Hour,
		EventDedupWindow:  time.Hour,
		VisitDedupWindow:  24 * time.Hour,
		AbandonmentWindow: 24 * time.Hour,
		GeoTimeout:        1500 * time.Millisecond,
		Policy:            utils.NewAttributionPolicy([]string{"direct", "unknown", "none", "(none)", "null", "undefined"}),
		Now:               time.Now,
	}
}

type Tracker struct {
	store Store
	opts  Options
}

func NewTracker(store Store, opts Options) *Tracker {
	def := DefaultOptions()
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = def.SessionTTL
	}
	if opts.EventDedupWindow <= 0 {
		opts.EventDedupWindow = def.EventDedupWindow
	}
	if opts.VisitDedupWindow <= 0 {
		opts.VisitDedupWindow = def.VisitDedupWindow
	}
	if opts.AbandonmentWindow <= 0 {
		opts.AbandonmentWindow = def.AbandonmentWindow
	}
	if opts.GeoTimeout <= 0 {
		opts.GeoTimeout = def.GeoTimeout
	}
	if opts.Policy == nil {
		opts.Policy = def.Policy
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Tracker{store: store, opts: opts}
}

func (t *Tracker) now() time.Time {
	return t.opts.Now().UTC()
}

func (t *Tracker) dedupWindow(eventType string) time.Duration {
	if models.IsVisitEvent(eventType) {
		return t.opts.VisitDedupWindow
	}
	return t.opts.EventDedupWindow
}

// TrackEvent upserts the session and stores the event unless an equal event
// was already stored for the session inside the dedup window. Duplicates and
// bot traffic still succeed.
func (t *Tracker) TrackEvent(ctx context.Context, visitor models.VisitorContext, req models.TrackEventRequest) (*models.TrackResult, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.EventType = strings.TrimSpace(req.EventType)
	if req.SessionID == "" {
		return nil, ErrMissingSession
	}
	if !utils.IsValidSessionToken(req.SessionID) {
		return nil, ErrInvalidSession
	}
	if !models.IsKnownEventType(req.EventType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, req.EventType)
	}

	res := &models.TrackResult{SessionID: req.SessionID, Fingerprint: visitor.Fingerprint}
	if utils.IsBotUserAgent(visitor.UserAgent) {
		botRequestsIgnored.Inc()
		res.Ignored = true
		return res, nil
	}

	logCtx := log.WithFields(log.Fields{"session_id": req.SessionID, "event_type": req.EventType})
	now := t.now()

	sess, created, err := t.upsertSession(ctx, visitor, req, now)
	if err != nil {
		return nil, err
	}
	res.NewSession = created

	step := ""
	if req.EventType == models.EventQuestionView {
		step = req.Step
	}
	dup, err := t.store.HasRecentEvent(ctx, req.SessionID, req.EventType, step, now.Add(-t.dedupWindow(req.EventType)))
	if err != nil {
		return nil, fmt.Errorf("failed to check recent events: %w", err)
	}
	if dup {
		eventsDeduplicated.WithLabelValues(req.EventType).Inc()
		logCtx.Debug("Skipped duplicate funnel event")
		res.Deduplicated = true
		return res, nil
	}

	ev := &models.FunnelEvent{
		EventID:       uuid.NewString(),
		EventType:     req.EventType,
		SessionToken:  req.SessionID,
		Fingerprint:   visitor.Fingerprint,
		Step:          req.Step,
		Product:       firstNonEmpty(req.Product, sess.Product),
		TrafficSource: sess.TrafficSource,
		PagePath:      req.PagePath,
		EventData:     req.EventData,
		CreatedAt:     now,
	}
	if err := t.store.InsertEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to insert funnel event: %w", err)
	}
	eventsRecorded.WithLabelValues(req.EventType).Inc()
	res.EventID = ev.EventID

	t.mirror(ctx, *ev)
	return res, nil
}

// upsertSession writes the full payload for a new session. An existing row,
// expired or not, keeps its attribution unless the policy ranks the incoming
// value higher; expiry only restarts the session lifetime and location.
func (t *Tracker) upsertSession(ctx context.Context, visitor models.VisitorContext, req models.TrackEventRequest, now time.Time) (*models.Session, bool, error) {
	existing, err := t.store.GetSession(ctx, req.SessionID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to load session: %w", err)
	}

	step := firstNonEmpty(req.Step, req.EventType)

	if existing == nil {
		loc := geo.LookupOrUnknown(ctx, t.opts.Geolocator, visitor.IPAddress, t.opts.GeoTimeout)
		sess := &models.Session{
			Token:       req.SessionID,
			Fingerprint: visitor.Fingerprint,
			Attribution: trimAttribution(req.Attribution),
			CurrentStep: step,
			Product:     req.Product,
			Country:     loc.Country,
			City:        loc.City,
			UserAgent:   visitor.UserAgent,
			IPAddress:   visitor.IPAddress,
			CreatedAt:   now,
			LastSeenAt:  now,
			ExpiresAt:   now.Add(t.opts.SessionTTL),
		}
		if err := t.store.SaveSession(ctx, sess); err != nil {
			return nil, false, fmt.Errorf("failed to create session: %w", err)
		}
		return sess, true, nil
	}

	merged, changed := t.opts.Policy.MergeAttribution(existing.Attribution, req.Attribution)
	if changed {
		log.WithFields(log.Fields{
			"session_id": existing.Token,
			"from":       existing.TrafficSource,
			"to":         merged.TrafficSource,
		}).Info("Upgraded session attribution")
	}
	existing.Attribution = merged
	existing.CurrentStep = step
	if existing.Product == "" {
		existing.Product = req.Product
	}
	if existing.Fingerprint == "" {
		existing.Fingerprint = visitor.Fingerprint
	}

	restarted := existing.Expired(now)
	if restarted {
		loc := geo.LookupOrUnknown(ctx, t.opts.Geolocator, visitor.IPAddress, t.opts.GeoTimeout)
		existing.Country = loc.Country
		existing.City = loc.City
		existing.UserAgent = visitor.UserAgent
		existing.IPAddress = visitor.IPAddress
		existing.CreatedAt = now
	}
	existing.LastSeenAt = now
	existing.ExpiresAt = now.Add(t.opts.SessionTTL)

	if err := t.store.SaveSession(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("failed to update session: %w", err)
	}
	return existing, restarted, nil
}

func (t *Tracker) mirror(ctx context.Context, ev models.FunnelEvent) {
	if t.opts.Mirror == nil {
		return
	}
	if err := t.opts.Mirror.MirrorEvents(ctx, []models.FunnelEvent{ev}); err != nil {
		log.WithError(err).WithField("event_id", ev.EventID).Warn("Failed to mirror funnel event")
	}
}

// TrackAbandonment records where a visitor left the funnel. A visitor already
// converted into a valid lead has their abandonment rows removed instead; a
// row inside the abandonment window is updated in place; otherwise a new row
// is inserted.
func (t *Tracker) TrackAbandonment(ctx context.Context, visitor models.VisitorContext, req models.AbandonmentRequest) (*models.AbandonmentResult, error) {
	req.Step = strings.TrimSpace(req.Step)
	if req.Step == "" {
		return nil, ErrMissingStep
	}
	if req.SessionID != "" && !utils.IsValidSessionToken(req.SessionID) {
		return nil, ErrInvalidSession
	}

	logCtx := log.WithFields(log.Fields{"fingerprint": visitor.Fingerprint, "step": req.Step})
	now := t.now()
	keys := models.VisitorKeys{SessionToken: req.SessionID, Fingerprint: visitor.Fingerprint}

	converted, err := t.store.HasValidLead(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to check lead conversion: %w", err)
	}
	if converted {
		removed, err := t.store.DeleteAbandonments(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("failed to delete abandonments: %w", err)
		}
		abandonments.WithLabelValues(models.AbandonmentSuppressed).Inc()
		logCtx.WithField("removed", removed).Info("Visitor already converted, abandonment suppressed")
		return &models.AbandonmentResult{Action: models.AbandonmentSuppressed, Removed: removed}, nil
	}

	existing, err := t.store.FindRecentAbandonment(ctx, visitor.Fingerprint, now.Add(-t.opts.AbandonmentWindow))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to find recent abandonment: %w", err)
	}

	if existing != nil {
		existing.Step = req.Step
		existing.Reason = req.Reason
		existing.TimeOnPageSec = req.TimeOnPageSec
		existing.SessionToken = firstNonEmpty(req.SessionID, existing.SessionToken)
		existing.TrafficID = firstNonEmpty(req.TrafficID, existing.TrafficID)
		existing.UpdatedAt = now
		if err := t.store.UpdateAbandonment(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update abandonment: %w", err)
		}
		abandonments.WithLabelValues(models.AbandonmentUpdated).Inc()
		return &models.AbandonmentResult{Action: models.AbandonmentUpdated, AbandonmentID: existing.ID}, nil
	}

	a := &models.Abandonment{
		Fingerprint:   visitor.Fingerprint,
		SessionToken:  req.SessionID,
		TrafficID:     req.TrafficID,
		TrafficSource: req.TrafficSource,
		Product:       req.Product,
		Step:          req.Step,
		Reason:        req.Reason,
		TimeOnPageSec: req.TimeOnPageSec,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := t.store.InsertAbandonment(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to insert abandonment: %w", err)
	}
	abandonments.WithLabelValues(models.AbandonmentCreated).Inc()
	return &models.AbandonmentResult{Action: models.AbandonmentCreated, AbandonmentID: a.ID}, nil
}

// ReconcileConversion deletes abandonment rows recorded under any of the
// converted visitor's keys in a single statement.
func (t *Tracker) ReconcileConversion(ctx context.Context, keys models.VisitorKeys) (int64, error) {
	if keys.Empty() {
		return 0, ErrNoVisitorKey
	}
	removed, err := t.store.DeleteAbandonments(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile abandonments: %w", err)
	}
	abandonmentsReconciled.Add(float64(removed))
	return removed, nil
}

// SessionAttribution returns the stored attribution of a live session.
func (t *Tracker) SessionAttribution(ctx context.Context, token string) (models.Attribution, bool) {
	if token == "" {
		return models.Attribution{}, false
	}
	sess, err := t.store.GetSession(ctx, token)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.WithError(err).WithField("session_id", token).Warn("Failed to load session attribution")
		}
		return models.Attribution{}, false
	}
	return sess.Attribution, true
}

func (t *Tracker) Policy() *utils.AttributionPolicy {
	return t.opts.Policy
}

func trimAttribution(a models.Attribution) models.Attribution {
	return models.Attribution{
		TrafficSource: strings.TrimSpace(a.TrafficSource),
		CampaignID:    strings.TrimSpace(a.CampaignID),
		TrafficID:     strings.TrimSpace(a.TrafficID),
		UTMSource:     strings.TrimSpace(a.UTMSource),
		UTMMedium:     strings.TrimSpace(a.UTMMedium),
		UTMCampaign:   strings.TrimSpace(a.UTMCampaign),
		UTMContent:    strings.TrimSpace(a.UTMContent),
		UTMTerm:       strings.TrimSpace(a.UTMTerm),
		Referrer:      strings.TrimSpace(a.Referrer),
		LandingPage:   strings.TrimSpace(a.LandingPage),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
