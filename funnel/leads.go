package funnel

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"quizfunnel/api/diagnostic"
	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const maxTagLen = 64

type LeadStore interface {
	FindLeadBySession(ctx context.Context, sessionToken string) (*models.Lead, error)
	CreateLead(ctx context.Context, l *models.Lead) error
	UpdateLead(ctx context.Context, l *models.Lead) error
	AddTags(ctx context.Context, leadID string, tags []string) error
	GetLead(ctx context.Context, q models.LeadQuery) (*models.Lead, error)
}

type LeadService struct {
	leads       LeadStore
	tracker     *Tracker
	phoneRegion string
}

func NewLeadService(leads LeadStore, tracker *Tracker, phoneRegion string) *LeadService {
	return &LeadService{leads: leads, tracker: tracker, phoneRegion: phoneRegion}
}

// SubmitLead creates the lead for the session or upgrades the partial lead
// already captured for it, scores the quiz answers and tags the result. Once
// the lead is valid, abandonment rows left by the same visitor are removed.
func (s *LeadService) SubmitLead(ctx context.Context, visitor models.VisitorContext, req models.LeadRequest) (*models.Lead, error) {
	req.Product = strings.TrimSpace(req.Product)
	req.Name = utils.Truncate(req.Name, 200)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.SessionID = strings.TrimSpace(req.SessionID)

	if req.Product == "" {
		return nil, ErrMissingProduct
	}
	if req.SessionID != "" && !utils.IsValidSessionToken(req.SessionID) {
		return nil, ErrInvalidSession
	}
	if req.Email != "" {
		addr, err := mail.ParseAddress(req.Email)
		if err != nil || addr.Address != req.Email {
			return nil, ErrInvalidEmail
		}
	}
	phone := utils.NormalizePhone(req.Phone, s.phoneRegion)

	var lead *models.Lead
	if req.SessionID != "" {
		existing, err := s.leads.FindLeadBySession(ctx, req.SessionID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up session lead: %w", err)
		}
		lead = existing
	}

	created := lead == nil
	now := time.Now().UTC()
	if created {
		lead = &models.Lead{
			ID:           uuid.NewString(),
			SessionToken: req.SessionID,
			Fingerprint:  visitor.Fingerprint,
			Product:      req.Product,
			CreatedAt:    now,
		}
	}
	wasValid := lead.IsValid

	lead.Name = firstNonEmpty(req.Name, lead.Name)
	lead.Email = firstNonEmpty(req.Email, lead.Email)
	lead.Phone = firstNonEmpty(phone, lead.Phone)
	lead.Product = firstNonEmpty(req.Product, lead.Product)
	lead.Fingerprint = firstNonEmpty(lead.Fingerprint, visitor.Fingerprint)
	lead.IsValid = lead.Name != "" && lead.Email != ""
	lead.UpdatedAt = now

	sessionAttr, _ := s.tracker.SessionAttribution(ctx, req.SessionID)
	policy := s.tracker.Policy()
	lead.Attribution, _ = policy.MergeAttribution(lead.Attribution, sessionAttr)
	lead.Attribution, _ = policy.MergeAttribution(lead.Attribution, trimAttribution(req.Attribution))

	if len(req.Answers) > 0 {
		res := diagnostic.Analyze(req.Answers)
		lead.Answers = req.Answers
		lead.UrgencyLevel = res.UrgencyLevel
		lead.DiagnosticScore = res.Score
		lead.KeyFactors = res.KeyFactors
	}

	if created {
		if err := s.leads.CreateLead(ctx, lead); err != nil {
			return nil, fmt.Errorf("failed to create lead: %w", err)
		}
	} else if err := s.leads.UpdateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}

	tags := leadTags(lead, policy)
	if len(tags) > 0 {
		if err := s.leads.AddTags(ctx, lead.ID, tags); err != nil {
			log.WithError(err).WithField("lead_id", lead.ID).Warn("Failed to tag lead")
		} else {
			lead.Tags = mergeTags(lead.Tags, tags)
		}
	}

	leadsCaptured.WithLabelValues(firstNonEmpty(lead.UrgencyLevel, "none"), strconv.FormatBool(lead.IsValid)).Inc()

	if lead.IsValid && !wasValid {
		s.reconcile(ctx, lead)
	}
	return lead, nil
}

// reconcile is best effort: the lead is already stored.
func (s *LeadService) reconcile(ctx context.Context, lead *models.Lead) {
	logCtx := log.WithField("lead_id", lead.ID)
	removed, err := s.tracker.ReconcileConversion(ctx, models.VisitorKeys{
		SessionToken: lead.SessionToken,
		Fingerprint:  lead.Fingerprint,
		TrafficID:    lead.TrafficID,
	})
	switch {
	case errors.Is(err, ErrNoVisitorKey):
		logCtx.Warn("Lead has no visitor key, abandonment cleanup skipped")
	case err != nil:
		logCtx.WithError(err).Error("Abandonment cleanup failed")
	case removed > 0:
		logCtx.WithField("removed", removed).Info("Removed abandonments of converted visitor")
	}
}

// AssignTags normalizes and attaches tags to a lead.
func (s *LeadService) AssignTags(ctx context.Context, leadID string, tags []string) ([]string, error) {
	clean := NormalizeTags(tags)
	if len(clean) == 0 {
		return nil, ErrNoTags
	}
	if _, err := s.leads.GetLead(ctx, models.LeadQuery{ID: leadID}); err != nil {
		return nil, err
	}
	if err := s.leads.AddTags(ctx, leadID, clean); err != nil {
		return nil, fmt.Errorf("failed to add tags: %w", err)
	}
	return clean, nil
}

func (s *LeadService) Lookup(ctx context.Context, q models.LeadQuery) (*models.Lead, error) {
	q.ID = strings.TrimSpace(q.ID)
	q.Email = strings.ToLower(strings.TrimSpace(q.Email))
	q.Phone = utils.NormalizePhone(q.Phone, s.phoneRegion)
	if q.Empty() {
		return nil, ErrEmptyLeadQuery
	}
	return s.leads.GetLead(ctx, q)
}

// NormalizeTags lowercases, trims, truncates and de-duplicates tags, keeping order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(utils.Truncate(tag, maxTagLen))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func leadTags(lead *models.Lead, policy *utils.AttributionPolicy) []string {
	var tags []string
	if lead.UrgencyLevel != "" {
		tags = append(tags, "urgency:"+lead.UrgencyLevel)
	}
	if policy.IsStrong(lead.TrafficSource) {
		tags = append(tags, "source:"+lead.TrafficSource)
	}
	return NormalizeTags(tags)
}

func mergeTags(current, added []string) []string {
	return NormalizeTags(append(append([]string{}, current...), added...))
}
