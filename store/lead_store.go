package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"quizfunnel/api/diagnostic"
	"quizfunnel/api/models"

	"github.com/lib/pq"
)

type LeadStore struct {
	db *sql.DB
}

func NewLeadStore(db *sql.DB) *LeadStore {
	return &LeadStore{db: db}
}

const leadColumns = `l.id, l.session_token, l.fingerprint, l.name, l.email, l.phone, l.product,
	l.traffic_source, l.campaign_id, l.traffic_id, l.utm_source, l.utm_medium, l.utm_campaign,
	l.utm_content, l.utm_term, l.referrer, l.landing_page,
	l.urgency_level, l.diagnostic_score, l.key_factors, l.answers, l.is_valid, l.created_at, l.updated_at,
	COALESCE((SELECT array_agg(t.tag ORDER BY t.created_at, t.tag) FROM lead_tags t WHERE t.lead_id = l.id), '{}')`

func scanLead(row rowScanner) (*models.Lead, error) {
	l := &models.Lead{}
	var (
		keyFactors pq.StringArray
		tags       pq.StringArray
		answers    []byte
	)
	err := row.Scan(
		&l.ID, &l.SessionToken, &l.Fingerprint, &l.Name, &l.Email, &l.Phone, &l.Product,
		&l.TrafficSource, &l.CampaignID, &l.TrafficID, &l.UTMSource, &l.UTMMedium, &l.UTMCampaign,
		&l.UTMContent, &l.UTMTerm, &l.Referrer, &l.LandingPage,
		&l.UrgencyLevel, &l.DiagnosticScore, &keyFactors, &answers, &l.IsValid, &l.CreatedAt, &l.UpdatedAt,
		&tags,
	)
	if err != nil {
		return nil, err
	}
	l.KeyFactors = []string(keyFactors)
	l.Tags = []string(tags)
	if len(answers) > 0 {
		var parsed []diagnostic.Answer
		if err := json.Unmarshal(answers, &parsed); err != nil {
			return nil, fmt.Errorf("failed to decode lead answers: %w", err)
		}
		l.Answers = parsed
	}
	return l, nil
}

func encodeAnswers(answers []diagnostic.Answer) (interface{}, error) {
	if len(answers) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode lead answers: %w", err)
	}
	return string(b), nil
}

func (s *LeadStore) getOne(ctx context.Context, cond string, arg interface{}) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads l WHERE ` + cond + ` ORDER BY l.updated_at DESC LIMIT 1`
	lead, err := scanLead(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

func (s *LeadStore) FindLeadBySession(ctx context.Context, sessionToken string) (*models.Lead, error) {
	return s.getOne(ctx, "l.session_token = $1", sessionToken)
}

// GetLead matches by id, then email, then phone, using the first key set.
func (s *LeadStore) GetLead(ctx context.Context, q models.LeadQuery) (*models.Lead, error) {
	switch {
	case q.ID != "":
		return s.getOne(ctx, "l.id = $1", q.ID)
	case q.Email != "":
		return s.getOne(ctx, "lower(l.email) = lower($1)", q.Email)
	case q.Phone != "":
		return s.getOne(ctx, "l.phone = $1", q.Phone)
	default:
		return nil, models.ErrNotFound
	}
}

func (s *LeadStore) CreateLead(ctx context.Context, l *models.Lead) error {
	answers, err := encodeAnswers(l.Answers)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO leads (
			id, session_token, fingerprint, name, email, phone, product,
			traffic_source, campaign_id, traffic_id, utm_source, utm_medium, utm_campaign,
			utm_content, utm_term, referrer, landing_page,
			urgency_level, diagnostic_score, key_factors, answers, is_valid, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`
	_, err = s.db.ExecContext(ctx, query,
		l.ID, l.SessionToken, l.Fingerprint, l.Name, l.Email, l.Phone, l.Product,
		l.TrafficSource, l.CampaignID, l.TrafficID, l.UTMSource, l.UTMMedium, l.UTMCampaign,
		l.UTMContent, l.UTMTerm, l.Referrer, l.LandingPage,
		l.UrgencyLevel, l.DiagnosticScore, pq.Array(nonNil(l.KeyFactors)), answers, l.IsValid, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (s *LeadStore) UpdateLead(ctx context.Context, l *models.Lead) error {
	answers, err := encodeAnswers(l.Answers)
	if err != nil {
		return err
	}
	query := `
		UPDATE leads SET
			fingerprint = $2, name = $3, email = $4, phone = $5, product = $6,
			traffic_source = $7, campaign_id = $8, traffic_id = $9, utm_source = $10, utm_medium = $11,
			utm_campaign = $12, utm_content = $13, utm_term = $14, referrer = $15, landing_page = $16,
			urgency_level = $17, diagnostic_score = $18, key_factors = $19, answers = $20,
			is_valid = $21, updated_at = $22
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		l.ID, l.Fingerprint, l.Name, l.Email, l.Phone, l.Product,
		l.TrafficSource, l.CampaignID, l.TrafficID, l.UTMSource, l.UTMMedium,
		l.UTMCampaign, l.UTMContent, l.UTMTerm, l.Referrer, l.LandingPage,
		l.UrgencyLevel, l.DiagnosticScore, pq.Array(nonNil(l.KeyFactors)), answers,
		l.IsValid, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddTags is idempotent per (lead, tag).
func (s *LeadStore) AddTags(ctx context.Context, leadID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	query := `
		INSERT INTO lead_tags (lead_id, tag)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (lead_id, tag) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, leadID, pq.Array(tags)); err != nil {
		return fmt.Errorf("failed to add lead tags: %w", err)
	}
	return nil
}

func (s *LeadStore) ListLeads(ctx context.Context, f models.Filter) ([]models.Lead, error) {
	w := filterWhere(f, "l.created_at", "l.product", "l.traffic_source")
	query := `SELECT ` + leadColumns + ` FROM leads l` + w.String() +
		` ORDER BY l.created_at DESC` + page(w, f, defaultListLimit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leads: %w", err)
	}
	return leads, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
