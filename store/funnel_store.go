package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizfunnel/api/models"
)

// FunnelStore persists sessions, events and abandonments in Postgres.
type FunnelStore struct {
	db *sql.DB
}

func NewFunnelStore(db *sql.DB) *FunnelStore {
	return &FunnelStore{db: db}
}

const sessionColumns = `session_token, fingerprint, traffic_source, campaign_id, traffic_id,
	utm_source, utm_medium, utm_campaign, utm_content, utm_term, referrer, landing_page,
	current_step, product, country, city, user_agent, ip_address, created_at, last_seen_at, expires_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	s := &models.Session{}
	err := row.Scan(
		&s.Token, &s.Fingerprint, &s.TrafficSource, &s.CampaignID, &s.TrafficID,
		&s.UTMSource, &s.UTMMedium, &s.UTMCampaign, &s.UTMContent, &s.UTMTerm, &s.Referrer, &s.LandingPage,
		&s.CurrentStep, &s.Product, &s.Country, &s.City, &s.UserAgent, &s.IPAddress,
		&s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FunnelStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM funnel_sessions WHERE session_token = $1`, token)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// SaveSession writes the whole row, inserting it when the token is new.
func (s *FunnelStore) SaveSession(ctx context.Context, sess *models.Session) error {
	query := `
		INSERT INTO funnel_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (session_token) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			traffic_source = EXCLUDED.traffic_source,
			campaign_id = EXCLUDED.campaign_id,
			traffic_id = EXCLUDED.traffic_id,
			utm_source = EXCLUDED.utm_source,
			utm_medium = EXCLUDED.utm_medium,
			utm_campaign = EXCLUDED.utm_campaign,
			utm_content = EXCLUDED.utm_content,
			utm_term = EXCLUDED.utm_term,
			referrer = EXCLUDED.referrer,
			landing_page = EXCLUDED.landing_page,
			current_step = EXCLUDED.current_step,
			product = EXCLUDED.product,
			country = EXCLUDED.country,
			city = EXCLUDED.city,
			user_agent = EXCLUDED.user_agent,
			ip_address = EXCLUDED.ip_address,
			created_at = EXCLUDED.created_at,
			last_seen_at = EXCLUDED.last_seen_at,
			expires_at = EXCLUDED.expires_at`
	_, err := s.db.ExecContext(ctx, query,
		sess.Token, sess.Fingerprint, sess.TrafficSource, sess.CampaignID, sess.TrafficID,
		sess.UTMSource, sess.UTMMedium, sess.UTMCampaign, sess.UTMContent, sess.UTMTerm, sess.Referrer, sess.LandingPage,
		sess.CurrentStep, sess.Product, sess.Country, sess.City, sess.UserAgent, sess.IPAddress,
		sess.CreatedAt, sess.LastSeenAt, sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *FunnelStore) HasRecentEvent(ctx context.Context, sessionToken, eventType, step string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM funnel_events
			WHERE session_token = $1 AND event_type = $2 AND created_at >= $3
				AND ($4 = '' OR step = $4)
		)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, sessionToken, eventType, since, step).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check recent event: %w", err)
	}
	return exists, nil
}

func (s *FunnelStore) InsertEvent(ctx context.Context, e *models.FunnelEvent) error {
	var data interface{}
	if len(e.EventData) > 0 {
		data = string(e.EventData)
	}
	query := `
		INSERT INTO funnel_events (
			event_id, event_type, session_token, fingerprint, step, product,
			traffic_source, page_path, event_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.ExecContext(ctx, query,
		e.EventID, e.EventType, e.SessionToken, e.Fingerprint, e.Step, e.Product,
		e.TrafficSource, e.PagePath, data, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// visitorMatch builds "(a = $1 OR b = $2 ...)" over the non-empty keys.
func visitorMatch(w *where, keys models.VisitorKeys) string {
	var ors []string
	if keys.SessionToken != "" {
		ors = append(ors, "session_token = "+w.next(keys.SessionToken))
	}
	if keys.Fingerprint != "" {
		ors = append(ors, "fingerprint = "+w.next(keys.Fingerprint))
	}
	if keys.TrafficID != "" {
		ors = append(ors, "traffic_id = "+w.next(keys.TrafficID))
	}
	return "(" + strings.Join(ors, " OR ") + ")"
}

func (s *FunnelStore) HasValidLead(ctx context.Context, keys models.VisitorKeys) (bool, error) {
	if keys.Empty() {
		return false, nil
	}
	w := &where{}
	match := visitorMatch(w, keys)
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE is_valid AND `+match+`)`, w.args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check valid lead: %w", err)
	}
	return exists, nil
}

const abandonmentColumns = `id, fingerprint, session_token, traffic_id, traffic_source, product,
	step, reason, time_on_page_sec, created_at, updated_at`

func scanAbandonment(row rowScanner) (*models.Abandonment, error) {
	a := &models.Abandonment{}
	err := row.Scan(&a.ID, &a.Fingerprint, &a.SessionToken, &a.TrafficID, &a.TrafficSource, &a.Product,
		&a.Step, &a.Reason, &a.TimeOnPageSec, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *FunnelStore) FindRecentAbandonment(ctx context.Context, fingerprint string, since time.Time) (*models.Abandonment, error) {
	query := `SELECT ` + abandonmentColumns + ` FROM abandonments
		WHERE fingerprint = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1`
	a, err := scanAbandonment(s.db.QueryRowContext(ctx, query, fingerprint, since))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find abandonment: %w", err)
	}
	return a, nil
}

func (s *FunnelStore) InsertAbandonment(ctx context.Context, a *models.Abandonment) error {
	query := `
		INSERT INTO abandonments (
			fingerprint, session_token, traffic_id, traffic_source, product,
			step, reason, time_on_page_sec, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := s.db.QueryRowContext(ctx, query,
		a.Fingerprint, a.SessionToken, a.TrafficID, a.TrafficSource, a.Product,
		a.Step, a.Reason, a.TimeOnPageSec, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to insert abandonment: %w", err)
	}
	return nil
}

func (s *FunnelStore) UpdateAbandonment(ctx context.Context, a *models.Abandonment) error {
	query := `
		UPDATE abandonments
		SET session_token = $2, traffic_id = $3, step = $4, reason = $5, time_on_page_sec = $6, updated_at = $7
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, a.ID, a.SessionToken, a.TrafficID, a.Step, a.Reason, a.TimeOnPageSec, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update abandonment: %w", err)
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

func (s *FunnelStore) DeleteAbandonments(ctx context.Context, keys models.VisitorKeys) (int64, error) {
	if keys.Empty() {
		return 0, nil
	}
	w := &where{}
	match := visitorMatch(w, keys)
	res, err := s.db.ExecContext(ctx, `DELETE FROM abandonments WHERE `+match, w.args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete abandonments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// ListSessions backs the visits listing, newest first.
func (s *FunnelStore) ListSessions(ctx context.Context, f models.Filter) ([]models.Session, error) {
	w := filterWhere(f, "created_at", "product", "traffic_source")
	query := `SELECT ` + sessionColumns + ` FROM funnel_sessions` + w.String() +
		` ORDER BY created_at DESC` + page(w, f, defaultListLimit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// ListAbandonments is used by the dashboard, newest first.
func (s *FunnelStore) ListAbandonments(ctx context.Context, f models.Filter) ([]models.Abandonment, error) {
	w := filterWhere(f, "created_at", "product", "traffic_source")
	query := `SELECT ` + abandonmentColumns + ` FROM abandonments` + w.String() +
		` ORDER BY created_at DESC` + page(w, f, defaultListLimit)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list abandonments: %w", err)
	}
	defer rows.Close()

	out := []models.Abandonment{}
	for rows.Next() {
		a, err := scanAbandonment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan abandonment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating abandonments: %w", err)
	}
	return out, nil
}
