package store

import (
	"context"
	"database/sql"
	"fmt"

	"quizfunnel/api/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MetricsStore aggregates dashboard counts and clears funnel data.
type MetricsStore struct {
	db *sql.DB
}

func NewMetricsStore(db *sql.DB) *MetricsStore {
	return &MetricsStore{db: db}
}

// Counts runs one query per source table concurrently, all under the same filter.
func (s *MetricsStore) Counts(ctx context.Context, f models.Filter) (*models.FunnelCounts, error) {
	c := &models.FunnelCounts{
		LeadsByUrgency:     map[string]int64{},
		LeadsBySource:      map[string]int64{},
		AbandonmentsByStep: map[string]int64{},
	}
	var (
		byType   map[string]int64
		uniques  int64
		leadsAll int64
		leadsOK  int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byType, err = s.groupCount(gctx, "funnel_events", "event_type", f, "traffic_source", "")
		return err
	})
	g.Go(func() error {
		w := filterWhere(f, "created_at", "product", "traffic_source")
		w.addRaw("fingerprint <> ''")
		return s.scalar(gctx, `SELECT count(DISTINCT fingerprint) FROM funnel_events`+w.String(), w.args, &uniques)
	})
	g.Go(func() (err error) {
		c.AbandonmentsByStep, err = s.groupCount(gctx, "abandonments", "step", f, "traffic_source", "")
		return err
	})
	g.Go(func() error {
		w := filterWhere(f, "created_at", "product", "traffic_source")
		return s.db.QueryRowContext(gctx,
			`SELECT count(*), count(*) FILTER (WHERE is_valid) FROM leads`+w.String(), w.args...,
		).Scan(&leadsAll, &leadsOK)
	})
	g.Go(func() (err error) {
		c.LeadsByUrgency, err = s.groupCount(gctx, "leads", "urgency_level", f, "traffic_source", "urgency_level <> ''")
		return err
	})
	g.Go(func() (err error) {
		c.LeadsBySource, err = s.groupCount(gctx, "leads", "traffic_source", f, "traffic_source", "traffic_source <> ''")
		return err
	})
	g.Go(func() error {
		w := filterWhere(f, "created_at", "product", "traffic_source")
		w.add("status = ?", models.SaleApproved)
		return s.db.QueryRowContext(gctx,
			`SELECT count(*), COALESCE(sum(amount), 0) FROM sales`+w.String(), w.args...,
		).Scan(&c.Sales, &c.Revenue)
	})
	g.Go(func() error {
		w := filterWhere(f, "created_at", "product", "")
		return s.scalar(gctx, `SELECT count(*) FROM comments`+w.String(), w.args, &c.Comments)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate metrics: %w", err)
	}

	c.Visits = byType[models.EventVisit]
	c.QuizStarts = byType[models.EventQuizStart]
	c.QuizCompletes = byType[models.EventQuizComplete]
	c.FormViews = byType[models.EventFormView]
	c.SalesPageViews = byType[models.EventSalesPageView]
	c.CheckoutClicks = byType[models.EventCheckoutClick]
	c.UniqueVisitors = uniques
	c.Leads = leadsAll
	c.ValidLeads = leadsOK
	return c, nil
}

func (s *MetricsStore) scalar(ctx context.Context, query string, args []interface{}, dest *int64) error {
	return s.db.QueryRowContext(ctx, query, args...).Scan(dest)
}

func (s *MetricsStore) groupCount(ctx context.Context, table, column string, f models.Filter, sourceCol, extra string) (map[string]int64, error) {
	w := filterWhere(f, "created_at", "product", sourceCol)
	if extra != "" {
		w.addRaw(extra)
	}
	query := fmt.Sprintf(`SELECT %s, count(*) FROM %s%s GROUP BY %s`, column, table, w.String(), column)

	rows, err := s.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s by %s: %w", table, column, err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", table, err)
		}
		out[key] = n
	}
	return out, rows.Err()
}

var scopeTables = map[string]string{
	models.ScopeEvents:       "funnel_events",
	models.ScopeSessions:     "funnel_sessions",
	models.ScopeAbandonments: "abandonments",
	models.ScopeLeads:        "leads",
	models.ScopeSales:        "sales",
	models.ScopeComments:     "comments",
}

// ClearData deletes every row of the given scopes in one transaction and
// returns the number of rows removed per scope. Lead tags go with their leads.
func (s *MetricsStore) ClearData(ctx context.Context, scopes []string) (map[string]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	removed := make(map[string]int64, len(scopes))
	for _, scope := range orderScopes(scopes) {
		table, ok := scopeTables[scope]
		if !ok {
			return nil, fmt.Errorf("unknown scope %q", scope)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read affected rows: %w", err)
		}
		removed[scope] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit clear: %w", err)
	}
	log.WithField("removed", removed).Warn("Funnel data cleared")
	return removed, nil
}

// orderScopes returns the requested scopes in models.AllScopes order.
func orderScopes(scopes []string) []string {
	want := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		want[s] = true
	}
	var out []string
	for _, s := range models.AllScopes {
		if want[s] {
			out = append(out, s)
			delete(want, s)
		}
	}
	for s := range want {
		out = append(out, s)
	}
	return out
}
