package store

import (
	"context"
	"fmt"
	"time"

	"quizfunnel/api/database"
	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	log "github.com/sirupsen/logrus"
)

// AnalyticsStore mirrors stored funnel events into ClickHouse and serves the
// time series endpoints from there.
type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

type PathCount struct {
	PagePath string `json:"pagePath"`
	Count    uint64 `json:"count"`
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

func (s *AnalyticsStore) MirrorEvents(ctx context.Context, events []models.FunnelEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO funnel_events (
			event_id, event_type, session_id, fingerprint, step, product,
			traffic_source, page_path, event_data, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.EventType,
			event.SessionToken,
			event.Fingerprint,
			event.Step,
			event.Product,
			event.TrafficSource,
			event.PagePath,
			string(event.EventData),
			event.CreatedAt,
		)
		if err != nil {
			log.WithError(err).WithField("event_id", event.EventID).Error("Error appending event to batch")
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *AnalyticsStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.TimeCount, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	args := []interface{}{start, end}
	selectCols := fmt.Sprintf("toStartOf%s(timestamp) AS time_bucket, count() AS total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE timestamp >= ? AND timestamp <= ?"
	orderByCols := "time_bucket ASC"
	isFilteringByType := eventTypeFilter != ""

	if isFilteringByType {
		selectCols += ", event_type"
		groupByCols += ", event_type"
		whereClause += " AND event_type = ?"
		args = append(args, eventTypeFilter)
		orderByCols += ", event_type ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM funnel_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	results := []models.TimeCount{}
	for rows.Next() {
		var (
			timeBucket time.Time
			count      uint64
			current    models.TimeCount
		)

		if isFilteringByType {
			var eventType string
			if err := rows.Scan(&timeBucket, &count, &eventType); err != nil {
				log.WithError(err).Error("Error scanning event count row")
				continue
			}
			current.EventType = &eventType
		} else if err := rows.Scan(&timeBucket, &count); err != nil {
			log.WithError(err).Error("Error scanning event count row")
			continue
		}

		current.Time = timeBucket
		current.Count = count
		results = append(results, current)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}
	return results, nil
}

// GetUniqueVisitorsOverTime counts distinct fingerprints per bucket.
func (s *AnalyticsStore) GetUniqueVisitorsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.TimeCount, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(timestamp) AS time_bucket, uniq(fingerprint) AS unique_visitors
		FROM funnel_events
		WHERE timestamp >= ? AND timestamp <= ? AND fingerprint != ''
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique visitors over time: %w", err)
	}
	defer rows.Close()

	results := []models.TimeCount{}
	for rows.Next() {
		var timeBucket time.Time
		var uniqueVisitors uint64
		if err := rows.Scan(&timeBucket, &uniqueVisitors); err != nil {
			log.WithError(err).Error("Error scanning unique visitors row")
			continue
		}
		results = append(results, models.TimeCount{Time: timeBucket, Count: uniqueVisitors})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for unique visitors: %w", err)
	}
	return results, nil
}

// GetTopLandingPaths ranks the page paths of visit and page view events.
func (s *AnalyticsStore) GetTopLandingPaths(ctx context.Context, start, end time.Time, limit uint64) ([]PathCount, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT page_path, count() AS view_count
		FROM funnel_events
		WHERE event_type IN ('visit', 'page_view') AND page_path != ''
			AND timestamp >= ? AND timestamp <= ?
		GROUP BY page_path
		ORDER BY view_count DESC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top landing paths: %w", err)
	}
	defer rows.Close()

	results := []PathCount{}
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.PagePath, &pc.Count); err != nil {
			log.WithError(err).Error("Error scanning top path row")
			continue
		}
		results = append(results, pc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top landing paths: %w", err)
	}
	return results, nil
}
