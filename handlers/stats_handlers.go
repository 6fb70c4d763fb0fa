package handlers

import (
	"context"
	"net/http"
	"time"

	"quizfunnel/api/models"
	"quizfunnel/api/reporting"
	"quizfunnel/api/store"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type MetricsReader interface {
	Counts(ctx context.Context, f models.Filter) (*models.FunnelCounts, error)
	ClearData(ctx context.Context, scopes []string) (map[string]int64, error)
}

// MetricsCacher is satisfied by store.MetricsCache.
type MetricsCacher interface {
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context) error
}

type ListStore interface {
	ListSessions(ctx context.Context, f models.Filter) ([]models.Session, error)
	ListAbandonments(ctx context.Context, f models.Filter) ([]models.Abandonment, error)
}

type SaleLister interface {
	ListSales(ctx context.Context, f models.Filter) ([]models.Sale, error)
}

type StatsHandlers struct {
	Metrics MetricsReader
	// Cache is nil when redis is not configured.
	Cache MetricsCacher
	Lists ListStore
	Sales SaleLister
}

func NewStatsHandlers(metrics MetricsReader, cache MetricsCacher, lists ListStore, sales SaleLister) *StatsHandlers {
	return &StatsHandlers{Metrics: metrics, Cache: cache, Lists: lists, Sales: sales}
}

func (h *StatsHandlers) GetMetrics(c *gin.Context) {
	f, err := parseFilter(c, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	key := store.MetricsKey(f)
	if h.Cache != nil {
		var cached reporting.Metrics
		hit, err := h.Cache.Get(ctx, key, &cached)
		if err != nil {
			log.WithError(err).Warn("Metrics cache read failed")
		} else if hit {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	counts, err := h.Metrics.Counts(ctx, f)
	if err != nil {
		respondError(c, err, "Failed to compute metrics")
		return
	}
	m := reporting.Compute(*counts)

	if h.Cache != nil {
		if err := h.Cache.Set(ctx, key, m); err != nil {
			log.WithError(err).Warn("Metrics cache write failed")
		}
	}
	c.JSON(http.StatusOK, m)
}

func (h *StatsHandlers) ListVisits(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sessions, err := h.Lists.ListSessions(ctx, f)
	if err != nil {
		respondError(c, err, "Failed to list visits")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *StatsHandlers) ListAbandonments(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	rows, err := h.Lists.ListAbandonments(ctx, f)
	if err != nil {
		respondError(c, err, "Failed to list abandonments")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *StatsHandlers) ListSales(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	sales, err := h.Sales.ListSales(ctx, f)
	if err != nil {
		respondError(c, err, "Failed to list sales")
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *StatsHandlers) filter(c *gin.Context) (models.Filter, bool) {
	f, err := parseFilter(c, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return f, false
	}
	return f, true
}

// ClearData wipes the requested scopes, or every scope when none is given.
func (h *StatsHandlers) ClearData(c *gin.Context) {
	var req models.ClearDataRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = models.AllScopes
	}
	for _, s := range scopes {
		if !models.IsKnownScope(s) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown scope: " + s})
			return
		}
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	removed, err := h.Metrics.ClearData(ctx, scopes)
	if err != nil {
		respondError(c, err, "Failed to clear data")
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("Metrics cache invalidation failed")
		}
	}

	log.WithFields(log.Fields{
		"scopes":      scopes,
		"operator_id": c.GetInt("operator_id"),
		"principal":   c.GetString("principal"),
	}).Warn("Data cleared by operator")
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
