package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"quizfunnel/api/funnel"
	"quizfunnel/api/models"
	"quizfunnel/api/store"
	"quizfunnel/api/utils"

	"github.com/gin-gonic/gin"
)

// AnalyticsReader serves the warehouse time series.
type AnalyticsReader interface {
	GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]models.TimeCount, error)
	GetUniqueVisitorsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.TimeCount, error)
	GetTopLandingPaths(ctx context.Context, start, end time.Time, limit uint64) ([]store.PathCount, error)
}

type TrackHandlers struct {
	Tracker *funnel.Tracker
	// Analytics is nil when ClickHouse is not configured.
	Analytics AnalyticsReader
}

func NewTrackHandlers(tracker *funnel.Tracker, analytics AnalyticsReader) *TrackHandlers {
	return &TrackHandlers{Tracker: tracker, Analytics: analytics}
}

func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	var req models.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Tracker.TrackEvent(ctx, visitorFrom(c), req)
	if err != nil {
		respondError(c, err, "Failed to record event")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TrackHandlers) TrackAbandonment(c *gin.Context) {
	var req models.AbandonmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.Tracker.TrackAbandonment(ctx, visitorFrom(c), req)
	if err != nil {
		respondError(c, err, "Failed to record abandonment")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TrackHandlers) analyticsEnabled(c *gin.Context) bool {
	if h.Analytics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analytics warehouse is not configured"})
		return false
	}
	return true
}

func (h *TrackHandlers) GetEventCountsOverTime(c *gin.Context) {
	if !h.analyticsEnabled(c) {
		return
	}
	interval := c.Query("interval")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter must be one of Minute, Hour, Day, Week, Month, Quarter, Year"})
		return
	}
	start, end, err := parseTimeRange(c, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	results, err := h.Analytics.GetEventCountsOverTime(ctx, interval, start, end, c.Query("eventType"))
	if err != nil {
		respondError(c, err, "Failed to retrieve event statistics")
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *TrackHandlers) GetUniqueVisitorsOverTime(c *gin.Context) {
	if !h.analyticsEnabled(c) {
		return
	}
	interval := c.Query("interval")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter must be one of Minute, Hour, Day, Week, Month, Quarter, Year"})
		return
	}
	start, end, err := parseTimeRange(c, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	results, err := h.Analytics.GetUniqueVisitorsOverTime(ctx, interval, start, end)
	if err != nil {
		respondError(c, err, "Failed to retrieve unique visitor statistics")
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *TrackHandlers) GetTopLandingPaths(c *gin.Context) {
	if !h.analyticsEnabled(c) {
		return
	}
	start, end, err := parseTimeRange(c, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var limit uint64 = 10
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.ParseUint(limitParam, 10, 64)
		if err != nil || parsed == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = parsed
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	results, err := h.Analytics.GetTopLandingPaths(ctx, start, end, limit)
	if err != nil {
		respondError(c, err, "Failed to retrieve top landing paths")
		return
	}
	c.JSON(http.StatusOK, results)
}
