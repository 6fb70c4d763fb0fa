package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"quizfunnel/api/funnel"
	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/now"
	log "github.com/sirupsen/logrus"
)

const storeTimeout = 10 * time.Second

func withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), storeTimeout)
}

func visitorFrom(c *gin.Context) models.VisitorContext {
	return utils.ResolveVisitor(c.ClientIP(), c.Request.UserAgent(), c.GetHeader("Accept-Language"))
}

// respondError maps input errors to 400 and missing rows to 404. Anything
// else is logged and answered with the generic msg.
func respondError(c *gin.Context, err error, msg string) {
	switch {
	case funnel.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		log.WithError(err).WithFields(log.Fields{"method": c.Request.Method, "path": c.FullPath()}).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// parseFilter reads period, from, to, product, source, limit and offset.
// from and to override the bounds of period.
func parseFilter(c *gin.Context, ref time.Time) (models.Filter, error) {
	var f models.Filter

	if period := c.Query("period"); period != "" {
		from, to, err := periodRange(period, ref)
		if err != nil {
			return f, err
		}
		f.From, f.To = from, to
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid 'from' timestamp, use RFC3339")
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid 'to' timestamp, use RFC3339")
		}
		f.To = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("'to' must not be before 'from'")
	}

	f.Product = c.Query("product")
	f.Source = c.Query("source")

	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

// periodRange resolves a dashboard preset relative to ref.
func periodRange(period string, ref time.Time) (time.Time, time.Time, error) {
	n := now.New(ref)
	switch period {
	case "today":
		return n.BeginningOfDay(), n.EndOfDay(), nil
	case "yesterday":
		y := now.New(ref.AddDate(0, 0, -1))
		return y.BeginningOfDay(), y.EndOfDay(), nil
	case "week":
		return n.BeginningOfWeek(), n.EndOfWeek(), nil
	case "month":
		return n.BeginningOfMonth(), n.EndOfMonth(), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q, use today, yesterday, week or month", period)
	}
}

func intQuery(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid '%s', must be a non-negative integer", name)
	}
	return n, nil
}

// parseTimeRange reads start and end (RFC3339) for the time series
// endpoints, defaulting to the last seven days.
func parseTimeRange(c *gin.Context, ref time.Time) (time.Time, time.Time, error) {
	start := ref.UTC().Add(-7 * 24 * time.Hour)
	end := ref.UTC()

	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, fmt.Errorf("invalid 'start' timestamp, use RFC3339")
		}
		start = t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return start, end, fmt.Errorf("invalid 'end' timestamp, use RFC3339")
		}
		end = t
	}
	return start, end, nil
}
