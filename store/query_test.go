package store

import (
	"testing"
	"time"

	"quizfunnel/api/models"

	"github.com/stretchr/testify/assert"
)

func TestFilterWhere(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := models.Filter{From: from, Product: "marriage-rescue", Source: "Facebook", Limit: 5000, Offset: -3}

	w := filterWhere(f, "created_at", "product", "traffic_source")
	assert.Equal(t, " WHERE created_at >= $1 AND product = $2 AND lower(traffic_source) = lower($3)", w.String())
	assert.Equal(t, []interface{}{from, "marriage-rescue", "Facebook"}, w.args)

	assert.Equal(t, " LIMIT $4 OFFSET $5", page(w, f, defaultListLimit))
	assert.Equal(t, []interface{}{from, "marriage-rescue", "Facebook", maxListLimit, 0}, w.args)
}

func TestFilterWhereSkipsMissingColumns(t *testing.T) {
	w := filterWhere(models.Filter{Source: "google"}, "created_at", "product", "")
	assert.Empty(t, w.String())
	assert.Empty(t, w.args)
}

func TestVisitorMatch(t *testing.T) {
	w := &where{}
	w.addRaw("is_valid")
	match := visitorMatch(w, models.VisitorKeys{SessionToken: "s1", TrafficID: "t1"})

	assert.Equal(t, "(session_token = $1 OR traffic_id = $2)", match)
	assert.Equal(t, []interface{}{"s1", "t1"}, w.args)
}

func TestOrderScopes(t *testing.T) {
	got := orderScopes([]string{models.ScopeComments, models.ScopeSessions, models.ScopeEvents})
	assert.Equal(t, []string{models.ScopeEvents, models.ScopeSessions, models.ScopeComments}, got)
}

func TestMetricsKey(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 500, time.UTC)
	a := MetricsKey(models.Filter{From: from, Product: "p", Source: "Facebook"})
	b := MetricsKey(models.Filter{From: from.Truncate(time.Second), Product: "p", Source: "facebook"})

	assert.Equal(t, a, b)
	assert.Equal(t, "quizfunnel:metrics:2024-03-01T00:00:00Z|-|p|facebook", a)
	assert.NotEqual(t, a, MetricsKey(models.Filter{}))

	upper := MetricsKey(models.Filter{Product: "Rescue"})
	lower := MetricsKey(models.Filter{Product: "rescue"})
	assert.NotEqual(t, upper, lower)

	w := filterWhere(models.Filter{Product: "Rescue"}, "created_at", "product", "traffic_source")
	assert.Equal(t, []interface{}{"Rescue"}, w.args)
}
