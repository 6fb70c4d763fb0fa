package models

import "time"

// Filter narrows dashboard queries. Zero values mean "no restriction".
type Filter struct {
	From    time.Time
	To      time.Time
	Product string
	Source  string
	Limit   int
	Offset  int
}

// FunnelCounts is the raw material for the dashboard metrics. Every field is
// produced by its own filtered query.
type FunnelCounts struct {
	Visits         int64 `json:"visits"`
	UniqueVisitors int64 `json:"uniqueVisitors"`
	QuizStarts     int64 `json:"quizStarts"`
	QuizCompletes  int64 `json:"quizCompletes"`
	FormViews      int64 `json:"formViews"`
	SalesPageViews int64 `json:"salesPageViews"`
	CheckoutClicks int64 `json:"checkoutClicks"`

	Leads          int64            `json:"leads"`
	ValidLeads     int64            `json:"validLeads"`
	LeadsByUrgency map[string]int64 `json:"leadsByUrgency"`
	LeadsBySource  map[string]int64 `json:"leadsBySource"`

	AbandonmentsByStep map[string]int64 `json:"abandonmentsByStep"`

	Sales    int64   `json:"sales"`
	Revenue  float64 `json:"revenue"`
	Comments int64   `json:"comments"`
}

// Scopes accepted by the clear data operation.
const (
	ScopeEvents       = "events"
	ScopeSessions     = "sessions"
	ScopeAbandonments = "abandonments"
	ScopeLeads        = "leads"
	ScopeSales        = "sales"
	ScopeComments     = "comments"
)

// AllScopes is ordered so that dependent rows go first.
var AllScopes = []string{ScopeEvents, ScopeAbandonments, ScopeSessions, ScopeLeads, ScopeSales, ScopeComments}

func IsKnownScope(scope string) bool {
	for _, s := range AllScopes {
		if s == scope {
			return true
		}
	}
	return false
}

type ClearDataRequest struct {
	Scopes []string `json:"scopes"`
}
