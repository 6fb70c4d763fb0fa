// api/models/event.go
package models

import (
	"encoding/json"
	"time"
)

// Funnel event types accepted by the tracking endpoint.
const (
	EventVisit         = "visit"
	EventPageView      = "page_view"
	EventQuizStart     = "quiz_start"
	EventQuestionView  = "question_view"
	EventQuizComplete  = "quiz_complete"
	EventFormView      = "form_view"
	EventSalesPageView = "sales_page_view"
	EventCheckoutClick = "checkout_click"
)

var knownEventTypes = map[string]bool{
	EventVisit:         true,
	EventPageView:      true,
	EventQuizStart:     true,
	EventQuestionView:  true,
	EventQuizComplete:  true,
	EventFormView:      true,
	EventSalesPageView: true,
	EventCheckoutClick: true,
}

func IsKnownEventType(eventType string) bool {
	return knownEventTypes[eventType]
}

// IsVisitEvent reports whether the event type uses the long dedup window.
func IsVisitEvent(eventType string) bool {
	return eventType == EventVisit || eventType == EventPageView
}

// Attribution holds the traffic attribution captured from the landing URL.
type Attribution struct {
	TrafficSource string `json:"trafficSource"`
	CampaignID    string `json:"campaignId"`
	TrafficID     string `json:"trafficId"`
	UTMSource     string `json:"utmSource"`
	UTMMedium     string `json:"utmMedium"`
	UTMCampaign   string `json:"utmCampaign"`
	UTMContent    string `json:"utmContent"`
	UTMTerm       string `json:"utmTerm"`
	Referrer      string `json:"referrer"`
	LandingPage   string `json:"landingPage"`
}

// VisitorContext is resolved server-side from the request.
type VisitorContext struct {
	IPAddress   string
	UserAgent   string
	Language    string
	Fingerprint string
}

// FunnelEvent is an immutable funnel action attributed to a session.
type FunnelEvent struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	SessionToken  string          `json:"sessionId"`
	Fingerprint   string          `json:"fingerprint"`
	Step          string          `json:"step,omitempty"`
	Product       string          `json:"product,omitempty"`
	TrafficSource string          `json:"trafficSource,omitempty"`
	PagePath      string          `json:"pagePath,omitempty"`
	EventData     json.RawMessage `json:"eventData,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type TrackEventRequest struct {
	SessionID   string          `json:"sessionId"`
	EventType   string          `json:"eventType"`
	Step        string          `json:"step"`
	Product     string          `json:"product"`
	PagePath    string          `json:"pagePath"`
	Attribution Attribution     `json:"attribution"`
	EventData   json.RawMessage `json:"eventData,omitempty"`
}

type TrackResult struct {
	SessionID    string `json:"sessionId"`
	EventID      string `json:"eventId,omitempty"`
	Fingerprint  string `json:"fingerprint"`
	Deduplicated bool   `json:"deduplicated"`
	Ignored      bool   `json:"ignored"`
	NewSession   bool   `json:"newSession"`
}

type TimeCount struct {
	Time      time.Time `json:"time"`
	EventType *string   `json:"eventType,omitempty"`
	Count     uint64    `json:"count"`
}
