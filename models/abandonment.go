package models

import "time"

const (
	AbandonmentCreated    = "created"
	AbandonmentUpdated    = "updated"
	AbandonmentSuppressed = "suppressed"
)

// Abandonment is the last step a visitor reached before leaving without converting.
// There is at most one live row per fingerprint inside the reconciliation window.
type Abandonment struct {
	ID            int64     `json:"id"`
	Fingerprint   string    `json:"fingerprint"`
	SessionToken  string    `json:"sessionId"`
	TrafficID     string    `json:"trafficId"`
	TrafficSource string    `json:"trafficSource"`
	Product       string    `json:"product"`
	Step          string    `json:"step"`
	Reason        string    `json:"reason"`
	TimeOnPageSec int       `json:"timeOnPageSec"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type AbandonmentRequest struct {
	SessionID     string `json:"sessionId"`
	Step          string `json:"step"`
	Reason        string `json:"reason"`
	Product       string `json:"product"`
	TrafficID     string `json:"trafficId"`
	TrafficSource string `json:"trafficSource"`
	TimeOnPageSec int    `json:"timeOnPageSec"`
}

type AbandonmentResult struct {
	Action        string `json:"action"`
	AbandonmentID int64  `json:"abandonmentId,omitempty"`
	Removed       int64  `json:"removed,omitempty"`
}

// VisitorKeys are the identifiers a converted visitor may have been recorded under.
type VisitorKeys struct {
	SessionToken string
	Fingerprint  string
	TrafficID    string
}

func (k VisitorKeys) Empty() bool {
	return k.SessionToken == "" && k.Fingerprint == "" && k.TrafficID == ""
}
