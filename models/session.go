package models

import "time"

// Session is a short-lived funnel progress record keyed by a client token.
type Session struct {
	Token       string `json:"sessionId"`
	Fingerprint string `json:"fingerprint"`
	Attribution
	CurrentStep string    `json:"currentStep"`
	Product     string    `json:"product"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
	UserAgent   string    `json:"userAgent"`
	IPAddress   string    `json:"ipAddress"`
	CreatedAt   time.Time `json:"createdAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}
