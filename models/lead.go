package models

import (
	"time"

	"quizfunnel/api/diagnostic"
)

// Lead is a contact captured by the funnel form. A lead is valid once it has
// both a name and an email; partial leads are upgraded in place.
type Lead struct {
	ID           string `json:"id"`
	SessionToken string `json:"sessionId"`
	Fingerprint  string `json:"fingerprint"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Product      string `json:"product"`
	Attribution
	UrgencyLevel    string              `json:"urgencyLevel"`
	DiagnosticScore int                 `json:"diagnosticScore"`
	KeyFactors      []string            `json:"keyFactors"`
	Answers         []diagnostic.Answer `json:"answers,omitempty"`
	IsValid         bool                `json:"isValid"`
	Tags            []string            `json:"tags"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type LeadRequest struct {
	SessionID   string              `json:"sessionId"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Product     string              `json:"product"`
	Attribution Attribution         `json:"attribution"`
	Answers     []diagnostic.Answer `json:"answers"`
}

type LeadQuery struct {
	ID    string `form:"id"`
	Email string `form:"email"`
	Phone string `form:"phone"`
}

func (q LeadQuery) Empty() bool {
	return q.ID == "" && q.Email == "" && q.Phone == ""
}

type TagRequest struct {
	Tags []string `json:"tags" binding:"required"`
}
