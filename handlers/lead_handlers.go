package handlers

import (
	"context"
	"net/http"
	"time"

	"quizfunnel/api/funnel"
	"quizfunnel/api/models"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type LeadLister interface {
	ListLeads(ctx context.Context, f models.Filter) ([]models.Lead, error)
}

type LeadHandlers struct {
	Leads  *funnel.LeadService
	Lister LeadLister
}

func NewLeadHandlers(leads *funnel.LeadService, lister LeadLister) *LeadHandlers {
	return &LeadHandlers{Leads: leads, Lister: lister}
}

func (h *LeadHandlers) SubmitLead(c *gin.Context) {
	var req models.LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	lead, err := h.Leads.SubmitLead(ctx, visitorFrom(c), req)
	if err != nil {
		respondError(c, err, "Failed to save lead")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"leadId":       lead.ID,
		"isValid":      lead.IsValid,
		"urgencyLevel": lead.UrgencyLevel,
		"tags":         lead.Tags,
	})
}

func (h *LeadHandlers) Lookup(c *gin.Context) {
	var q models.LeadQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	lead, err := h.Leads.Lookup(ctx, q)
	if err != nil {
		respondError(c, err, "Failed to look up lead")
		return
	}
	c.JSON(http.StatusOK, lead)
}

func (h *LeadHandlers) AssignTags(c *gin.Context) {
	var req models.TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	leadID := c.Param("id")
	tags, err := h.Leads.AssignTags(ctx, leadID, req.Tags)
	if err != nil {
		respondError(c, err, "Failed to assign tags")
		return
	}
	log.WithFields(log.Fields{"lead_id": leadID, "tags": tags, "principal": c.GetString("principal")}).Info("Lead tagged")
	c.JSON(http.StatusOK, gin.H{"leadId": leadID, "tags": tags})
}

func (h *LeadHandlers) ListLeads(c *gin.Context) {
	f, err := parseFilter(c, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	leads, err := h.Lister.ListLeads(ctx, f)
	if err != nil {
		respondError(c, err, "Failed to list leads")
		return
	}
	c.JSON(http.StatusOK, leads)
}
