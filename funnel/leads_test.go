package funnel_test

import (
	"context"
	"testing"

	"quizfunnel/api/diagnostic"
	"quizfunnel/api/funnel"
	"quizfunnel/api/funnel/funneltest"
	"quizfunnel/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeadService(t *testing.T) (*funnel.LeadService, *funnel.Tracker, *funneltest.MemStore) {
	t.Helper()
	tracker, store, _ := newTracker(t)
	return funnel.NewLeadService(store, tracker, "BR"), tracker, store
}

func emergencyAnswers() []diagnostic.Answer {
	return []diagnostic.Answer{
		{QuestionID: 1, OptionIndex: 0},
		{QuestionID: 2, OptionIndex: 2},
		{QuestionID: 3, OptionIndex: 0},
		{QuestionID: 4, OptionIndex: 0},
	}
}

func TestSubmitLeadScoresAndTags(t *testing.T) {
	svc, _, store := newLeadService(t)

	lead, err := svc.SubmitLead(context.Background(), visitor(), models.LeadRequest{
		SessionID: sessionToken,
		Name:      "Ana Souza",
		Email:     " Ana@Example.com ",
		Phone:     "(11) 98765-4321",
		Product:   "marriage-rescue",
		Answers:   emergencyAnswers(),
	})
	require.NoError(t, err)

	assert.True(t, lead.IsValid)
	assert.Equal(t, "ana@example.com", lead.Email)
	assert.Equal(t, "+5511987654321", lead.Phone)
	assert.Equal(t, diagnostic.LevelEmergency, lead.UrgencyLevel)
	assert.Equal(t, 27, lead.DiagnosticScore)
	assert.Contains(t, lead.Tags, "urgency:emergency")
	assert.Len(t, store.Leads(), 1)
}

func TestSubmitLeadValidation(t *testing.T) {
	svc, _, _ := newLeadService(t)
	ctx := context.Background()

	_, err := svc.SubmitLead(ctx, visitor(), models.LeadRequest{SessionID: sessionToken, Email: "ana@example.com"})
	assert.ErrorIs(t, err, funnel.ErrMissingProduct)

	_, err = svc.SubmitLead(ctx, visitor(), models.LeadRequest{Product: "p", Email: "not-an-email"})
	assert.ErrorIs(t, err, funnel.ErrInvalidEmail)
	assert.True(t, funnel.IsValidation(err))
}

func TestSubmitLeadUpgradesPartialLead(t *testing.T) {
	svc, tracker, store := newLeadService(t)
	ctx := context.Background()

	_, err := tracker.TrackAbandonment(ctx, visitor(), abandon("form"))
	require.NoError(t, err)

	partial, err := svc.SubmitLead(ctx, visitor(), models.LeadRequest{
		SessionID: sessionToken,
		Email:     "ana@example.com",
		Product:   "marriage-rescue",
	})
	require.NoError(t, err)
	assert.False(t, partial.IsValid)
	assert.Len(t, store.Abandonments(), 1, "partial lead must not clear abandonments")

	full, err := svc.SubmitLead(ctx, visitor(), models.LeadRequest{
		SessionID: sessionToken,
		Name:      "Ana",
		Product:   "marriage-rescue",
	})
	require.NoError(t, err)

	assert.Equal(t, partial.ID, full.ID)
	assert.True(t, full.IsValid)
	assert.Equal(t, "ana@example.com", full.Email)
	assert.Len(t, store.Leads(), 1)
	assert.Empty(t, store.Abandonments())
}

func TestSubmitLeadKeepsSessionAttribution(t *testing.T) {
	svc, tracker, _ := newLeadService(t)
	ctx := context.Background()

	_, err := tracker.TrackEvent(ctx, visitor(), visit("facebook"))
	require.NoError(t, err)

	lead, err := svc.SubmitLead(ctx, visitor(), models.LeadRequest{
		SessionID:   sessionToken,
		Name:        "Ana",
		Email:       "ana@example.com",
		Product:     "marriage-rescue",
		Attribution: models.Attribution{TrafficSource: "direct", UTMMedium: "cpc"},
	})
	require.NoError(t, err)

	assert.Equal(t, "facebook", lead.TrafficSource)
	assert.Equal(t, "cmp-facebook", lead.CampaignID)
	assert.Equal(t, "cpc", lead.UTMMedium)
	assert.Contains(t, lead.Tags, "source:facebook")
}

func TestAssignTags(t *testing.T) {
	svc, _, store := newLeadService(t)
	ctx := context.Background()
	store.PutLead(models.Lead{ID: "lead-1", Email: "ana@example.com"})

	tags, err := svc.AssignTags(ctx, "lead-1", []string{" VIP ", "vip", "", "Buyer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"vip", "buyer"}, tags)

	_, err = svc.AssignTags(ctx, "lead-1", []string{"  "})
	assert.ErrorIs(t, err, funnel.ErrNoTags)

	_, err = svc.AssignTags(ctx, "missing", []string{"vip"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	lead, err := svc.Lookup(ctx, models.LeadQuery{ID: "lead-1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vip", "buyer"}, lead.Tags)
}

func TestLookup(t *testing.T) {
	svc, _, store := newLeadService(t)
	ctx := context.Background()
	store.PutLead(models.Lead{ID: "lead-1", Email: "ana@example.com"})

	_, err := svc.Lookup(ctx, models.LeadQuery{})
	assert.ErrorIs(t, err, funnel.ErrEmptyLeadQuery)

	lead, err := svc.Lookup(ctx, models.LeadQuery{Email: "  ANA@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", lead.ID)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, funnel.NormalizeTags([]string{"A", " b", "a", ""}))
	assert.Empty(t, funnel.NormalizeTags(nil))
}
