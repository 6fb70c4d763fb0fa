package funnel_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizfunnel/api/funnel"
	"quizfunnel/api/funnel/funneltest"
	"quizfunnel/api/models"
	"quizfunnel/api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chromeUA     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	sessionToken = "sess_1700000000_abc123"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingMirror struct {
	mu     sync.Mutex
	events []models.FunnelEvent
}

func (r *recordingMirror) MirrorEvents(ctx context.Context, events []models.FunnelEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func newTracker(t *testing.T) (*funnel.Tracker, *funneltest.MemStore, *fakeClock) {
	t.Helper()
	store := funneltest.NewMemStore()
	clk := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts := funnel.DefaultOptions()
	opts.Now = clk.Now
	return funnel.NewTracker(store, opts), store, clk
}

func visitor() models.VisitorContext {
	return utils.ResolveVisitor("203.0.113.7", chromeUA, "pt-BR,pt;q=0.9")
}

func visit(source string) models.TrackEventRequest {
	return models.TrackEventRequest{
		SessionID:   sessionToken,
		EventType:   models.EventVisit,
		Product:     "marriage-rescue",
		Attribution: models.Attribution{TrafficSource: source, CampaignID: "cmp-" + source},
	}
}

func TestTrackEventCreatesSession(t *testing.T) {
	tracker, store, _ := newTracker(t)

	res, err := tracker.TrackEvent(context.Background(), visitor(), visit("direct"))
	require.NoError(t, err)

	assert.True(t, res.NewSession)
	assert.False(t, res.Deduplicated)
	assert.NotEmpty(t, res.EventID)
	assert.Equal(t, visitor().Fingerprint, res.Fingerprint)

	sess, ok := store.Session(sessionToken)
	require.True(t, ok)
	assert.Equal(t, "direct", sess.TrafficSource)
	assert.Equal(t, "Unknown", sess.Country)
	assert.Equal(t, models.EventVisit, sess.CurrentStep)
	assert.Len(t, store.Events(), 1)
}

func TestTrackEventDeduplicatesVisit(t *testing.T) {
	tracker, store, clk := newTracker(t)
	ctx := context.Background()

	_, err := tracker.TrackEvent(ctx, visitor(), visit("facebook"))
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	res, err := tracker.TrackEvent(ctx, visitor(), visit("facebook"))
	require.NoError(t, err)

	assert.True(t, res.Deduplicated)
	assert.Empty(t, res.EventID)
	assert.Len(t, store.Events(), 1)
}

func TestTrackEventVisitWindowIsOneDay(t *testing.T) {
	tracker, store, clk := newTracker(t)
	ctx := context.Background()

	_, err := tracker.TrackEvent(ctx, visitor(), visit("facebook"))
	require.NoError(t, err)

	clk.Advance(23 * time.Hour)
	res, err := tracker.TrackEvent(ctx, visitor(), visit("facebook"))
	require.NoError(t, err)
	assert.True(t, res.Deduplicated)

	clk.Advance(2 * time.Hour)
	res, err = tracker.TrackEvent(ctx, visitor(), visit("facebook"))
	require.NoError(t, err)
	assert.False(t, res.Deduplicated)
	assert.Len(t, store.Events(), 2)
}

func TestTrackEventGenericWindowIsOneHour(t *testing.T) {
	tracker, store, clk := newTracker(t)
	ctx := context.Background()
	req := models.TrackEventRequest{SessionID: sessionToken, EventType: models.EventQuizStart}

	_, err := tracker.TrackEvent(ctx, visitor(), req)
	require.NoError(t, err)

	clk.Advance(30 * time.Minute)
	res, err := tracker.TrackEvent(ctx, visitor(), req)
	require.NoError(t, err)
	assert.True(t, res.Deduplicated)

	clk.Advance(31 * time.Minute)
	res, err = tracker.TrackEvent(ctx, visitor(), req)
	require.NoError(t, err)
	assert.False(t, res.Deduplicated)
	assert.Len(t, store.Events(), 2)
}

func TestTrackEventQuestionViewsDedupPerQuestion(t *testing.T) {
	tracker, store, _ := newTracker(t)
	ctx := context.Background()

	for _, step := range []string{"question_1", "question_2", "question_1"} {
		_, err := tracker.TrackEvent(ctx, visitor(), models.TrackEventRequest{
			SessionID: sessionToken,
			EventType: models.EventQuestionView,
			Step:      step,
		})
		require.NoError(t, err)
	}

	assert.Len(t, store.Events(), 2)
	sess, _ := store.Session(sessionToken)
	assert.Equal(t, "question_1", sess.CurrentStep)
}

func TestTrackEventAttributionNeverDowngrades(t *testing.T) {
	tracker, store, clk := newTracker(t)
	ctx := context.Background()

	steps := []struct {
		source string
		want   string
	}{
		{"direct", "direct"},
		{"facebook", "facebook"},
		{"direct", "facebook"},
		{"", "facebook"},
		{"unknown", "facebook"},
		{"google", "facebook"},
	}
	for _, s := range steps {
		clk.Advance(time.Minute)
		req := models.TrackEventRequest{
			SessionID:   sessionToken,
			EventType:   models.EventQuestionView,
			Step:        "question_" + s.source,
			Attribution: models.Attribution{TrafficSource: s.source},
		}
		_, err := tracker.TrackEvent(ctx, visitor(), req)
		require.NoError(t, err)

		sess, ok := store.Session(sessionToken)
		require.True(t, ok)
		assert.Equal(t, s.want, sess.TrafficSource, "after source %q", s.source)
	}
}

func TestTrackEventExpiredSessionKeepsStrongAttribution(t *testing.T) {
	tracker, store, clk := newTracker(t)
	ctx := context.Background()

	_, err := tracker.TrackEvent(ctx, visitor(), visit("facebook"))
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	res, err := tracker.TrackEvent(ctx, visitor(), models.TrackEventRequest{
		SessionID:   sessionToken,
		EventType:   models.EventQuizStart,
		Attribution: models.Attribution{TrafficSource: "direct"},
	})
	require.NoError(t, err)

	assert.True(t, res.NewSession)
	sess, _ := store.Session(sessionToken)
	assert.Equal(t, "facebook", sess.TrafficSource)
	assert.Equal(t, clk.Now(), sess.CreatedAt)
	assert.Equal(t, clk.Now().Add(time.Hour), sess.ExpiresAt)

	clk.Advance(61 * time.Minute)
	_, err = tracker.TrackEvent(ctx, visitor(), models.TrackEventRequest{
		SessionID:   sessionToken,
		EventType:   models.EventQuizComplete,
		Attribution: models.Attribution{TrafficSource: "google"},
	})
	require.NoError(t, err)
	sess, _ = store.Session(sessionToken)
	assert.Equal(t, "facebook", sess.TrafficSource)
}

func TestTrackEventIgnoresBots(t *testing.T) {
	tracker, store, _ := newTracker(t)
	bot := utils.ResolveVisitor("66.249.66.1", "Googlebot/2.1 (+http://www.google.com/bot.html)", "en")

	res, err := tracker.TrackEvent(context.Background(), bot, visit("google"))
	require.NoError(t, err)

	assert.True(t, res.Ignored)
	assert.Empty(t, store.Events())
	_, ok := store.Session(sessionToken)
	assert.False(t, ok)
}

func TestTrackEventValidation(t *testing.T) {
	tracker, _, _ := newTracker(t)
	ctx := context.Background()

	_, err := tracker.TrackEvent(ctx, visitor(), models.TrackEventRequest{EventType: models.EventVisit})
	assert.ErrorIs(t, err, funnel.ErrMissingSession)

	_, err = tracker.TrackEvent(ctx, visitor(), models.TrackEventRequest{SessionID: "bad token!", EventType: models.EventVisit})
	assert.ErrorIs(t, err, funnel.ErrInvalidSession)

	_, err = tracker.TrackEvent(ctx, visitor(), models.TrackEventRequest{SessionID: sessionToken, EventType: "purchase"})
	assert.ErrorIs(t, err, funnel.ErrUnknownEventType)
	assert.True(t, funnel.IsValidation(err))
}

func TestTrackEventMirrorsStoredEvents(t *testing.T) {
	store := funneltest.NewMemStore()
	mirror := &recordingMirror{}
	opts := funnel.DefaultOptions()
	opts.Mirror = mirror
	tracker := funnel.NewTracker(store, opts)
	ctx := context.Background()

	_, err := tracker.TrackEvent(ctx, visitor(), visit("facebook"))
	require.NoError(t, err)
	_, err = tracker.TrackEvent(ctx, visitor(), visit("facebook"))
	require.NoError(t, err)

	require.Len(t, mirror.events, 1)
	assert.Equal(t, store.Events()[0].EventID, mirror.events[0].EventID)
	assert.Equal(t, "facebook", mirror.events[0].TrafficSource)
}

func abandon(step string) models.AbandonmentRequest {
	return models.AbandonmentRequest{SessionID: sessionToken, Step: step, Reason: "beforeunload", Product: "marriage-rescue"}
}

func TestTrackAbandonmentCreatesThenUpdates(t *testing.T) {
	tracker, store, clk := newTracker(t)
	ctx := context.Background()

	first, err := tracker.TrackAbandonment(ctx, visitor(), abandon("question_3"))
	require.NoError(t, err)
	assert.Equal(t, models.AbandonmentCreated, first.Action)

	clk.Advance(3 * time.Hour)
	second, err := tracker.TrackAbandonment(ctx, visitor(), abandon("form"))
	require.NoError(t, err)
	assert.Equal(t, models.AbandonmentUpdated, second.Action)
	assert.Equal(t, first.AbandonmentID, second.AbandonmentID)

	rows := store.Abandonments()
	require.Len(t, rows, 1)
	assert.Equal(t, "form", rows[0].Step)
	assert.Equal(t, clk.Now(), rows[0].UpdatedAt)
}

func TestTrackAbandonmentOutsideWindowCreatesNewRow(t *testing.T) {
	tracker, store, clk := newTracker(t)
	ctx := context.Background()

	_, err := tracker.TrackAbandonment(ctx, visitor(), abandon("question_3"))
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)
	res, err := tracker.TrackAbandonment(ctx, visitor(), abandon("question_5"))
	require.NoError(t, err)

	assert.Equal(t, models.AbandonmentCreated, res.Action)
	assert.Len(t, store.Abandonments(), 2)
}

func TestTrackAbandonmentSuppressedForConvertedVisitor(t *testing.T) {
	tracker, store, _ := newTracker(t)
	ctx := context.Background()
	v := visitor()

	_, err := tracker.TrackAbandonment(ctx, v, abandon("question_3"))
	require.NoError(t, err)
	require.Len(t, store.Abandonments(), 1)

	store.PutLead(models.Lead{ID: "lead-1", Fingerprint: v.Fingerprint, Name: "Ana", Email: "ana@example.com", IsValid: true})

	res, err := tracker.TrackAbandonment(ctx, v, abandon("sales_page"))
	require.NoError(t, err)

	assert.Equal(t, models.AbandonmentSuppressed, res.Action)
	assert.EqualValues(t, 1, res.Removed)
	assert.Empty(t, store.Abandonments())
}

func TestTrackAbandonmentIgnoresPartialLeads(t *testing.T) {
	tracker, store, _ := newTracker(t)
	v := visitor()
	store.PutLead(models.Lead{ID: "lead-1", Fingerprint: v.Fingerprint, Email: "ana@example.com"})

	res, err := tracker.TrackAbandonment(context.Background(), v, abandon("form"))
	require.NoError(t, err)
	assert.Equal(t, models.AbandonmentCreated, res.Action)
}

func TestTrackAbandonmentRequiresStep(t *testing.T) {
	tracker, _, _ := newTracker(t)

	_, err := tracker.TrackAbandonment(context.Background(), visitor(), models.AbandonmentRequest{SessionID: sessionToken})
	assert.ErrorIs(t, err, funnel.ErrMissingStep)
}

func TestReconcileConversion(t *testing.T) {
	tracker, store, _ := newTracker(t)
	ctx := context.Background()

	_, err := tracker.TrackAbandonment(ctx, visitor(), models.AbandonmentRequest{Step: "form", TrafficID: "tid-42"})
	require.NoError(t, err)
	other := utils.ResolveVisitor("198.51.100.9", chromeUA, "en")
	_, err = tracker.TrackAbandonment(ctx, other, models.AbandonmentRequest{Step: "form"})
	require.NoError(t, err)

	removed, err := tracker.ReconcileConversion(ctx, models.VisitorKeys{TrafficID: "tid-42"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	rows := store.Abandonments()
	require.Len(t, rows, 1)
	assert.Equal(t, other.Fingerprint, rows[0].Fingerprint)
}

func TestReconcileConversionWithoutKeys(t *testing.T) {
	tracker, _, _ := newTracker(t)

	_, err := tracker.ReconcileConversion(context.Background(), models.VisitorKeys{})
	assert.ErrorIs(t, err, funnel.ErrNoVisitorKey)
}
