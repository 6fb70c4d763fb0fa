package funnel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_events_recorded_total",
		Help: "Funnel events stored, by event type",
	}, []string{"event_type"})
	eventsDeduplicated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_events_deduplicated_total",
		Help: "Funnel events skipped because an equal event was seen inside the window",
	}, []string{"event_type"})
	botRequestsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funnel_bot_requests_ignored_total",
		Help: "Tracking requests dropped because the user agent is a bot",
	})
	abandonments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_abandonments_total",
		Help: "Abandonment signals, by outcome",
	}, []string{"action"})
	leadsCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_leads_captured_total",
		Help: "Lead submissions, by urgency level and validity",
	}, []string{"urgency", "valid"})
	abandonmentsReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funnel_abandonments_reconciled_total",
		Help: "Abandonment rows removed after the visitor converted",
	})
	salesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_sales_total",
		Help: "Payment notifications applied, by sale status",
	}, []string{"status"})
)
