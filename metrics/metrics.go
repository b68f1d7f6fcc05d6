package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for registration, lookup and dispatch. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Form submissions by outcome
	Submissions *prometheus.CounterVec

	// Existing registration lookups by result
	Lookups *prometheus.CounterVec

	// Outbound bot messages by template and result
	Dispatches *prometheus.CounterVec

	// Inbound webhook events by type
	WebhookEvents *prometheus.CounterVec

	// HTTP handler latency by route and status
	RequestDuration *prometheus.HistogramVec
}

const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"

	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupError    = "error"

	DispatchSent   = "sent"
	DispatchFailed = "failed"
)

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "line_registration_submissions_total",
			Help: "Total registration form submissions by outcome",
		}, []string{"outcome"}), // outcome: "created", "updated", "invalid", "error"

		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "line_registration_lookups_total",
			Help: "Total existing registration lookups by result",
		}, []string{"result"}),

		Dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "line_registration_dispatch_total",
			Help: "Total outbound bot messages by template and result",
		}, []string{"template", "result"}),

		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "line_registration_webhook_events_total",
			Help: "Total inbound webhook events by event type",
		}, []string{"type"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "line_registration_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and status code",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "status"}),
	}
}

func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementLookup(result string) {
	if m != nil {
		m.Lookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementDispatch(template, result string) {
	if m != nil {
		m.Dispatches.WithLabelValues(template, result).Inc()
	}
}

func (m *Metrics) IncrementWebhookEvent(eventType string) {
	if m != nil {
		m.WebhookEvents.WithLabelValues(eventType).Inc()
	}
}

// ObserveRequest records how long a request to route took.
func (m *Metrics) ObserveRequest(route string, status string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
	}
}
