package audit

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes ambient process counters alongside (not instead of) the
// audit sink: operators get a cheap Prometheus view of event volume without
// having to scrape backend-specific storage.
type Metrics struct {
	eventsTotal *prometheus.CounterVec
}

// NewMetrics registers the audit counters against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eunomia",
			Subsystem: "audit",
			Name:      "events_total",
			Help:      "Total audit events accepted by the logger, by type and severity.",
		}, []string{"type", "severity"}),
	}
	reg.MustRegister(m.eventsTotal)
	return m
}

// Observe increments the counter for one logged event.
func (m *Metrics) Observe(e Event) {
	var kind string
	switch e.Kind {
	case EventPolicy:
		kind = "policy"
	case EventBundle:
		kind = "bundle"
	case EventDistribution:
		kind = "distribution"
	case EventAuthorization:
		kind = "authorization"
	}
	m.eventsTotal.WithLabelValues(kind, e.Severity.String()).Inc()
}
