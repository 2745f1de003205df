package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	SubmissionsReceived prometheus.Counter
	ValidationFailures  prometheus.Counter
	SubmissionsStored   prometheus.Counter
	SendSuccesses       prometheus.Counter
	SendFailures        prometheus.Counter
	AuthExchanges       prometheus.Counter
	ContactDuration     prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SubmissionsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contact_relay_submissions_received_total",
			Help: "Total number of contact-form requests received",
		}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contact_relay_validation_failures_total",
			Help: "Total number of contact-form requests rejected by validation",
		}),
		SubmissionsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contact_relay_submissions_stored_total",
			Help: "Total number of submissions persisted",
		}),
		SendSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contact_relay_send_successes_total",
			Help: "Total number of successful mail relays",
		}),
		SendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contact_relay_send_failures_total",
			Help: "Total number of failed mail relays",
		}),
		AuthExchanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contact_relay_auth_exchanges_total",
			Help: "Total number of completed authorization code exchanges",
		}),
		ContactDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "contact_relay_contact_duration_seconds",
			Help:    "Time spent handling contact-form requests",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
