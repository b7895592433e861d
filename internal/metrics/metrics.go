package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the bot's collectors; it is served on /metrics.
	Registry = prometheus.NewRegistry()

	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refbot",
			Subsystem: "dispatcher",
			Name:      "resolutions_total",
			Help:      "Inbound triggers by resolution result.",
		},
		[]string{"result"},
	)

	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refbot",
			Subsystem: "ledger",
			Name:      "registrations_total",
			Help:      "First-contact registrations, split by whether a referrer was credited.",
		},
		[]string{"referred"},
	)

	credits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refbot",
			Subsystem: "ledger",
			Name:      "credited_amount_total",
			Help:      "Sum of earnings credited by kind.",
		},
		[]string{"kind"},
	)

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "refbot",
			Subsystem: "broadcast",
			Name:      "deliveries_total",
			Help:      "Broadcast forwards by outcome.",
		},
		[]string{"status"},
	)

	sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "refbot",
			Subsystem: "authoring",
			Name:      "active_sessions",
			Help:      "Authoring sessions currently open.",
		},
	)
)

func init() {
	Registry.MustRegister(dispatches, registrations, credits, deliveries, sessions)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordDispatch(result string) {
	dispatches.WithLabelValues(result).Inc()
}

func RecordRegistration(referred bool) {
	label := "false"
	if referred {
		label = "true"
	}
	registrations.WithLabelValues(label).Inc()
}

func RecordCredit(kind string, amount float64) {
	if amount <= 0 {
		return
	}
	credits.WithLabelValues(kind).Add(amount)
}

func RecordDelivery(ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	deliveries.WithLabelValues(status).Inc()
}

func SetActiveSessions(n int) {
	sessions.Set(float64(n))
}
