package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/jackpot/internal/domain"
	"github.com/victornm/jackpot/internal/event"
)

const namespace = "jackpot"

// Metrics holds the service's prometheus collectors. Game counters are fed from the event bus so services stay
// unaware of them.
type Metrics struct {
	Spins            *prometheus.CounterVec
	Jackpots         prometheus.Counter
	ScoreSubmissions prometheus.Counter
	MiniAppEvents    *prometheus.CounterVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Spins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_total",
			Help:      "Number of outcomes drawn, by payout label and badge.",
		}, []string{"label", "badge"}),
		Jackpots: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jackpots_total",
			Help:      "Number of jackpot outcomes drawn.",
		}),
		ScoreSubmissions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_submissions_total",
			Help:      "Number of accepted leaderboard score submissions.",
		}),
		MiniAppEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "miniapp_events_total",
			Help:      "Number of mini-app lifecycle notifications received, by event type.",
		}, []string{"event"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Subscribe feeds the game counters from bus events.
func (m *Metrics) Subscribe(eb *event.Bus) {
	eb.Subscribe(domain.EventNameSpinDrawn, func(_ context.Context, e event.Event) error {
		d := e.(domain.EventSpinDrawn)
		m.Spins.WithLabelValues(d.Label, d.Outcome.Badge).Inc()
		if d.Outcome.IsJackpot {
			m.Jackpots.Inc()
		}
		return nil
	})

	eb.Subscribe(domain.EventNameScoreSubmitted, func(context.Context, event.Event) error {
		m.ScoreSubmissions.Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameMiniApp, func(_ context.Context, e event.Event) error {
		m.MiniAppEvents.WithLabelValues(miniAppEventLabel(e.(domain.EventMiniApp).Type)).Inc()
		return nil
	})
}

// miniAppEventLabel bounds the label cardinality, the event type comes from outside.
func miniAppEventLabel(t string) string {
	switch t {
	case "miniapp.installed", "miniapp.launched", "miniapp.uninstalled":
		return t
	default:
		return "unknown"
	}
}
