package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "compssr"

// metrics holds Prometheus collectors for page rendering.
type metrics struct {
	renders    *prometheus.CounterVec
	duration   prometheus.Histogram
	components *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_total",
			Help:      "Total number of rendered pages by outcome",
		}, []string{"status"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Page rendering duration in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		components: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "components_rendered_total",
			Help:      "Total number of pages in which component was rendered",
		}, []string{"tag"}),
	}
}

func (m *metrics) observe(seconds float64, tags []string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.renders.WithLabelValues(status).Inc()
	m.duration.Observe(seconds)
	for _, tag := range tags {
		m.components.WithLabelValues(tag).Inc()
	}
}
