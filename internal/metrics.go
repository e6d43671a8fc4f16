package internal

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for tree and broadcast activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	treesPlanted     prometheus.Counter
	treesLive        prometheus.Gauge
	broadcastPublish *prometheus.CounterVec
	broadcastEvict   *prometheus.CounterVec
	sectionsOpened   prometheus.Counter
	trailSyntheses   *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on duplicate registration.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		treesPlanted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tasktree",
			Name:      "trees_planted_total",
			Help:      "Total number of task trees planted.",
		}),
		treesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tasktree",
			Name:      "trees_live",
			Help:      "Number of task trees currently planted.",
		}),
		broadcastPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasktree",
			Subsystem: "broadcast",
			Name:      "published_total",
			Help:      "Values published per broadcast.",
		}, []string{"broadcast"}),
		broadcastEvict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasktree",
			Subsystem: "broadcast",
			Name:      "evictions_total",
			Help:      "Pending values replaced before a subscriber received them.",
		}, []string{"broadcast"}),
		sectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tasktree",
			Name:      "sections_opened_total",
			Help:      "Total number of sections entered.",
		}),
		trailSyntheses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasktree",
			Name:      "trail_syntheses_total",
			Help:      "Trail syntheses by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.treesPlanted,
		m.treesLive,
		m.broadcastPublish,
		m.broadcastEvict,
		m.sectionsOpened,
		m.trailSyntheses,
	)

	return m
}

func (m *Metrics) treePlanted() {
	if m == nil {
		return
	}
	m.treesPlanted.Inc()
	m.treesLive.Inc()
}

func (m *Metrics) treeReleased() {
	if m == nil {
		return
	}
	m.treesLive.Dec()
}

func (m *Metrics) published(name string) {
	if m == nil {
		return
	}
	m.broadcastPublish.WithLabelValues(name).Inc()
}

func (m *Metrics) evicted(name string) {
	if m == nil {
		return
	}
	m.broadcastEvict.WithLabelValues(name).Inc()
}

func (m *Metrics) sectionOpened() {
	if m == nil {
		return
	}
	m.sectionsOpened.Inc()
}

func (m *Metrics) synthesized(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.trailSyntheses.WithLabelValues(result).Inc()
}
