package observability

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"donex/core/events"
)

type eventMetrics struct {
	transfers *prometheus.CounterVec
	donations *prometheus.CounterVec
	volume    *prometheus.CounterVec
	links     *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured contract events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "donex",
				Subsystem: "events",
				Name:      "transfers_total",
				Help:      "Count of bank transfers segmented by denom.",
			}, []string{"denom"}),
			donations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "donex",
				Subsystem: "events",
				Name:      "donations_total",
				Help:      "Count of donations segmented by denom.",
			}, []string{"denom"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "donex",
				Subsystem: "events",
				Name:      "donation_volume",
				Help:      "Gross donated amount segmented by denom. Precision is lost above 2^53.",
			}, []string{"denom"}),
			links: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "donex",
				Subsystem: "events",
				Name:      "social_links_total",
				Help:      "Count of social identity links segmented by platform.",
			}, []string{"platform"}),
		}
		prometheus.MustRegister(eventRegistry.transfers, eventRegistry.donations, eventRegistry.volume, eventRegistry.links)
	})
	return eventRegistry
}

func label(v string) string {
	normalized := strings.TrimSpace(strings.ToLower(v))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// Emit implements events.Emitter so the registry can sit on the node fanout.
func (m *eventMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	generic := events.Generic(evt)
	switch generic.Type {
	case events.TypeTransfer:
		m.transfers.WithLabelValues(label(generic.Attr("denom"))).Inc()
	case events.TypeDonation:
		denom := label(generic.Attr("denom"))
		m.donations.WithLabelValues(denom).Inc()
		if gross, err := strconv.ParseFloat(generic.Attr("gross"), 64); err == nil {
			m.volume.WithLabelValues(denom).Add(gross)
		}
	case events.TypeSocialLinked:
		m.links.WithLabelValues(label(generic.Attr("platform"))).Inc()
	}
}
