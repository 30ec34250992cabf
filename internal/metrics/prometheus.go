package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	routeConnections *prometheus.GaugeVec
	geocodeErrors    *prometheus.CounterVec
	renderCycles     *prometheus.CounterVec
	syncErrors       *prometheus.CounterVec
	mediaUploads     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		routeConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "route_connections",
			Help: "The number of live websocket connections per route",
		}, []string{"route_id"}),
		geocodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geocode_errors",
			Help: "The total number of failed geocoding requests",
		}, []string{"kind"}),
		renderCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "render_cycles",
			Help: "The total number of map render cycles per route",
		}, []string{"route_id"}),
		syncErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_errors",
			Help: "The total number of failed waypoint list refreshes",
		}, []string{"route_id"}),
		mediaUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_uploads",
			Help: "The total number of media uploads",
		}, []string{"kind"}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	prometheus.MustRegister(
		m.routeConnections,
		m.geocodeErrors,
		m.renderCycles,
		m.syncErrors,
		m.mediaUploads)
}

func (m *Metrics) IncrementRouteConnections(routeID string) {
	m.routeConnections.WithLabelValues(routeID).Inc()
}

func (m *Metrics) DecrementRouteConnections(routeID string) {
	m.routeConnections.WithLabelValues(routeID).Dec()
}

func (m *Metrics) IncrementGeocodeErrors(kind string) {
	m.geocodeErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementRenderCycles(routeID string) {
	m.renderCycles.WithLabelValues(routeID).Inc()
}

func (m *Metrics) IncrementSyncErrors(routeID string) {
	m.syncErrors.WithLabelValues(routeID).Inc()
}

func (m *Metrics) IncrementMediaUploads(kind string) {
	m.mediaUploads.WithLabelValues(kind).Inc()
}
