// Package metrics exposes Prometheus collectors for the geovisor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geovisor_actions_total",
		Help: "View state actions applied, by kind",
	}, []string{"kind"})
	RenderPassesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geovisor_render_passes_total",
		Help: "Render loop passes",
	})
	RenderedFeatures = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geovisor_rendered_features",
		Help:    "Features styled per render pass",
		Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 5000},
	})
	DataLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geovisor_data_loads_total",
		Help: "Data load attempts by result",
	}, []string{"result"})
	LayerFeatures = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geovisor_layer_features",
		Help: "Features in the loaded layer",
	})
	Sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geovisor_sessions",
		Help: "Live view sessions",
	})
)

func init() {
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(RenderPassesTotal)
	prometheus.MustRegister(RenderedFeatures)
	prometheus.MustRegister(DataLoadsTotal)
	prometheus.MustRegister(LayerFeatures)
	prometheus.MustRegister(Sessions)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
