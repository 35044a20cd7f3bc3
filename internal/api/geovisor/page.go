package geovisor

import (
	"bytes"
	"net/http"

	"github.com/joeblew999/geovisor/internal/humastar"
	"github.com/joeblew999/geovisor/internal/logger"
	"github.com/joeblew999/geovisor/internal/service"
	"github.com/joeblew999/geovisor/internal/vulnerability"
)

// LayerURL is where the page script fetches the GeoJSON layer.
const LayerURL = "/api/v1/layer"

// ClientConfig is handed to the page script as window.GEOVISOR_CONFIG.
type ClientConfig struct {
	Center   [2]float64        `json:"center"`
	Zoom     int               `json:"zoom"`
	BaseMaps []service.BaseMap `json:"baseMaps"`
	LogoURL  string            `json:"logoUrl"`
	LayerURL string            `json:"layerUrl"`
	Hover    map[string]any    `json:"hover"`
}

// Page returns the handler for the map page. Each page load starts a new
// session whose id travels in the signals.
func (h *Handler) Page(routes humastar.Routes) http.HandlerFunc {
	client := ClientConfig{
		Center:   h.config.Center,
		Zoom:     h.config.Zoom,
		BaseMaps: h.config.BaseMaps,
		LogoURL:  h.config.LogoURL,
		LayerURL: LayerURL,
		Hover:    vulnerability.HoverOptions(),
	}
	legend := vulnerability.Legend()

	return func(w http.ResponseWriter, r *http.Request) {
		session := h.sessions.Create()
		state := session.State()

		data := humastar.PageData{
			Signals: initialSignals(session.ID, service.Render(nil, state), h.data.Status(), state.PanelCollapsed),
			Routes:  routes,
			Client:  client,
			Config:  h.config,
			Legend:  legend,
		}

		var buf bytes.Buffer
		if err := h.Renderer.RenderToBuffer(&buf, "geovisor", data); err != nil {
			logger.L().Error("page_render_failed", "err", err)
			http.Error(w, "Failed to render page", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		buf.WriteTo(w)
	}
}
