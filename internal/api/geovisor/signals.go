package geovisor

import (
	"github.com/joeblew999/geovisor/internal/service"
	"github.com/joeblew999/geovisor/internal/vulnerability"
)

// Signal names. They are lowercase because data-bind lowercases them.
const (
	SigSession      = "sessionid"
	SigOpacity      = "opacity"
	SigOpacityLabel = "opacitylabel"
	SigFilter       = "filter"
	SigAquifer      = "aquifer"
	SigPanel        = "panelcollapsed"
	SigStyles       = "styles"
	SigView         = "view"
	SigLayerStatus  = "layerstatus"
	SigLoadError    = "loaderror"
)

// frameSignals maps a render pass onto the signals the page binds to.
func frameSignals(f service.Frame) map[string]any {
	styles := f.Styles
	if styles == nil {
		styles = []vulnerability.Style{}
	}
	return map[string]any{
		SigStyles:       styles,
		SigOpacity:      f.Opacity,
		SigOpacityLabel: f.OpacityLabel,
		SigFilter:       f.Filter,
		SigAquifer:      f.Selected,
	}
}

// resultSignals maps a dispatch result onto signals. Only what the action
// touched is sent.
func resultSignals(id string, res service.Result) map[string]any {
	signals := map[string]any{}
	if res.Frame != nil {
		signals = frameSignals(*res.Frame)
	}
	if res.View != nil {
		signals[SigView] = res.View
	}
	signals[SigSession] = id
	signals[SigPanel] = res.State.PanelCollapsed
	return signals
}

// initialSignals are the data-signals a fresh page starts with. Styles
// arrive over the events stream once the layer is available.
func initialSignals(id string, f service.Frame, status service.LoadStatus, panel bool) map[string]any {
	signals := frameSignals(f)
	signals[SigStyles] = []vulnerability.Style{}
	signals[SigSession] = id
	signals[SigPanel] = panel
	signals[SigView] = map[string]any{}
	signals[SigLayerStatus] = string(status)
	signals[SigLoadError] = ""
	return signals
}
