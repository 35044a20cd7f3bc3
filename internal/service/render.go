package service

import (
	"fmt"
	"math"

	"github.com/joeblew999/geovisor/internal/aquifer"
	"github.com/joeblew999/geovisor/internal/vulnerability"
)

// Frame is the output of one render pass.
type Frame struct {
	Styles       []vulnerability.Style `json:"styles" doc:"Style per feature, indexed by feature id"`
	Opacity      float64               `json:"opacity" doc:"Opacity slider position"`
	OpacityLabel string                `json:"opacityLabel" doc:"Opacity readout" example:"80%"`
	Filter       string                `json:"filter" doc:"Active filter radio value" example:"all"`
	Selected     string                `json:"selected" doc:"Selected aquifer name"`
}

// Render recomputes the style of every loaded feature from s and refreshes
// the readouts. A nil layer yields no styles. Render is pure.
func Render(layer *aquifer.Layer, s ViewState) Frame {
	f := Frame{
		Opacity:      s.Opacity,
		OpacityLabel: OpacityLabel(s.Opacity),
		Filter:       FilterValue(s.Filter),
		Selected:     s.SelectedAquifer,
	}
	if layer == nil {
		return f
	}

	view := s.View()
	features := layer.Features()
	f.Styles = make([]vulnerability.Style, len(features))
	for i, feat := range features {
		f.Styles[i] = vulnerability.StyleFor(feat.Attrs(), view)
	}
	return f
}

// OpacityLabel formats an opacity as a rounded percentage.
func OpacityLabel(op float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(op*100)))
}
