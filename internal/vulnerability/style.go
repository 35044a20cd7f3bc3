package vulnerability

// Style is the visual contract handed to the map for one feature.
// JSON keys match Leaflet path options so the page can pass it to setStyle.
type Style struct {
	FillColor   string  `json:"fillColor" doc:"Fill color (CSS)" example:"#F2B705"`
	Color       string  `json:"color" doc:"Stroke color (CSS)" example:"white"`
	Weight      float64 `json:"weight" doc:"Stroke width in pixels" example:"1.5"`
	Opacity     float64 `json:"opacity" doc:"Stroke opacity (0-1)" example:"1"`
	FillOpacity float64 `json:"fillOpacity" doc:"Fill opacity (0-1)" example:"0.8"`
	DashArray   string  `json:"dashArray" doc:"Stroke dash pattern, empty for solid"`
}

// Fixed style parts.
var (
	Muted = Style{
		FillColor:   "#A9A9A9",
		Color:       "#A9A9A9",
		Weight:      1,
		Opacity:     1,
		FillOpacity: 0.2,
	}

	baseStroke = Style{Color: "white", Weight: 1.5, Opacity: 1}

	selectionStroke = Style{Color: "#00FFFF", Weight: 4, Opacity: 1}
)

// Filter restricts which level is highlighted. FilterAll highlights every
// feature; 1..5 highlight a single level.
type Filter int

// FilterAll disables category filtering.
const FilterAll Filter = 0

// Matches reports whether a feature of level l passes the filter.
func (f Filter) Matches(l Level) bool {
	return f == FilterAll || Level(f) == l
}

// Attrs is the subset of feature properties the resolver reads.
type Attrs struct {
	Name  string
	Level Level
}

// View is the part of the view state that drives styling.
type View struct {
	Opacity  float64
	Filter   Filter
	Selected string
}

// StyleFor resolves the final style of one feature.
// Features excluded by the filter get Muted and are never shown as selected.
func StyleFor(a Attrs, v View) Style {
	if !v.Filter.Matches(a.Level) {
		return Muted
	}

	s := baseStroke
	s.FillColor = a.Level.Color()
	s.FillOpacity = v.Opacity

	if v.Selected != "" && a.Name == v.Selected {
		s.Color = selectionStroke.Color
		s.Weight = selectionStroke.Weight
		s.Opacity = selectionStroke.Opacity
	}
	return s
}

// Pointer highlight values.
const (
	hoverWeight      = 3
	hoverColor       = "#000"
	hoverFillOpacity = 0.95
)

// Hover overlays the transient pointer highlight on s.
func Hover(s Style) Style {
	s.Weight = hoverWeight
	s.Color = hoverColor
	s.DashArray = ""
	s.FillOpacity = hoverFillOpacity
	return s
}

// HoverOptions is the Hover overlay as partial Leaflet path options, for
// the page script to merge onto a feature on pointer-enter.
func HoverOptions() map[string]any {
	return map[string]any{
		"weight":      hoverWeight,
		"color":       hoverColor,
		"dashArray":   "",
		"fillOpacity": hoverFillOpacity,
	}
}
