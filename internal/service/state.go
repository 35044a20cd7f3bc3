package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/joeblew999/geovisor/internal/vulnerability"
)

// DefaultOpacity is the fill opacity a new session starts with.
const DefaultOpacity = 0.8

// ViewState is the mutable state every control reads and writes.
// Each Action changes exactly one field.
type ViewState struct {
	Opacity         float64              `json:"opacity" minimum:"0" maximum:"1" default:"0.8" doc:"Fill opacity (0-1)"`
	Filter          vulnerability.Filter `json:"filter" minimum:"0" maximum:"5" default:"0" doc:"Highlighted level, 0 for all"`
	SelectedAquifer string               `json:"selectedAquifer,omitempty" doc:"Selected aquifer name, empty for none"`
	PanelCollapsed  bool                 `json:"panelCollapsed" doc:"Whether the control panel is collapsed"`
}

// NewViewState returns the startup defaults.
func NewViewState() ViewState {
	return ViewState{Opacity: DefaultOpacity, Filter: vulnerability.FilterAll}
}

// View returns the styling part of the state.
func (s ViewState) View() vulnerability.View {
	return vulnerability.View{
		Opacity:  s.Opacity,
		Filter:   s.Filter,
		Selected: s.SelectedAquifer,
	}
}

// Action is a single UI intent. The set is closed.
type Action interface {
	// Kind names the action for logs and metrics.
	Kind() string
	apply(*ViewState)
}

// SetOpacity sets the fill opacity. Values are clamped to [0,1]; NaN is ignored.
type SetOpacity struct{ Value float64 }

// SetFilter sets the highlighted level.
type SetFilter struct{ Filter vulnerability.Filter }

// SelectAquifer selects an aquifer by name; empty clears the selection.
type SelectAquifer struct{ Name string }

// SetPanelCollapsed shows or hides the control panel.
type SetPanelCollapsed struct{ Collapsed bool }

// TogglePanel flips the panel visibility.
type TogglePanel struct{}

func (SetOpacity) Kind() string        { return "opacity" }
func (SetFilter) Kind() string         { return "filter" }
func (SelectAquifer) Kind() string     { return "aquifer" }
func (SetPanelCollapsed) Kind() string { return "panel" }
func (TogglePanel) Kind() string       { return "panel" }

func (a SetOpacity) apply(s *ViewState) {
	if math.IsNaN(a.Value) {
		return
	}
	s.Opacity = math.Max(0, math.Min(1, a.Value))
}

func (a SetFilter) apply(s *ViewState) {
	if a.Filter < vulnerability.FilterAll || a.Filter > vulnerability.Filter(vulnerability.VeryHigh) {
		s.Filter = vulnerability.FilterAll
		return
	}
	s.Filter = a.Filter
}

func (a SelectAquifer) apply(s *ViewState)     { s.SelectedAquifer = a.Name }
func (a SetPanelCollapsed) apply(s *ViewState) { s.PanelCollapsed = a.Collapsed }
func (TogglePanel) apply(s *ViewState)         { s.PanelCollapsed = !s.PanelCollapsed }

// Apply mutates s according to a.
func (s *ViewState) Apply(a Action) {
	a.apply(s)
}

// ParseFilter reads a radio value ("all", "1".."5"). Anything else is all.
func ParseFilter(v string) vulnerability.Filter {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return vulnerability.FilterAll
	}
	n, err := strconv.Atoi(v)
	if err != nil || !vulnerability.Level(n).Valid() {
		return vulnerability.FilterAll
	}
	return vulnerability.Filter(n)
}

// FilterValue is the inverse of ParseFilter.
func FilterValue(f vulnerability.Filter) string {
	if f == vulnerability.FilterAll {
		return "all"
	}
	return strconv.Itoa(int(f))
}
