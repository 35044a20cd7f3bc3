// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// It provides:
//   - SSE: Huma streaming → Datastar SSE protocol via [SSE] and [NewSSE]
//   - Signals: Datastar signal parsing via [Signals], [SignalsInput] and [QueryInput]
//   - Rendering: select option fragments via [RenderSelect]
//   - Handler: embeddable base for geovisor SSE handlers via [Handler]
//
// Usage:
//
//	type OpacityHandler struct {
//	    humastar.Handler
//	    sessions *service.SessionStore
//	}
//
//	func (h *OpacityHandler) Set(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
//	    signals, err := input.MustParse()
//	    if err != nil {
//	        return nil, err
//	    }
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Signals(map[string]any{"opacitylabel": "80%"})
//	    }), nil
//	}
package humastar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/geovisor/internal/templates"
)

// ---------------------------------------------------------------------------
// Handler: embeddable base for Datastar SSE handlers
// ---------------------------------------------------------------------------

// Handler is an embeddable base for Huma handlers that produce Datastar SSE
// responses. It holds a [templates.Renderer] and provides convenience methods
// to create streams and render fragments.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// RenderSelect renders select options from a placeholder and option list.
func (h *Handler) RenderSelect(placeholder, selected string, options []SelectOptionData) string {
	return RenderSelect(h.Renderer, placeholder, selected, options)
}

// ---------------------------------------------------------------------------
// SSE: Huma ↔ Datastar bridge
// ---------------------------------------------------------------------------

// SSE wraps a Datastar SSE generator with convenience methods for common
// patterns: signal patches and inner/outer element patching.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch sends HTML to replace inner content at a CSS selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
	)
}

// Replace replaces outer HTML at a CSS selector.
func (s SSE) Replace(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeOuter(),
		datastar.WithViewTransitions(),
	)
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// ---------------------------------------------------------------------------
// Signals: Datastar signal parsing
// ---------------------------------------------------------------------------

// Signals provides lenient access to Datastar signal values.
// Datastar sends all signals as a flat JSON object: in the request body for
// POST and in the "datastar" query parameter for GET. Bound inputs may
// deliver numbers as strings, so the typed getters accept both.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw JSON document.
// An empty document yields empty signals.
func ParseSignals(body []byte) (Signals, error) {
	signals := Signals{}
	if len(bytes.TrimSpace(body)) == 0 {
		return signals, nil
	}
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal value, or empty string if not found.
// Numbers and booleans are formatted.
func (s Signals) String(key string) string {
	switch v := s[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Int returns an int signal value, or 0 if not found or not numeric.
func (s Signals) Int(key string) int {
	return int(s.Float(key))
}

// Float returns a float64 signal value, or 0 if not found or not numeric.
func (s Signals) Float(key string) float64 {
	f, _ := s.Number(key)
	return f
}

// Number is like Float but reports whether the value was numeric.
func (s Signals) Number(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Bool returns a bool signal value, or false if not found.
func (s Signals) Bool(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Has returns true if the signal key exists (even if zero-valued).
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// ---------------------------------------------------------------------------
// Input types
// ---------------------------------------------------------------------------

// EmptyInput is a shared input struct for handlers with no parameters.
type EmptyInput struct{}

// SignalsInput is an input struct for POST handlers that receive Datastar signals.
type SignalsInput struct {
	RawBody []byte
}

// Parse parses the signals from the raw body.
func (i *SignalsInput) Parse() (Signals, error) {
	return ParseSignals(i.RawBody)
}

// MustParse parses signals or returns a Huma 400 error.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}

// QueryInput is an input struct for GET handlers; Datastar puts the signals
// in the "datastar" query parameter.
type QueryInput struct {
	Datastar string `query:"datastar" doc:"Datastar signals as JSON"`
}

// MustParse parses signals or returns a Huma 400 error.
func (i *QueryInput) MustParse() (Signals, error) {
	signals, err := ParseSignals([]byte(i.Datastar))
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}

// ---------------------------------------------------------------------------
// Rendering helpers
// ---------------------------------------------------------------------------

// SelectOptionData holds data for rendering a <select> option template.
type SelectOptionData struct {
	Value    string
	Label    string
	Selected bool
}

// RenderSelect renders <option> elements from a placeholder and option list,
// marking the option whose value equals selected.
func RenderSelect(r *templates.Renderer, placeholder, selected string, options []SelectOptionData) string {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, "select-option", SelectOptionData{Label: placeholder, Selected: selected == ""}); err != nil {
		return fmt.Sprintf("<!-- %s -->", err)
	}
	for _, opt := range options {
		opt.Selected = opt.Value == selected
		r.RenderToBuffer(&buf, "select-option", opt)
	}
	return buf.String()
}
