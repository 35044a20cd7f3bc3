// Package geovisor contains the Datastar SSE handlers behind the map page.
// Every control posts its signals here; the handler turns them into one
// view state action, dispatches it on the caller's session and patches the
// re-rendered styles and readouts back.
package geovisor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geovisor/internal/aquifer"
	"github.com/joeblew999/geovisor/internal/humastar"
	"github.com/joeblew999/geovisor/internal/service"
	"github.com/joeblew999/geovisor/internal/templates"
)

// Tag marks the Datastar operations in the OpenAPI document.
const Tag = "geovisor"

const basePath = "/api/v1/geovisor"

const selectPlaceholder = "-- Mostrar todos --"

// Handler serves the geovisor page and its SSE endpoints.
type Handler struct {
	humastar.Handler
	data     *service.DataService
	sessions *service.SessionStore
	bus      *service.EventBus
	config   service.MapConfig
}

// New creates the handler. A nil bus means service.DefaultBus.
func New(data *service.DataService, sessions *service.SessionStore, bus *service.EventBus,
	renderer *templates.Renderer, config service.MapConfig) *Handler {
	if bus == nil {
		bus = service.DefaultBus
	}
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		data:     data,
		sessions: sessions,
		bus:      bus,
		config:   config,
	}
}

func operation(name string) func(*huma.Operation) {
	return func(o *huma.Operation) {
		o.OperationID = Tag + "-" + name
		o.Tags = []string{Tag}
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, basePath+"/events", h.Events, operation("events"))
	huma.Post(api, basePath+"/opacity", h.Opacity, operation("opacity"))
	huma.Post(api, basePath+"/filter", h.Filter, operation("filter"))
	huma.Post(api, basePath+"/aquifer", h.Aquifer, operation("aquifer"))
	huma.Post(api, basePath+"/panel", h.Panel, operation("panel"))
	huma.Post(api, basePath+"/render", h.Render, operation("render"))
}

// Opacity handles the slider.
func (h *Handler) Opacity(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	v, ok := signals.Number(SigOpacity)
	if !ok {
		return nil, huma.Error400BadRequest("opacity must be a number")
	}
	return h.dispatch(signals, service.SetOpacity{Value: v}), nil
}

// Filter handles the vulnerability radios.
func (h *Handler) Filter(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	return h.dispatch(signals, service.SetFilter{Filter: service.ParseFilter(signals.String(SigFilter))}), nil
}

// Aquifer handles the aquifer select.
func (h *Handler) Aquifer(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	return h.dispatch(signals, service.SelectAquifer{Name: signals.String(SigAquifer)}), nil
}

// Panel handles the toggle button. The page's current visibility wins over
// the session's, which may have been recreated since the page loaded.
func (h *Handler) Panel(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	var a service.Action = service.TogglePanel{}
	if signals.Has(SigPanel) {
		a = service.SetPanelCollapsed{Collapsed: !signals.Bool(SigPanel)}
	}
	return h.dispatch(signals, a), nil
}

// Render re-sends the current frame without changing the state.
func (h *Handler) Render(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	session := h.sessions.Get(signals.String(SigSession))
	frame := session.Render()
	return h.Stream(func(sse humastar.SSE) {
		out := frameSignals(frame)
		out[SigSession] = session.ID
		sse.Signals(out)
	}), nil
}

func (h *Handler) dispatch(signals humastar.Signals, a service.Action) *huma.StreamResponse {
	session := h.sessions.Get(signals.String(SigSession))
	res := session.Dispatch(a)
	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(resultSignals(session.ID, res))
	})
}

// aquiferOptions renders the select options, sorted by name.
func (h *Handler) aquiferOptions(layer *aquifer.Layer, selected string) string {
	names := layer.Index().NamesSorted()
	options := make([]humastar.SelectOptionData, len(names))
	for i, name := range names {
		options[i] = humastar.SelectOptionData{Value: name, Label: name}
	}
	return h.RenderSelect(selectPlaceholder, selected, options)
}
