// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geovisor/internal/aquifer"
	"github.com/joeblew999/geovisor/internal/humastar"
	"github.com/joeblew999/geovisor/internal/service"
	"github.com/joeblew999/geovisor/internal/tiles"
	"github.com/joeblew999/geovisor/internal/vulnerability"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Data   *service.DataService
	Config service.MapConfig
}

// Types

type NameInput struct {
	Name string `path:"name" doc:"Aquifer name" example:"Valle de Toluca"`
}

type PageInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Page size"`
}

type TileInput struct {
	Z int `path:"z" minimum:"0" maximum:"14" doc:"Zoom level"`
	X int `path:"x" minimum:"0" doc:"Tile column"`
	Y int `path:"y" minimum:"0" doc:"Tile row (XYZ scheme)"`
}

// TileOutput is a gzipped Mapbox vector tile, or 204 for empty tiles.
type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	CacheControl    string `header:"Cache-Control"`
	Body            []byte
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

// AquiferSummary is one row of the aquifer list.
type AquiferSummary struct {
	Name     string `json:"name" doc:"Aquifer name" example:"Valle de Toluca"`
	Features int    `json:"features" doc:"Number of polygons in the group" example:"2"`
}

// AquiferDetail describes one aquifer group.
type AquiferDetail struct {
	Name       string        `json:"name" doc:"Aquifer name"`
	Codes      []string      `json:"codes" doc:"Distinct aquifer codes of the members"`
	FeatureIDs []int         `json:"featureIds" doc:"Member feature ids in load order"`
	Bounds     [2][2]float64 `json:"bounds" doc:"Union of member bounds [[south, west], [north, east]]"`
	FitBounds  [2][2]float64 `json:"fitBounds" doc:"Bounds padded the way the map fits them"`
}

var aquiferActions = []humastar.ActionDef{
	{Rel: "preview", Pattern: "/api/v1/styles", Method: "POST", Title: "Preview styles with this aquifer selected"},
}

// Actions implements humastar.Actor.
func (d AquiferDetail) Actions() []humastar.Action {
	return humastar.ActionsFor(d.Name, aquiferActions)
}

// StylesRequest is a view state to resolve styles for.
type StylesRequest struct {
	Opacity float64 `json:"opacity" minimum:"0" maximum:"1" default:"0.8" doc:"Fill opacity (0-1)"`
	Filter  string  `json:"filter,omitempty" default:"all" doc:"Highlighted level: all or 1-5" example:"3"`
	Aquifer string  `json:"aquifer,omitempty" doc:"Selected aquifer name"`
}

// LevelCount is the number of features at one level.
type LevelCount struct {
	Level int    `json:"level" doc:"Vulnerability level, 0 for unknown"`
	Label string `json:"label" doc:"Level label"`
	Color string `json:"color" doc:"Fill color (CSS)"`
	Count int    `json:"count" doc:"Number of features"`
}

// SummaryBody describes the loaded layer.
type SummaryBody struct {
	Features int          `json:"features" doc:"Total features"`
	Aquifers int          `json:"aquifers" doc:"Named aquifer groups"`
	Unnamed  int          `json:"unnamed" doc:"Features without a name"`
	Levels   []LevelCount `json:"levels" doc:"Feature counts per level, unknown first"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc   *Services
	tiles *tiles.Cache
}

func NewAPIHandler(svc *Services) *APIHandler {
	h := &APIHandler{svc: svc}
	if svc != nil && svc.Data != nil {
		h.tiles = tiles.NewCache(svc.Data, 0)
	}
	return h
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayer registers the vulnerability layer routes.
func (h *APIHandler) RegisterLayer(api huma.API) {
	huma.Get(api, "/api/v1/layer", h.GetLayer, huma.OperationTags("layer"))
	huma.Get(api, "/api/v1/summary", h.GetSummary, huma.OperationTags("layer"))
	huma.Post(api, "/api/v1/styles", h.PostStyles, huma.OperationTags("layer"))
	huma.Get(api, "/api/v1/tiles/{z}/{x}/{y}", h.GetTile, huma.OperationTags("layer"))
}

// RegisterAquifers registers aquifer index routes.
func (h *APIHandler) RegisterAquifers(api huma.API) {
	huma.Get(api, "/api/v1/aquifers", h.GetAquifers, huma.OperationTags("aquifers"))
	huma.Get(api, "/api/v1/aquifers/{name}", h.GetAquifer, huma.OperationTags("aquifers"))
}

// RegisterMap registers the static map configuration routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/legend", h.GetLegend, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/basemaps", h.GetBaseMaps, huma.OperationTags("map"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *struct{}) (*struct {
	Body *geojson.FeatureCollection
}, error) {
	layer, err := h.layer()
	if err != nil {
		return nil, err
	}
	return &struct{ Body *geojson.FeatureCollection }{Body: layer.GeoJSON()}, nil
}

func (h *APIHandler) GetSummary(ctx context.Context, input *struct{}) (*struct{ Body SummaryBody }, error) {
	layer, err := h.layer()
	if err != nil {
		return nil, err
	}
	counts := layer.Counts()
	body := SummaryBody{
		Features: layer.Len(),
		Aquifers: layer.Index().Len(),
	}
	for _, f := range layer.Features() {
		if f.Name == "" {
			body.Unnamed++
		}
	}
	for l := vulnerability.Unknown; l <= vulnerability.VeryHigh; l++ {
		body.Levels = append(body.Levels, LevelCount{
			Level: int(l),
			Label: l.Label(),
			Color: l.Color(),
			Count: counts[l],
		})
	}
	return &struct{ Body SummaryBody }{Body: body}, nil
}

func (h *APIHandler) PostStyles(ctx context.Context, input *struct{ Body StylesRequest }) (*struct{ Body service.Frame }, error) {
	layer, err := h.layer()
	if err != nil {
		return nil, err
	}
	state := service.NewViewState()
	state.Apply(service.SetOpacity{Value: input.Body.Opacity})
	state.Apply(service.SetFilter{Filter: service.ParseFilter(input.Body.Filter)})
	if layer.Index().Has(input.Body.Aquifer) {
		state.Apply(service.SelectAquifer{Name: input.Body.Aquifer})
	}
	return &struct{ Body service.Frame }{Body: service.Render(layer, state)}, nil
}

func (h *APIHandler) GetTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	if _, err := h.layer(); err != nil {
		return nil, err
	}
	if !tiles.Valid(input.Z, input.X, input.Y) {
		return nil, huma.Error400BadRequest("tile out of range for zoom")
	}
	data, err := h.tiles.Tile(input.Z, input.X, input.Y)
	if err != nil {
		return nil, huma.Error500InternalServerError("rendering tile", err)
	}
	if data == nil {
		return &TileOutput{Status: http.StatusNoContent}, nil
	}
	return &TileOutput{
		Status:          http.StatusOK,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		CacheControl:    "public, max-age=3600",
		Body:            data,
	}, nil
}

func (h *APIHandler) GetAquifers(ctx context.Context, input *PageInput) (*struct {
	Body humastar.PageBody[AquiferSummary]
}, error) {
	layer, err := h.layer()
	if err != nil {
		return nil, err
	}
	idx := layer.Index()
	names := idx.NamesSorted()
	items := make([]AquiferSummary, len(names))
	for i, name := range names {
		items[i] = AquiferSummary{Name: name, Features: len(idx.Members(name))}
	}
	return &struct {
		Body humastar.PageBody[AquiferSummary]
	}{Body: humastar.Paginate(items, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) GetAquifer(ctx context.Context, input *NameInput) (*struct{ Body AquiferDetail }, error) {
	layer, err := h.layer()
	if err != nil {
		return nil, err
	}
	idx := layer.Index()
	b, ok := idx.BoundsOf(input.Name)
	if !ok {
		return nil, huma.Error404NotFound("aquifer not found")
	}

	detail := AquiferDetail{
		Name:       input.Name,
		Codes:      []string{},
		FeatureIDs: idx.Members(input.Name),
		Bounds:     aquifer.LatLngBounds(b),
		FitBounds:  aquifer.LatLngBounds(aquifer.Pad(b, h.svc.Config.FitPad)),
	}
	seen := map[string]bool{}
	features := layer.Features()
	for _, id := range detail.FeatureIDs {
		code := features[id].Code
		if code != "" && !seen[code] {
			seen[code] = true
			detail.Codes = append(detail.Codes, code)
		}
	}
	return &struct{ Body AquiferDetail }{Body: detail}, nil
}

func (h *APIHandler) GetLegend(ctx context.Context, input *struct{}) (*struct {
	Body []vulnerability.LegendItem
}, error) {
	return &struct{ Body []vulnerability.LegendItem }{Body: vulnerability.Legend()}, nil
}

func (h *APIHandler) GetBaseMaps(ctx context.Context, input *struct{}) (*struct{ Body service.MapConfig }, error) {
	return &struct{ Body service.MapConfig }{Body: h.svc.Config}, nil
}

// layer returns the loaded layer or the HTTP error matching the load status.
func (h *APIHandler) layer() (*aquifer.Layer, error) {
	if h.svc == nil || h.svc.Data == nil {
		return nil, huma.Error503ServiceUnavailable("data service not available")
	}
	switch h.svc.Data.Status() {
	case service.LoadPending:
		return nil, huma.Error503ServiceUnavailable("layer is still loading")
	case service.LoadFailed:
		return nil, huma.Error500InternalServerError("layer failed to load", h.svc.Data.Err())
	}
	return h.svc.Data.Layer(), nil
}
