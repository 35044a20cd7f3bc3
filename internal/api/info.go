package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geovisor/internal/service"
)

type InfoHandler struct {
	dataDir string
	data    *service.DataService
	dbOK    bool
}

func NewInfoHandler(dataDir string, data *service.DataService, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, data: data, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name       string   `json:"name" doc:"Service name"`
	Version    string   `json:"version" doc:"Service version"`
	DataDir    string   `json:"data_dir" doc:"Data directory path"`
	Source     string   `json:"source" doc:"GeoJSON source location"`
	LoadStatus string   `json:"load_status" enum:"pending,loaded,failed" doc:"Layer load status"`
	LoadError  string   `json:"load_error,omitempty" doc:"Why the layer failed to load"`
	DB         bool     `json:"db" doc:"Whether database is available"`
	Features   []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "geovisor",
		Version:  Version,
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Features: []string{"geojson", "datastar", "mvt", "duckdb", "metrics"},
	}
	if h.data != nil {
		body.Source = h.data.Source()
		body.LoadStatus = string(h.data.Status())
		if err := h.data.Err(); err != nil {
			body.LoadError = err.Error()
		}
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
