// Package service contains the geovisor state model and its collaborators:
// view state reducer, render loop, sessions and the one-time data load.
package service

// BaseMap is a selectable tile layer.
type BaseMap struct {
	Name        string `json:"name" doc:"Display name" example:"OpenStreetMap"`
	URL         string `json:"url" doc:"Tile URL template" example:"https://tile.openstreetmap.org/{z}/{x}/{y}.png"`
	Attribution string `json:"attribution" doc:"Attribution HTML"`
	Default     bool   `json:"default" doc:"Whether this base map is shown initially"`
}

// MapConfig holds the compiled-in map settings.
type MapConfig struct {
	Center   [2]float64 `json:"center" doc:"Initial center [lat, lng]"`
	Zoom     int        `json:"zoom" doc:"Initial zoom" example:"5"`
	FitPad   float64    `json:"fitPad" doc:"Padding ratio applied to aquifer bounds" example:"0.1"`
	Title    string     `json:"title" doc:"Panel title"`
	LogoURL  string     `json:"logoUrl" doc:"Logo image URL"`
	BaseMaps []BaseMap  `json:"baseMaps" doc:"Selectable base maps"`
}

// DefaultMapConfig is the map the page starts with.
var DefaultMapConfig = MapConfig{
	Center:  [2]float64{23.6345, -102.5528},
	Zoom:    5,
	FitPad:  0.1,
	Title:   "Vulnerabilidad a la Intrusión Salina",
	LogoURL: "https://raw.githubusercontent.com/Dchable16/geovisor_vulnerabilidad/main/logos/Logo_SSSIG.png",
	BaseMaps: []BaseMap{
		{Name: "Neutral (defecto)", URL: "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png", Attribution: "&copy; CARTO", Default: true},
		{Name: "OpenStreetMap", URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png", Attribution: "&copy; OpenStreetMap"},
		{Name: "Estándar (ESRI)", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Street_Map/MapServer/tile/{z}/{y}/{x}", Attribution: "&copy; Esri"},
		{Name: "Satélite (ESRI)", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}", Attribution: "&copy; Esri"},
		{Name: "Topográfico (ESRI)", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Topo_Map/MapServer/tile/{z}/{y}/{x}", Attribution: "&copy; Esri"},
	},
}

// ViewRequest asks the map to move. Kind is "fit" (Bounds set) or "reset"
// (Center and Zoom set). Seq increases per session so repeated requests
// for the same target are still applied.
type ViewRequest struct {
	Kind   string        `json:"kind" enum:"fit,reset" doc:"Requested view change"`
	Bounds *[2][2]float64 `json:"bounds,omitempty" doc:"Padded bounds [[south, west], [north, east]]"`
	Center *[2]float64    `json:"center,omitempty" doc:"Center [lat, lng]"`
	Zoom   int            `json:"zoom,omitempty" doc:"Zoom level"`
	Seq    uint64         `json:"seq" doc:"Request sequence number"`
}
