package vulnerability

import "fmt"

// LegendItem is one row of the static legend.
type LegendItem struct {
	Level int    `json:"level" doc:"Vulnerability level" example:"3"`
	Label string `json:"label" doc:"Legend label" example:"Media (Nivel 3)"`
	Color string `json:"color" doc:"Legend color (CSS)" example:"#F2B705"`
}

var labels = [...]string{
	VeryLow:  "Muy Baja",
	Low:      "Baja",
	Medium:   "Media",
	High:     "Alta",
	VeryHigh: "Muy Alta",
}

// Label returns the display name of l, or "Sin dato" for unknown levels.
func (l Level) Label() string {
	if !l.Valid() {
		return "Sin dato"
	}
	return labels[l]
}

// Legend returns the five legend rows from lowest to highest severity.
func Legend() []LegendItem {
	items := make([]LegendItem, 0, int(VeryHigh))
	for l := VeryLow; l <= VeryHigh; l++ {
		items = append(items, LegendItem{
			Level: int(l),
			Label: fmt.Sprintf("%s (Nivel %d)", l.Label(), l),
			Color: l.Color(),
		})
	}
	return items
}
