package aquifer

import (
	"html"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geovisor/internal/vulnerability"
)

// Layer is the loaded vulnerability layer: the feature arena plus its index.
type Layer struct {
	features []Feature
	index    *Index
}

// NewLayer indexes features. Feature IDs are reassigned to their position.
func NewLayer(features []Feature) *Layer {
	for i := range features {
		features[i].ID = i
	}
	return &Layer{features: features, index: NewIndex(features)}
}

// LoadLayer parses a GeoJSON FeatureCollection into a Layer.
func LoadLayer(data []byte) (*Layer, error) {
	features, err := ParseFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return NewLayer(features), nil
}

// Len returns the number of features.
func (l *Layer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.features)
}

// Features returns the feature arena. Callers must not modify it.
func (l *Layer) Features() []Feature {
	if l == nil {
		return nil
	}
	return l.features
}

// Index returns the aquifer index.
func (l *Layer) Index() *Index {
	if l == nil {
		return NewIndex(nil)
	}
	return l.index
}

// Counts returns the number of features per level; Unknown collects the rest.
func (l *Layer) Counts() map[vulnerability.Level]int {
	counts := make(map[vulnerability.Level]int)
	for _, f := range l.Features() {
		counts[f.Level]++
	}
	return counts
}

// GeoJSON returns the layer as a FeatureCollection for the map. Each feature
// carries its numeric id, the normalized attributes and the popup HTML.
func (l *Layer) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range l.Features() {
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = f.ID
		gf.Properties["name"] = f.Name
		gf.Properties["code"] = f.Code
		gf.Properties["level"] = int(f.Level)
		gf.Properties["popup"] = Popup(f)
		fc.Append(gf)
	}
	return fc
}

// Popup builds the static popup HTML for a feature. Empty fields are omitted.
func Popup(f Feature) string {
	var rows []string
	if f.Name != "" {
		rows = append(rows, "<strong>Acuífero:</strong> "+html.EscapeString(f.Name))
	}
	if f.Code != "" {
		rows = append(rows, "<strong>Clave:</strong> "+html.EscapeString(f.Code))
	}
	if f.RawLevel != "" {
		rows = append(rows, "<strong>Vulnerabilidad:</strong> "+html.EscapeString(f.RawLevel))
	}
	return strings.Join(rows, "<br>")
}
