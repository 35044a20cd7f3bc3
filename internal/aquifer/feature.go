// Package aquifer loads vulnerability polygons and groups them by aquifer.
package aquifer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geovisor/internal/vulnerability"
)

// Canonical property names. The aliases cover older exports of the same
// dataset and are only consulted when the canonical key is missing.
const (
	PropName  = "NOM_ACUIF"
	PropCode  = "CLAVE_ACUI"
	PropLevel = "VULNERABIL"
)

var (
	nameKeys  = []string{PropName, "NOMBRE"}
	codeKeys  = []string{PropCode, "CLAVE_ACUIF"}
	levelKeys = []string{PropLevel, "Vulnerabil", "Vulberabil", "VULNERA"}
)

// Feature is one loaded polygon with its normalized attributes.
// ID is the position in the layer and is stable for the process lifetime.
type Feature struct {
	ID       int
	Name     string
	Code     string
	Level    vulnerability.Level
	RawLevel string
	Geometry orb.Geometry
}

// Attrs returns the attributes used for styling.
func (f Feature) Attrs() vulnerability.Attrs {
	return vulnerability.Attrs{Name: f.Name, Level: f.Level}
}

// Bound returns the bounding box of the feature geometry.
func (f Feature) Bound() orb.Bound {
	if f.Geometry == nil {
		return orb.Bound{}
	}
	return f.Geometry.Bound()
}

// ParseFeatureCollection decodes a GeoJSON FeatureCollection.
// Features without geometry are dropped; missing or malformed properties
// fall back to empty values instead of failing.
func ParseFeatureCollection(data []byte) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	features := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		features = append(features, featureFromGeoJSON(len(features), f))
	}
	return features, nil
}

func featureFromGeoJSON(id int, f *geojson.Feature) Feature {
	props := f.Properties
	rawLevel := lookup(props, levelKeys)
	return Feature{
		ID:       id,
		Name:     strings.TrimSpace(propString(lookup(props, nameKeys))),
		Code:     strings.TrimSpace(propString(lookup(props, codeKeys))),
		Level:    vulnerability.ParseLevel(rawLevel),
		RawLevel: propString(rawLevel),
		Geometry: f.Geometry,
	}
}

func lookup(props geojson.Properties, keys []string) any {
	if props == nil {
		return nil
	}
	for _, k := range keys {
		if v, ok := props[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// propString renders scalar property values as text.
func propString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
