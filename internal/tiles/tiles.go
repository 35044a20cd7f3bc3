// Package tiles cuts the vulnerability layer into Mapbox vector tiles for
// GIS clients that prefer tiles over the full GeoJSON layer.
//
// Tiles are rendered on demand from the in-memory layer and cached; the
// layer never changes after it has loaded.
package tiles

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/geovisor/internal/aquifer"
)

const (
	// LayerName is the MVT layer every tile carries.
	LayerName = "vulnerabilidad"
	// MaxZoom is the deepest zoom served.
	MaxZoom = 14

	defaultCacheSize = 4096
)

// Source provides the loaded layer, or nil while it is not available.
type Source interface {
	Layer() *aquifer.Layer
}

// Cache renders and keeps gzipped tiles.
type Cache struct {
	source Source
	max    int

	mu    sync.Mutex
	tiles map[maptile.Tile][]byte
}

// NewCache creates a cache holding up to max tiles (a default when max <= 0).
func NewCache(source Source, max int) *Cache {
	if max <= 0 {
		max = defaultCacheSize
	}
	return &Cache{source: source, max: max, tiles: make(map[maptile.Tile][]byte)}
}

// Valid reports whether z/x/y addresses a tile this package serves.
func Valid(z, x, y int) bool {
	if z < 0 || z > MaxZoom || x < 0 || y < 0 {
		return false
	}
	n := 1 << z
	return x < n && y < n
}

// Tile returns the gzipped MVT for z/x/y. Tiles without features are
// returned as nil with no error. Nothing is cached while the layer is
// unavailable.
func (c *Cache) Tile(z, x, y int) ([]byte, error) {
	if !Valid(z, x, y) {
		return nil, fmt.Errorf("tile %d/%d/%d out of range", z, x, y)
	}
	t := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))

	c.mu.Lock()
	data, ok := c.tiles[t]
	c.mu.Unlock()
	if ok {
		return data, nil
	}

	layer := c.source.Layer()
	if layer == nil {
		return nil, nil
	}
	data, err := Render(layer, t)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.tiles) >= c.max {
		clear(c.tiles)
	}
	c.tiles[t] = data
	c.mu.Unlock()
	return data, nil
}

// Render encodes the features of layer that intersect t as a gzipped MVT.
// Each feature carries id, name, code, level and its fill color.
func Render(layer *aquifer.Layer, t maptile.Tile) ([]byte, error) {
	bound := t.Bound()

	fc := geojson.NewFeatureCollection()
	for _, f := range layer.Features() {
		if f.Geometry == nil || !intersects(f.Geometry, bound) {
			continue
		}
		// Clip and ProjectToTile mutate geometry in place.
		gf := geojson.NewFeature(orb.Clone(f.Geometry))
		gf.ID = f.ID
		gf.Properties = geojson.Properties{
			"id":    f.ID,
			"name":  f.Name,
			"code":  f.Code,
			"level": int(f.Level),
			"color": f.Level.Color(),
		}
		fc.Append(gf)
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	l := mvt.NewLayer(LayerName, fc)
	if eps := simplifyEpsilon(t.Z); eps > 0 {
		l.Simplify(simplify.DouglasPeucker(eps))
	}
	l.Clip(bound)
	l.ProjectToTile(t)
	l.RemoveEmpty(0.5, 0.5)
	if len(l.Features) == 0 {
		return nil, nil
	}

	data, err := mvt.MarshalGzipped(mvt.Layers{l})
	if err != nil {
		return nil, fmt.Errorf("encoding tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return data, nil
}

// intersects is a cheap polygon/tile overlap test: bounding boxes first,
// then vertex-in-tile and tile-in-polygon checks.
func intersects(g orb.Geometry, tile orb.Bound) bool {
	if !g.Bound().Intersects(tile) {
		return false
	}

	switch g := g.(type) {
	case orb.Polygon:
		for _, ring := range g {
			for _, p := range ring {
				if tile.Contains(p) {
					return true
				}
			}
		}
		corners := []orb.Point{
			tile.Min,
			{tile.Max[0], tile.Min[1]},
			tile.Max,
			{tile.Min[0], tile.Max[1]},
			tile.Center(),
		}
		for _, p := range corners {
			if planar.PolygonContains(g, p) {
				return true
			}
		}
		return false

	case orb.MultiPolygon:
		for _, poly := range g {
			if intersects(poly, tile) {
				return true
			}
		}
		return false

	default:
		return true
	}
}

// simplifyEpsilon is the Douglas-Peucker tolerance in degrees for a zoom.
func simplifyEpsilon(z maptile.Zoom) float64 {
	switch {
	case z >= 12:
		return 0
	case z >= 9:
		return 0.0001
	case z >= 6:
		return 0.001
	default:
		return 0.005
	}
}
