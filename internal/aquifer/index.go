package aquifer

import (
	"slices"

	"github.com/paulmach/orb"
)

// Index groups features by aquifer name. Groups keep load order; only
// NamesSorted sorts. It is built once and read-only afterwards.
type Index struct {
	features []Feature
	names    []string
	groups   map[string][]int
}

// NewIndex groups features by name. Unnamed features are not grouped.
func NewIndex(features []Feature) *Index {
	idx := &Index{
		features: features,
		groups:   make(map[string][]int),
	}
	for i, f := range features {
		if f.Name == "" {
			continue
		}
		if _, ok := idx.groups[f.Name]; !ok {
			idx.names = append(idx.names, f.Name)
		}
		idx.groups[f.Name] = append(idx.groups[f.Name], i)
	}
	return idx
}

// Len returns the number of groups.
func (idx *Index) Len() int {
	return len(idx.names)
}

// Names returns group names in first-seen order.
func (idx *Index) Names() []string {
	return slices.Clone(idx.names)
}

// NamesSorted returns group names in lexicographic order.
func (idx *Index) NamesSorted() []string {
	names := slices.Clone(idx.names)
	slices.Sort(names)
	return names
}

// Has reports whether name is a non-empty group.
func (idx *Index) Has(name string) bool {
	return len(idx.groups[name]) > 0
}

// Members returns the feature indices of a group in load order.
func (idx *Index) Members(name string) []int {
	return slices.Clone(idx.groups[name])
}

// BoundsOf returns the union of the member bounds of name.
// ok is false for unknown names.
func (idx *Index) BoundsOf(name string) (b orb.Bound, ok bool) {
	for _, i := range idx.groups[name] {
		fb := idx.features[i].Bound()
		if !ok {
			b, ok = fb, true
			continue
		}
		b = b.Union(fb)
	}
	return b, ok
}

// Pad grows b by ratio of its width and height on every side.
func Pad(b orb.Bound, ratio float64) orb.Bound {
	dx := (b.Max[0] - b.Min[0]) * ratio
	dy := (b.Max[1] - b.Min[1]) * ratio
	return orb.Bound{
		Min: orb.Point{b.Min[0] - dx, b.Min[1] - dy},
		Max: orb.Point{b.Max[0] + dx, b.Max[1] + dy},
	}
}

// LatLngBounds converts b to Leaflet's [[south, west], [north, east]] order.
func LatLngBounds(b orb.Bound) [2][2]float64 {
	return [2][2]float64{
		{b.Min.Lat(), b.Min.Lon()},
		{b.Max.Lat(), b.Max.Lon()},
	}
}
