package regions

import (
	"sort"

	"pdf-tagger/geometry"
)

// ReadingPath is the ordered walk through one group of regions on a page, drawn as
// a polyline between region centers.
type ReadingPath struct {
	SectionID    string           `json:"section_id,omitempty"`
	SectionLabel string           `json:"section_label,omitempty"`
	Regions      []Region         `json:"regions"`
	Points       []geometry.Point `json:"points"`
}

// ReadingPaths groups the regions of a page by section, ungrouped regions last, and
// orders each group by explicit reading order, then top to bottom.
func ReadingPaths(items []Region, page int) []ReadingPath {
	var paths []ReadingPath
	var ungrouped []Region
	for _, r := range items {
		if !r.IsSection() {
			if r.Page == page {
				ungrouped = append(ungrouped, r.Clone())
			}
			continue
		}
		var members []Region
		for _, c := range r.Children {
			if c.Page == page {
				members = append(members, c.Clone())
			}
		}
		if len(members) > 0 {
			paths = append(paths, newReadingPath(r.ID, r.Label, members))
		}
	}
	if len(ungrouped) > 0 {
		paths = append(paths, newReadingPath("", "", ungrouped))
	}
	return paths
}

func newReadingPath(id, label string, members []Region) ReadingPath {
	SortByReadingOrder(members)
	points := make([]geometry.Point, len(members))
	for i, m := range members {
		points[i] = m.Center()
	}
	return ReadingPath{SectionID: id, SectionLabel: label, Regions: members, Points: points}
}

// SortByReadingOrder sorts regions with an explicit order first, by that order, and
// the rest by ascending y then x.
func SortByReadingOrder(items []Region) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.ReadingOrder != nil && b.ReadingOrder != nil:
			return *a.ReadingOrder < *b.ReadingOrder
		case a.ReadingOrder != nil:
			return true
		case b.ReadingOrder != nil:
			return false
		case a.Y != b.Y:
			return a.Y < b.Y
		default:
			return a.X < b.X
		}
	})
}
