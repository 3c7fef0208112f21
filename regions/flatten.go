package regions

import (
	"math"
	"strings"

	"pdf-tagger/geometry"
)

// Flatten lists every leaf region in tree order. Section children carry the name of
// their section.
func Flatten(items []Region) []Region {
	var out []Region
	for _, r := range items {
		if !r.IsSection() {
			out = append(out, r.Clone())
			continue
		}
		for _, c := range r.Children {
			leaf := c.Clone()
			leaf.SectionName = r.Label
			out = append(out, leaf)
		}
	}
	return out
}

// ForExport flattens items and converts their geometry from canvas pixels rendered at
// scale into centimeters.
func ForExport(items []Region, scale float64) []Region {
	out := Flatten(items)
	for i := range out {
		out[i].Box = geometry.BoxToPhysical(out[i].Box, scale)
	}
	return out
}

// MissingAltText returns the ids of image leaves that have no alt text yet.
func MissingAltText(items []Region) []string {
	var missing []string
	for _, r := range Flatten(items) {
		if r.Kind == KindImage && strings.TrimSpace(r.AltText) == "" {
			missing = append(missing, r.ID)
		}
	}
	return missing
}

// DefaultDuplicateTolerance is how far apart, in canvas pixels, two detections of the
// same kind may be and still count as the same feature.
const DefaultDuplicateTolerance = 20.0

// Deduplicate returns the candidates that do not match any existing region or any
// earlier candidate. Two regions match when they share page and kind and their
// rounded positions are less than tolerance apart on both axes.
func Deduplicate(existing, candidates []Region, tolerance float64) []Region {
	known := append([]Region(nil), existing...)
	var novel []Region
	for _, c := range candidates {
		if matchesAny(known, c, tolerance) {
			continue
		}
		known = append(known, c)
		novel = append(novel, c)
	}
	return novel
}

func matchesAny(known []Region, c Region, tolerance float64) bool {
	cx, cy := math.Round(c.X), math.Round(c.Y)
	for _, k := range known {
		if k.Page != c.Page || k.Kind != c.Kind {
			continue
		}
		if math.Abs(math.Round(k.X)-cx) < tolerance && math.Abs(math.Round(k.Y)-cy) < tolerance {
			return true
		}
	}
	return false
}
