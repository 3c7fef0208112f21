package geometry

const (
	pointsPerInch = 72.0
	cmPerInch     = 2.54
)

// ToPhysicalUnits converts a canvas pixel length rendered at scale into centimeters.
func ToPhysicalUnits(px, scale float64) float64 {
	return (px / pointsPerInch) * cmPerInch / scale
}

// FromPhysicalUnits is the inverse of ToPhysicalUnits.
func FromPhysicalUnits(cm, scale float64) float64 {
	return cm * scale / cmPerInch * pointsPerInch
}

// BoxToPhysical converts every component of b into centimeters.
func BoxToPhysical(b Box, scale float64) Box {
	return Box{
		X:      ToPhysicalUnits(b.X, scale),
		Y:      ToPhysicalUnits(b.Y, scale),
		Width:  ToPhysicalUnits(b.Width, scale),
		Height: ToPhysicalUnits(b.Height, scale),
	}
}
