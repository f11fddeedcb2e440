package utils

import (
	"math"
	"os"
)

// PRECISION is the number of decimals kept when rounding coordinates.
// Seven decimals in long/lat is roughly centimeter level.
var PRECISION int = 7

// CalculateWGS84ToleranceFromMeters converts meters to WGS84 degrees.
// For WGS84, 1 degree is about 111,000 meters at the equator.
func CalculateWGS84ToleranceFromMeters(meters float64) float64 {
	const metersPerDegree = 111000.0
	return meters / metersPerDegree
}

// TruncateCoordinates rounds a coordinate pair to PRECISION decimals.
func TruncateCoordinates(x float64, y float64) (float64, float64) {
	return RoundFloat(x, uint(PRECISION)), RoundFloat(y, uint(PRECISION))
}

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// SilentRemove deletes a directory tree and ignores it not being there.
func SilentRemove(path string) error {
	err := os.RemoveAll(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
