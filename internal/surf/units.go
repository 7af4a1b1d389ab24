package surf

import "math"

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// roundHalfUp rounds halves toward positive infinity, so -0.5 becomes 0.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// CompassLabel converts a bearing in degrees to an 8-point compass label.
func CompassLabel(degrees float64) string {
	idx := int(roundHalfUp(degrees/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return compassPoints[idx]
}

// MetersToFeet converts meters to whole feet.
func MetersToFeet(m float64) int {
	return int(roundHalfUp(m * 3.28))
}

// MSToKnots converts a speed in m/s to whole knots.
func MSToKnots(v float64) int {
	return int(roundHalfUp(v * 1.944))
}

// ClampMin1 floors a wave height at one foot.
func ClampMin1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
