package nav

import "math"

// earthRadiusM is the IUGG mean Earth radius.
const earthRadiusM = 6371008.8

// Distance returns the great-circle distance in meters between two
// positions given in decimal degrees (haversine).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180.0
	phi2 := lat2 * math.Pi / 180.0
	dPhi := (lat2 - lat1) * math.Pi / 180.0
	dLambda := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// Bearing returns the initial great-circle bearing (forward azimuth) in
// degrees [0,360) from point 1 toward point 2. Coincident points yield 0.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180.0
	phi2 := lat2 * math.Pi / 180.0
	dLambda := (lon2 - lon1) * math.Pi / 180.0

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	return NormalizeAngle(math.Atan2(y, x) * 180.0 / math.Pi)
}

// NormalizeAngle maps any angle in degrees into [0,360).
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 360.0)
	if angle < 0 {
		angle += 360.0
	}
	return angle
}

// RelativeAngle returns bearing minus heading normalized into (-180,180].
// Positive means the target is to the right of the current heading.
func RelativeAngle(bearing, heading float64) float64 {
	rel := NormalizeAngle(bearing - heading)
	if rel > 180.0 {
		rel -= 360.0
	}
	return rel
}
