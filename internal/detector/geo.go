package detector

import "math"

const earthRadiusNm = 3440.065

// distanceNm estimates the great-circle distance between two coordinates
// in nautical miles (haversine).
func distanceNm(lat1, lon1, lat2, lon2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusNm * math.Asin(math.Sqrt(a))
}
