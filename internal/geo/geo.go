package geo

import "math"

// Point представляет географическую точку
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid проверяет, что координаты точки лежат в допустимых пределах
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// DistanceKm вычисляет расстояние между двумя точками по формуле
// гаверсинусов, в километрах с точностью до одного знака
func DistanceKm(a, b Point) float64 {
	const earthRadius = 6371 // км

	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*math.Pi/180)*math.Cos(b.Latitude*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	distance := earthRadius * c

	return math.Round(distance*10) / 10
}
