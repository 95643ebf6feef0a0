package spatial

// Located is anything with a position on the globe
type Located interface {
	Position() (lat, lon float64)
}

// Nearest performs a linear scan over candidates and returns the index of the
// closest one together with its distance in meters. It returns -1 for an empty slice.
func Nearest[T Located](lat, lon float64, candidates []T) (int, float64) {
	best := -1
	bestDist := 0.0
	for i, c := range candidates {
		cLat, cLon := c.Position()
		d := HaversineDistance(lat, lon, cLat, cLon)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}
