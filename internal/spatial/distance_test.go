package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type point struct{ lat, lon float64 }

func (p point) Position() (float64, float64) { return p.lat, p.lon }

func TestHaversineSymmetricAndZero(t *testing.T) {
	tests := []struct {
		name string
		a, b point
	}{
		{"london-manchester", point{51.5308, -0.1238}, point{53.4774, -2.2309}},
		{"across-meridian", point{51.5, -0.5}, point{51.5, 0.5}},
		{"southern", point{-33.86, 151.2}, point{-37.81, 144.96}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ab := HaversineDistance(tc.a.lat, tc.a.lon, tc.b.lat, tc.b.lon)
			ba := HaversineDistance(tc.b.lat, tc.b.lon, tc.a.lat, tc.a.lon)
			assert.InDelta(t, ab, ba, 1e-6)
			assert.Zero(t, HaversineDistance(tc.a.lat, tc.a.lon, tc.a.lat, tc.a.lon))
		})
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of latitude on a 6371 km sphere.
	want := EarthRadiusKm * math.Pi / 180
	assert.InDelta(t, want, HaversineDistance(10, 20, 11, 20)/1000, 1e-6)
}

func TestDestinationPointRoundTrip(t *testing.T) {
	lat, lon := DestinationPoint(51.5, -0.12, 90, 1000)
	assert.InDelta(t, 1000, HaversineDistance(51.5, -0.12, lat, lon), 0.01)
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(51.5, -0.1))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, 181))
	assert.False(t, ValidCoordinates(math.NaN(), 0))
}

func TestNearest(t *testing.T) {
	idx, _ := Nearest(0, 0, []point{})
	assert.Equal(t, -1, idx)

	candidates := []point{{1, 1}, {0.001, 0}, {-2, 3}}
	idx, dist := Nearest(0, 0, candidates)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 111.19, dist, 0.1)
}
