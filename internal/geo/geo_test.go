package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolKm                  float64
	}{
		{"same point", 55.6761, 12.5683, 55.6761, 12.5683, 0, 1e-9},
		{"copenhagen to malmo", 55.6761, 12.5683, 55.6050, 13.0038, 28.5, 1.0},
		{"london to paris", 51.5074, -0.1278, 48.8566, 2.3522, 343.5, 2.0},
		{"equator degree of longitude", 0, 0, 0, 1, 111.19, 0.2},
		{"across the antimeridian", 0, 179.5, 0, -179.5, 111.19, 0.2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DistanceKm(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.wantKm) > tc.tolKm {
				t.Fatalf("distance = %f km, want %f +- %f", got, tc.wantKm, tc.tolKm)
			}
		})
	}
}

func TestDistanceSymmetry(t *testing.T) {
	d1 := DistanceKm(55.6761, 12.5683, 48.8566, 2.3522)
	d2 := DistanceKm(48.8566, 2.3522, 55.6761, 12.5683)
	if math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestDistanceMeters(t *testing.T) {
	// half a millidegree of latitude is roughly 55 m anywhere on earth
	got := DistanceMeters(55.0, 12.0, 55.0005, 12.0)
	if got < 50 || got > 60 {
		t.Fatalf("distance = %f m, want near 55", got)
	}
}
