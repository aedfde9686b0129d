package point

import (
	"testing"

	"github.com/jgmap/core/internal/config"
)

func TestHaversine(t *testing.T) {
	// Palace of Culture to Warsaw Old Town, roughly 2.2 km.
	d := HaversineM(52.2319, 21.0067, 52.2497, 21.0122)
	if d < 1900 || d > 2300 {
		t.Errorf("distance = %.0f m, want ~2100 m", d)
	}

	if d := HaversineM(52.0, 21.0, 52.0, 21.0); d != 0 {
		t.Errorf("zero distance = %f", d)
	}

	// Two points ~55 m apart should exceed a 50 m duplicate radius.
	d = HaversineM(52.23190, 21.00670, 52.23240, 21.00670)
	if d < 50 || d > 62 {
		t.Errorf("short distance = %.1f m, want ~55 m", d)
	}
}

func TestInBounds(t *testing.T) {
	m := config.MapConfig{MinLat: 49, MaxLat: 55, MinLng: 14, MaxLng: 24}

	cases := []struct {
		lat, lng float64
		ok       bool
	}{
		{52.23, 21.01, true},  // Warsaw
		{49, 14, true},        // corner is inclusive
		{48.2, 16.37, false},  // Vienna
		{52.52, 13.40, false}, // Berlin
		{56.9, 24.1, false},   // Riga
	}
	for _, c := range cases {
		if got := InBounds(m, c.lat, c.lng); got != c.ok {
			t.Errorf("InBounds(%.2f, %.2f) = %v, want %v", c.lat, c.lng, got, c.ok)
		}
	}
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	minLat, maxLat, minLng, maxLng := boundingBox(52.23, 21.01, 50)
	if maxLat <= 52.23 || minLat >= 52.23 || maxLng <= 21.01 || minLng >= 21.01 {
		t.Fatal("box does not surround the center")
	}
	// A point 50 m north must be inside the box.
	north := 52.23 + 50.0/earthRadiusM*180/3.141592653589793
	if north > maxLat {
		t.Errorf("box too small: north edge %.6f < %.6f", maxLat, north)
	}
}
