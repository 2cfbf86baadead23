package polyline

import (
	"math"
	"testing"
)

func TestEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
	}{
		{
			name: "single point",
			points: []Point{
				{X: 559500, Y: 6869000},
			},
		},
		{
			name: "two points",
			points: []Point{
				{X: 559500, Y: 6869000},
				{X: 559620.5, Y: 6869103.25},
			},
		},
		{
			name: "trail segment with back-and-forth deltas",
			points: []Point{
				{X: 548000, Y: 6858000},
				{X: 548150, Y: 6858090},
				{X: 548080, Y: 6858210},
				{X: 548210, Y: 6858195},
			},
		},
		{
			name: "negative coordinates",
			points: []Point{
				{X: -120.2, Y: -38.5},
				{X: 40.7, Y: 120.95},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.points)
			if encoded == "" {
				t.Fatal("expected non-empty encoded string")
			}

			decoded := Decode(encoded)
			if len(decoded) != len(tt.points) {
				t.Fatalf("round-trip: expected %d points, got %d", len(tt.points), len(decoded))
			}

			for i, p := range decoded {
				if !pointsEqual(p, tt.points[i], 0.01) {
					t.Errorf("round-trip point %d: expected %+v, got %+v", i, tt.points[i], p)
				}
			}
		})
	}
}

func TestEncode_EmptyPoints(t *testing.T) {
	if result := Encode(nil); result != "" {
		t.Errorf("expected empty string for nil points, got %q", result)
	}
	if result := Encode([]Point{}); result != "" {
		t.Errorf("expected empty string for empty points, got %q", result)
	}
}

func TestDecode_EmptyString(t *testing.T) {
	if result := Decode(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		name     string
		points   []Point
		expected float64
	}{
		{
			name:     "empty",
			points:   nil,
			expected: 0,
		},
		{
			name:     "single point",
			points:   []Point{{X: 10, Y: 10}},
			expected: 0,
		},
		{
			name: "3-4-5 triangle legs",
			points: []Point{
				{X: 0, Y: 0},
				{X: 3, Y: 4},
				{X: 3, Y: 9},
			},
			expected: 10,
		},
		{
			name: "axis-aligned L",
			points: []Point{
				{X: 10, Y: 10},
				{X: 40, Y: 10},
				{X: 40, Y: 40},
			},
			expected: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Length(tt.points)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("expected %.2f, got %.2f", tt.expected, result)
			}
		})
	}
}

func TestSample(t *testing.T) {
	// A straight 300 m west-east line in three 100 m segments.
	points := []Point{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 200, Y: 0},
		{X: 300, Y: 0},
	}

	t.Run("sample every 50m", func(t *testing.T) {
		sampled := Sample(points, 50)
		if len(sampled) != 7 {
			t.Errorf("expected 7 samples, got %d", len(sampled))
		}
		if sampled[0] != points[0] {
			t.Errorf("first sample should be first point")
		}
		if sampled[len(sampled)-1] != points[len(points)-1] {
			t.Errorf("last sample should be last point")
		}
		if !pointsEqual(sampled[1], Point{X: 50, Y: 0}, 1e-9) {
			t.Errorf("expected second sample at x=50, got %+v", sampled[1])
		}
	})

	t.Run("interval exceeds length", func(t *testing.T) {
		sampled := Sample(points, 10000)
		if len(sampled) != 2 {
			t.Errorf("expected 2 samples (start and end), got %d", len(sampled))
		}
	})

	t.Run("empty points", func(t *testing.T) {
		if sampled := Sample(nil, 50); sampled != nil {
			t.Errorf("expected nil for empty points")
		}
	})

	t.Run("zero interval returns all", func(t *testing.T) {
		sampled := Sample(points, 0)
		if len(sampled) != len(points) {
			t.Errorf("expected all points for zero interval")
		}
	})
}

func TestRoundTrip_CentimeterPrecision(t *testing.T) {
	points := []Point{
		{X: 559500.12, Y: 6869000.34},
		{X: 559512.56, Y: 6869014.78},
		{X: 559530.91, Y: 6869031.02},
	}

	encoded := Encode(points)
	decoded := Decode(encoded)

	for i, p := range decoded {
		if !pointsEqual(p, points[i], 0.005) {
			t.Errorf("point %d lost precision: expected %+v, got %+v", i, points[i], p)
		}
	}
}

// pointsEqual checks if two points are equal within a tolerance.
func pointsEqual(a, b Point, tolerance float64) bool {
	return math.Abs(a.X-b.X) <= tolerance && math.Abs(a.Y-b.Y) <= tolerance
}

func BenchmarkEncode(b *testing.B) {
	points := []Point{
		{X: 548000, Y: 6858000},
		{X: 548150, Y: 6858090},
		{X: 548080, Y: 6858210},
		{X: 548210, Y: 6858195},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Encode(points)
	}
}

func BenchmarkDecode(b *testing.B) {
	encoded := Encode([]Point{
		{X: 548000, Y: 6858000},
		{X: 548150, Y: 6858090},
		{X: 548080, Y: 6858210},
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Decode(encoded)
	}
}
