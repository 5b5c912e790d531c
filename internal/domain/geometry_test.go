package domain

import (
	"math"
	"testing"
)

func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Point
		want    float64
	}{
		{"right angle", Point{1, 0}, Point{0, 0}, Point{0, 1}, 90},
		{"straight line", Point{-1, 0}, Point{0, 0}, Point{1, 0}, 180},
		{"collinear same side", Point{1, 0}, Point{0, 0}, Point{2, 0}, 0},
		{"45 degrees", Point{1, 0}, Point{0, 0}, Point{1, 1}, 45},
		{"degenerate a at vertex", Point{0, 0}, Point{0, 0}, Point{1, 0}, 0},
		{"degenerate c at vertex", Point{1, 0}, Point{0, 0}, Point{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Angle(tt.a, tt.b, tt.c); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Angle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAngleSymmetric(t *testing.T) {
	a := Point{0.3, 0.7}
	b := Point{0.5, 0.2}
	c := Point{0.9, 0.6}
	if got, want := Angle(a, b, c), Angle(c, b, a); math.Abs(got-want) > 1e-12 {
		t.Errorf("Angle not symmetric: %v vs %v", got, want)
	}
}

func TestAngleWithinBounds(t *testing.T) {
	// A sweep of triangles must always land in [0, 180].
	for i := 0; i < 360; i += 7 {
		rad := float64(i) * math.Pi / 180
		a := Point{math.Cos(rad), math.Sin(rad)}
		b := Point{0, 0}
		c := Point{1, 0}
		got := Angle(a, b, c)
		if got < 0 || got > 180 {
			t.Fatalf("Angle out of range at %d degrees: %v", i, got)
		}
	}
}

func TestDistance(t *testing.T) {
	if got := Distance(Point{0, 0}, Point{3, 4}); got != 5 {
		t.Errorf("Distance() = %v, want 5", got)
	}
	if got := Distance(Point{0.2, 0.2}, Point{0.2, 0.2}); got != 0 {
		t.Errorf("Distance() = %v, want 0", got)
	}
}

func TestMidpoint(t *testing.T) {
	got := Midpoint(Point{0, 0}, Point{1, 2})
	if got.X != 0.5 || got.Y != 1 {
		t.Errorf("Midpoint() = %+v", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{-2, -1, 1, -1},
		{2, -1, 1, 1},
		{0.5, -1, 1, 0.5},
	}
	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestRounding(t *testing.T) {
	if got := Round2(0.23567); got != 0.24 {
		t.Errorf("Round2() = %v", got)
	}
	if got := Round1(0.3636); got != 0.4 {
		t.Errorf("Round1() = %v", got)
	}
}
