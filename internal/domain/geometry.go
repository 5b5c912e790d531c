package domain

import "math"

// Point is a position in the normalized x,y image plane.
type Point struct {
	X float64
	Y float64
}

// Angle computes the interior angle at b of the triangle a-b-c, in
// degrees within [0,180]. The cosine is clamped to [-1,1] to absorb
// floating-point noise. Degenerate input (a or c coincident with b)
// yields 0.
func Angle(a, b, c Point) float64 {
	abx, aby := a.X-b.X, a.Y-b.Y
	cbx, cby := c.X-b.X, c.Y-b.Y

	na := math.Hypot(abx, aby)
	nc := math.Hypot(cbx, cby)
	if na == 0 || nc == 0 {
		return 0
	}

	cos := (abx*cbx + aby*cby) / (na * nc)
	return math.Abs(math.Acos(Clamp(cos, -1, 1)) * 180 / math.Pi)
}

// Distance is the Euclidean distance between two points in the x,y plane.
func Distance(p, q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Midpoint returns the point halfway between p and q.
func Midpoint(p, q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Clamp bounds v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Round2 rounds to two decimal places, the precision used for reported
// width and angle metrics.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
