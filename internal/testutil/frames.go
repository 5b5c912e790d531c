// Package testutil builds synthetic landmark frames for analyzer and
// worker tests.
package testutil

import (
	"math"

	"formcoach/internal/domain"
)

// Standing returns a complete 33-landmark frame of an upright subject
// facing the camera, every joint fully visible. The stance is legal for
// the squat placement checks: shoulder width 0.16, foot-tip width 0.20,
// knee width 0.16.
func Standing() domain.Frame {
	frame := make(domain.Frame, domain.FrameSize)
	for i := range frame {
		frame[i] = domain.Landmark{X: 0.5, Y: 0.12, Visibility: 0.95}
	}

	set := func(j domain.JointName, x, y float64) {
		idx, _ := domain.JointIndex(j)
		frame[idx] = domain.Landmark{X: x, Y: y, Visibility: 0.95}
	}

	set(domain.Nose, 0.50, 0.10)
	set(domain.LeftShoulder, 0.58, 0.25)
	set(domain.RightShoulder, 0.42, 0.25)
	set(domain.LeftElbow, 0.60, 0.37)
	set(domain.RightElbow, 0.40, 0.37)
	set(domain.LeftWrist, 0.61, 0.49)
	set(domain.RightWrist, 0.39, 0.49)
	set(domain.LeftHip, 0.55, 0.50)
	set(domain.RightHip, 0.45, 0.50)
	set(domain.LeftKnee, 0.58, 0.70)
	set(domain.RightKnee, 0.42, 0.70)
	set(domain.LeftAnkle, 0.57, 0.90)
	set(domain.RightAnkle, 0.43, 0.90)
	set(domain.LeftHeel, 0.58, 0.93)
	set(domain.RightHeel, 0.42, 0.93)
	set(domain.LeftFootIndex, 0.60, 0.95)
	set(domain.RightFootIndex, 0.40, 0.95)

	return frame
}

// Clone copies a frame so builders stay side-effect free.
func Clone(frame domain.Frame) domain.Frame {
	out := make(domain.Frame, len(frame))
	copy(out, frame)
	return out
}

// Set returns a copy of the frame with one joint repositioned.
func Set(frame domain.Frame, j domain.JointName, x, y float64) domain.Frame {
	out := Clone(frame)
	idx, _ := domain.JointIndex(j)
	out[idx].X = x
	out[idx].Y = y
	return out
}

// SetVisibility returns a copy with one joint's visibility replaced.
func SetVisibility(frame domain.Frame, j domain.JointName, v float64) domain.Frame {
	out := Clone(frame)
	idx, _ := domain.JointIndex(j)
	out[idx].Visibility = v
	return out
}

// SetAllVisibility returns a copy with every landmark's visibility
// replaced.
func SetAllVisibility(frame domain.Frame, v float64) domain.Frame {
	out := Clone(frame)
	for i := range out {
		out[i].Visibility = v
	}
	return out
}

// PlaceAngle returns a copy of the frame with joint c moved so the
// interior angle a-b-c equals |deg|, keeping c at the given radius
// from b. The sign of deg picks the rotation direction from the b->a
// ray; the interior angle itself is insensitive to it.
func PlaceAngle(frame domain.Frame, a, b, c domain.JointName, deg, radius float64) domain.Frame {
	out := Clone(frame)
	ai, _ := domain.JointIndex(a)
	bi, _ := domain.JointIndex(b)
	ci, _ := domain.JointIndex(c)

	dx := out[ai].X - out[bi].X
	dy := out[ai].Y - out[bi].Y
	norm := math.Hypot(dx, dy)
	if norm == 0 {
		return out
	}
	dx, dy = dx/norm, dy/norm

	rad := deg * math.Pi / 180
	rx := dx*math.Cos(rad) - dy*math.Sin(rad)
	ry := dx*math.Sin(rad) + dy*math.Cos(rad)

	out[ci].X = out[bi].X + radius*rx
	out[ci].Y = out[bi].Y + radius*ry
	return out
}
