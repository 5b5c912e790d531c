package domain

import "testing"

func TestJointIndexConvention(t *testing.T) {
	tests := []struct {
		joint JointName
		index int
	}{
		{Nose, 0},
		{LeftShoulder, 11},
		{RightShoulder, 12},
		{LeftElbow, 13},
		{RightWrist, 16},
		{LeftHip, 23},
		{RightKnee, 26},
		{LeftAnkle, 27},
		{RightHeel, 30},
		{LeftFootIndex, 31},
		{RightFootIndex, 32},
	}
	for _, tt := range tests {
		idx, ok := JointIndex(tt.joint)
		if !ok || idx != tt.index {
			t.Errorf("JointIndex(%s) = %d, %v; want %d", tt.joint, idx, ok, tt.index)
		}
	}
}

func TestMirror(t *testing.T) {
	if Mirror(LeftKnee) != RightKnee {
		t.Error("LeftKnee should mirror to RightKnee")
	}
	if Mirror(RightWrist) != LeftWrist {
		t.Error("RightWrist should mirror to LeftWrist")
	}
	if Mirror(Nose) != Nose {
		t.Error("Nose is a center-line joint and mirrors to itself")
	}
}

func TestFrameJointBounds(t *testing.T) {
	short := make(Frame, 12)
	if _, ok := short.Joint(RightShoulder); ok {
		t.Error("index 12 must not resolve in a 12-landmark frame")
	}
	if _, ok := short.Joint(LeftShoulder); !ok {
		t.Error("index 11 should resolve in a 12-landmark frame")
	}
}

func TestFrameVisible(t *testing.T) {
	frame := make(Frame, FrameSize)
	idx, _ := JointIndex(LeftKnee)
	frame[idx] = Landmark{Visibility: 0.5}

	if !frame.Visible(LeftKnee, 0.5) {
		t.Error("visibility at the threshold counts as visible")
	}
	if frame.Visible(LeftKnee, 0.51) {
		t.Error("visibility below the threshold must not count")
	}
}

func TestFrameValidate(t *testing.T) {
	if err := (Frame{}).Validate(); err != ErrEmptyFrame {
		t.Errorf("empty frame: got %v", err)
	}
	if err := make(Frame, 10).Validate(); err != ErrFrameTooShort {
		t.Errorf("short frame: got %v", err)
	}
	if err := make(Frame, FrameSize).Validate(); err != nil {
		t.Errorf("full frame: got %v", err)
	}
}

func TestParseExerciseKind(t *testing.T) {
	if _, err := ParseExerciseKind("squat"); err != nil {
		t.Errorf("squat should parse: %v", err)
	}
	if _, err := ParseExerciseKind("yoga"); err != ErrUnknownExercise {
		t.Errorf("yoga should fail with ErrUnknownExercise, got %v", err)
	}
}
