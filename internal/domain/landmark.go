package domain

// Landmark is one point of the detected skeleton. Coordinates are
// normalized image coordinates (x right, y down); Visibility is the
// upstream engine's confidence in [0,1] that the joint is actually seen.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Point returns the planar position of the landmark. All angle and
// distance math operates in the x,y plane only.
func (l Landmark) Point() Point {
	return Point{X: l.X, Y: l.Y}
}

// FrameSize is the number of landmarks in a complete skeleton frame.
const FrameSize = 33

// Frame is an ordered sequence of landmarks following the fixed
// 33-point convention (0 = nose, 11/12 = shoulders, ... 31/32 = foot tips).
type Frame []Landmark

// JointName identifies a skeleton landmark symbolically.
type JointName string

const (
	Nose           JointName = "nose"
	LeftShoulder   JointName = "left_shoulder"
	RightShoulder  JointName = "right_shoulder"
	LeftElbow      JointName = "left_elbow"
	RightElbow     JointName = "right_elbow"
	LeftWrist      JointName = "left_wrist"
	RightWrist     JointName = "right_wrist"
	LeftHip        JointName = "left_hip"
	RightHip       JointName = "right_hip"
	LeftKnee       JointName = "left_knee"
	RightKnee      JointName = "right_knee"
	LeftAnkle      JointName = "left_ankle"
	RightAnkle     JointName = "right_ankle"
	LeftHeel       JointName = "left_heel"
	RightHeel      JointName = "right_heel"
	LeftFootIndex  JointName = "left_foot_index"
	RightFootIndex JointName = "right_foot_index"
)

// jointIndices maps joint names to their frame positions.
var jointIndices = map[JointName]int{
	Nose:           0,
	LeftShoulder:   11,
	RightShoulder:  12,
	LeftElbow:      13,
	RightElbow:     14,
	LeftWrist:      15,
	RightWrist:     16,
	LeftHip:        23,
	RightHip:       24,
	LeftKnee:       25,
	RightKnee:      26,
	LeftAnkle:      27,
	RightAnkle:     28,
	LeftHeel:       29,
	RightHeel:      30,
	LeftFootIndex:  31,
	RightFootIndex: 32,
}

// mirrors maps each sided joint to its opposite-side counterpart.
var mirrors = map[JointName]JointName{
	LeftShoulder:   RightShoulder,
	RightShoulder:  LeftShoulder,
	LeftElbow:      RightElbow,
	RightElbow:     LeftElbow,
	LeftWrist:      RightWrist,
	RightWrist:     LeftWrist,
	LeftHip:        RightHip,
	RightHip:       LeftHip,
	LeftKnee:       RightKnee,
	RightKnee:      LeftKnee,
	LeftAnkle:      RightAnkle,
	RightAnkle:     LeftAnkle,
	LeftHeel:       RightHeel,
	RightHeel:      LeftHeel,
	LeftFootIndex:  RightFootIndex,
	RightFootIndex: LeftFootIndex,
}

// JointIndex returns the frame index of a joint name.
func JointIndex(j JointName) (int, bool) {
	idx, ok := jointIndices[j]
	return idx, ok
}

// Mirror returns the opposite-side joint, or the joint itself for
// center-line joints like the nose.
func Mirror(j JointName) JointName {
	if m, ok := mirrors[j]; ok {
		return m
	}
	return j
}

// Joint returns the landmark for the named joint. The second return is
// false when the frame is too short to contain the joint.
func (f Frame) Joint(j JointName) (Landmark, bool) {
	idx, ok := jointIndices[j]
	if !ok || idx >= len(f) {
		return Landmark{}, false
	}
	return f[idx], true
}

// Visible reports whether the named joint is present and at or above the
// given visibility threshold.
func (f Frame) Visible(j JointName, threshold float64) bool {
	lm, ok := f.Joint(j)
	return ok && lm.Visibility >= threshold
}

// AllVisible reports whether every listed joint meets the threshold.
func (f Frame) AllVisible(threshold float64, joints ...JointName) bool {
	for _, j := range joints {
		if !f.Visible(j, threshold) {
			return false
		}
	}
	return true
}

// Validate checks that the frame holds a complete skeleton.
func (f Frame) Validate() error {
	if len(f) == 0 {
		return ErrEmptyFrame
	}
	if len(f) < FrameSize {
		return ErrFrameTooShort
	}
	return nil
}
