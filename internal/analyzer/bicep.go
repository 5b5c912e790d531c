package analyzer

import (
	"fmt"

	"formcoach/internal/classifier"
	"formcoach/internal/domain"
)

// bicepJoints is the posture-model feature order.
var bicepJoints = []domain.JointName{
	domain.Nose,
	domain.LeftShoulder, domain.RightShoulder,
	domain.RightElbow, domain.LeftElbow,
	domain.RightWrist, domain.LeftWrist,
	domain.LeftHip, domain.RightHip,
}

// BicepConfig holds the bicep curl thresholds.
type BicepConfig struct {
	VisibilityThreshold      float64
	DownThreshold            float64
	UpThreshold              float64
	PeakContractionThreshold float64
	LooseUpperArmThreshold   float64
	PostureConfidence        float64
	LeanBackAngleThreshold   float64
	LeanBackVisibility       float64
}

// DefaultBicepConfig returns the tuned bicep constants.
func DefaultBicepConfig() BicepConfig {
	return BicepConfig{
		VisibilityThreshold:      0.65,
		DownThreshold:            120,
		UpThreshold:              100,
		PeakContractionThreshold: 60,
		LooseUpperArmThreshold:   40,
		PostureConfidence:        0.95,
		LeanBackAngleThreshold:   165,
		LeanBackVisibility:       0.5,
	}
}

// peakNotSeen marks a side that has not yet recorded a contraction peak.
const peakNotSeen = 1000

// bicepArm tracks one arm's curl state machine. Stage enters down above
// the down threshold and up below the up threshold after a down, which
// gives the hysteresis band that prevents stage flapping.
type bicepArm struct {
	side string
	cfg  BicepConfig

	shoulderJoint domain.JointName
	elbowJoint    domain.JointName
	wristJoint    domain.JointName

	counter int
	stage   domain.Stage
	visible bool

	looseUpperArm        bool
	peakContractionAngle float64

	shoulder, elbow, wrist domain.Point
}

func newBicepArm(side string, cfg BicepConfig) *bicepArm {
	arm := &bicepArm{side: side, cfg: cfg, stage: domain.StageDown, visible: true, peakContractionAngle: peakNotSeen}
	if side == "left" {
		arm.shoulderJoint, arm.elbowJoint, arm.wristJoint = domain.LeftShoulder, domain.LeftElbow, domain.LeftWrist
	} else {
		arm.shoulderJoint, arm.elbowJoint, arm.wristJoint = domain.RightShoulder, domain.RightElbow, domain.RightWrist
	}
	return arm
}

func (a *bicepArm) reset() {
	a.counter = 0
	a.stage = domain.StageDown
	a.visible = true
	a.looseUpperArm = false
	a.peakContractionAngle = peakNotSeen
}

func (a *bicepArm) getJoints(frame domain.Frame) bool {
	a.visible = frame.AllVisible(a.cfg.VisibilityThreshold, a.shoulderJoint, a.elbowJoint, a.wristJoint)
	if !a.visible {
		return false
	}
	shoulder, _ := frame.Joint(a.shoulderJoint)
	elbow, _ := frame.Joint(a.elbowJoint)
	wrist, _ := frame.Joint(a.wristJoint)
	a.shoulder, a.elbow, a.wrist = shoulder.Point(), elbow.Point(), wrist.Point()
	return true
}

// analyze returns (curlAngle, upperArmAngle, visible, errors). Angle
// values are nil when the arm is not visible. When a lean-back error is
// active for the frame, per-side error evaluation is suppressed.
func (a *bicepArm) analyze(frame domain.Frame, leanBack bool) (curl, upper *int, visible bool, errs []domain.FormError) {
	if !a.getJoints(frame) {
		return nil, nil, false, nil
	}

	curlAngle := int(domain.Angle(a.shoulder, a.elbow, a.wrist))
	if float64(curlAngle) > a.cfg.DownThreshold {
		a.stage = domain.StageDown
	} else if float64(curlAngle) < a.cfg.UpThreshold && a.stage == domain.StageDown {
		a.stage = domain.StageUp
		a.counter++
	}

	// Upper arm angle against the vertical projection at the shoulder.
	projection := domain.Point{X: a.shoulder.X, Y: 1}
	upperArmAngle := int(domain.Angle(a.elbow, a.shoulder, projection))

	if leanBack {
		return &curlAngle, &upperArmAngle, true, nil
	}

	if float64(upperArmAngle) > a.cfg.LooseUpperArmThreshold {
		// Rising edge only; the latch limits one error per excursion.
		if !a.looseUpperArm {
			a.looseUpperArm = true
			errs = append(errs, domain.FormError{
				Type:     "loose_upper_arm",
				Severity: domain.SeverityMedium,
				Message:  fmt.Sprintf("Arm is not kept close to body (%d°)", upperArmAngle),
			})
		}
	} else {
		a.looseUpperArm = false
	}

	if a.stage == domain.StageUp && float64(curlAngle) < a.peakContractionAngle {
		a.peakContractionAngle = float64(curlAngle)
	} else if a.stage == domain.StageDown {
		if a.peakContractionAngle != peakNotSeen && a.peakContractionAngle >= a.cfg.PeakContractionThreshold {
			errs = append(errs, domain.FormError{
				Type:     "peak_contraction",
				Severity: domain.SeverityMedium,
				Message:  fmt.Sprintf("Insufficient curl range of motion (%.0f°)", a.peakContractionAngle),
			})
		}
		a.peakContractionAngle = peakNotSeen
	}

	return &curlAngle, &upperArmAngle, true, errs
}

// Bicep analyzes both arms independently and reports the higher of the
// two side counters. Lean-back posture is checked geometrically first;
// the kNN posture model is a fallback accepted only at high confidence.
// Stages: up, middle, down.
type Bicep struct {
	cfg    BicepConfig
	model  classifier.Predictor
	scaler *classifier.StandardScaler

	left  *bicepArm
	right *bicepArm

	standPosture     string
	prevStandPosture string
}

// NewBicep builds a bicep analyzer. model and scaler may be nil; the
// geometric lean-back check then stands alone.
func NewBicep(cfg BicepConfig, model classifier.Predictor, scaler *classifier.StandardScaler) *Bicep {
	return &Bicep{
		cfg:              cfg,
		model:            model,
		scaler:           scaler,
		left:             newBicepArm("left", cfg),
		right:            newBicepArm("right", cfg),
		standPosture:     "C",
		prevStandPosture: "C",
	}
}

// Analyze judges one bicep curl frame.
func (b *Bicep) Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure) {
	if f := validateFrame(frame); f != nil {
		return nil, f
	}

	allErrors := []domain.FormError{}

	leanBack := b.detectLeanBack(frame)
	if leanBack {
		allErrors = append(allErrors, domain.FormError{
			Type:     "lean_back",
			Severity: domain.SeverityHigh,
			Message:  "Leaning back during exercise",
		})
	}

	leftCurl, leftUpper, leftVisible, leftErrs := b.left.analyze(frame, leanBack)
	allErrors = append(allErrors, leftErrs...)
	rightCurl, rightUpper, rightVisible, rightErrs := b.right.analyze(frame, leanBack)
	allErrors = append(allErrors, rightErrs...)

	var shoulderWidth any
	if frame.AllVisible(b.cfg.VisibilityThreshold, domain.LeftShoulder, domain.RightShoulder) {
		ls, _ := frame.Joint(domain.LeftShoulder)
		rs, _ := frame.Joint(domain.RightShoulder)
		shoulderWidth = domain.Round2(domain.Distance(ls.Point(), rs.Point()))
	}

	stage := domain.StageMiddle
	if b.left.stage == domain.StageUp || b.right.stage == domain.StageUp {
		stage = domain.StageUp
	} else if b.left.stage == domain.StageDown && b.right.stage == domain.StageDown {
		stage = domain.StageDown
	}

	repCount := b.left.counter
	if b.right.counter > repCount {
		repCount = b.right.counter
	}

	leftReps, rightReps := 0, 0
	if leftVisible {
		leftReps = b.left.counter
	}
	if rightVisible {
		rightReps = b.right.counter
	}

	metrics := map[string]any{
		"leftCurlAngle":      nilableInt(leftCurl),
		"rightCurlAngle":     nilableInt(rightCurl),
		"leftUpperArmAngle":  nilableInt(leftUpper),
		"rightUpperArmAngle": nilableInt(rightUpper),
		"leftArmVisible":     leftVisible,
		"rightArmVisible":    rightVisible,
		"shoulderWidth":      shoulderWidth,
		"hipAngle":           nil,
		"reps":               map[string]any{"left": leftReps, "right": rightReps},
	}

	return &domain.AnalysisResult{
		Stage:     stage,
		Metrics:   metrics,
		Errors:    allErrors,
		FormScore: domain.FormScore(allErrors),
		RepCount:  repCount,
	}, nil
}

// Reset clears both side counters and the posture tracking.
func (b *Bicep) Reset() {
	b.left.reset()
	b.right.reset()
	b.standPosture = "C"
	b.prevStandPosture = "C"
}

// detectLeanBack checks the body line geometrically and consults the
// posture model only when the geometric check found nothing.
func (b *Bicep) detectLeanBack(frame domain.Frame) bool {
	if b.detectLeanBackGeometric(frame) {
		return true
	}
	return b.detectLeanBackModel(frame)
}

// detectLeanBackGeometric flags a lean when the mid-shoulder, mid-hip
// and mid-ankle line bends below the alignment threshold. All six
// joints must be reasonably visible for the check to run.
func (b *Bicep) detectLeanBackGeometric(frame domain.Frame) bool {
	joints := []domain.JointName{
		domain.LeftShoulder, domain.RightShoulder,
		domain.LeftHip, domain.RightHip,
		domain.LeftAnkle, domain.RightAnkle,
	}
	if !frame.AllVisible(b.cfg.LeanBackVisibility, joints...) {
		return false
	}

	ls, _ := frame.Joint(domain.LeftShoulder)
	rs, _ := frame.Joint(domain.RightShoulder)
	lh, _ := frame.Joint(domain.LeftHip)
	rh, _ := frame.Joint(domain.RightHip)
	la, _ := frame.Joint(domain.LeftAnkle)
	ra, _ := frame.Joint(domain.RightAnkle)

	shoulderMid := domain.Midpoint(ls.Point(), rs.Point())
	hipMid := domain.Midpoint(lh.Point(), rh.Point())
	ankleMid := domain.Midpoint(la.Point(), ra.Point())

	alignment := domain.Angle(shoulderMid, hipMid, ankleMid)
	return alignment < b.cfg.LeanBackAngleThreshold
}

// detectLeanBackModel asks the kNN posture model. Only the L label at or
// above the posture confidence flips the sticky posture state; the state
// survives low-confidence frames.
func (b *Bicep) detectLeanBackModel(frame domain.Frame) bool {
	if b.model == nil {
		return false
	}

	features := classifier.ExtractKeypoints(frame, bicepJoints)
	if b.scaler != nil {
		scaled, err := b.scaler.Transform(features)
		if err != nil {
			return false
		}
		features = scaled
	}

	class, err := b.model.PredictClass(features)
	if err != nil {
		return false
	}
	probs, err := b.model.PredictProba(features)
	if err != nil {
		return false
	}

	previous := b.standPosture
	if maxProb(probs) >= b.cfg.PostureConfidence {
		b.standPosture = class
	}
	b.prevStandPosture = previous

	return b.standPosture == "L"
}

func nilableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
