package analyzer

import (
	"math"

	"formcoach/internal/domain"
)

// ShoulderPressConfig holds the shoulder press thresholds.
type ShoulderPressConfig struct {
	VisibilityThreshold float64
	PressAngleThreshold float64
	LockoutThreshold    float64
	DeltaStartThreshold float64
	DeltaEndThreshold   float64
	UnevenThreshold     float64
	IncompleteThreshold float64
}

// DefaultShoulderPressConfig returns the tuned shoulder press constants.
func DefaultShoulderPressConfig() ShoulderPressConfig {
	return ShoulderPressConfig{
		VisibilityThreshold: 0.65,
		PressAngleThreshold: 110,
		LockoutThreshold:    150,
		DeltaStartThreshold: 8,
		DeltaEndThreshold:   5,
		UnevenThreshold:     15,
		IncompleteThreshold: 100,
	}
}

// ShoulderPress tracks both elbow angles. A rep commits through the
// two-phase counting state: up -> counting on the first lockout frame,
// counting -> down (rep credited) on the next frame still at lockout.
// The intermediate state keeps a brief overshoot from crediting a rep.
// Stages: down, middle, up, counting.
type ShoulderPress struct {
	cfg ShoulderPressConfig

	counter    int
	stage      domain.Stage
	visible    bool
	isPressing bool
	prevLeft   *float64
	prevRight  *float64

	leftShoulder, leftElbow, leftWrist    domain.Point
	rightShoulder, rightElbow, rightWrist domain.Point
}

// NewShoulderPress builds a shoulder press analyzer.
func NewShoulderPress(cfg ShoulderPressConfig) *ShoulderPress {
	return &ShoulderPress{cfg: cfg, stage: domain.StageDown, visible: true}
}

// Analyze judges one shoulder press frame.
func (sp *ShoulderPress) Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure) {
	if f := validateFrame(frame); f != nil {
		return nil, f
	}

	left, right, visible, formErrors := sp.analyzeArms(frame)
	if formErrors == nil {
		formErrors = []domain.FormError{}
	}

	metrics := map[string]any{
		"leftArmAngle":  nilableInt(left),
		"rightArmAngle": nilableInt(right),
		"isVisible":     visible,
	}

	return &domain.AnalysisResult{
		Stage:     sp.stage,
		Metrics:   metrics,
		Errors:    formErrors,
		FormScore: domain.FormScore(formErrors),
		RepCount:  sp.counter,
	}, nil
}

// Reset clears the counter and motion state.
func (sp *ShoulderPress) Reset() {
	sp.counter = 0
	sp.stage = domain.StageDown
	sp.visible = true
	sp.isPressing = false
	sp.prevLeft = nil
	sp.prevRight = nil
}

func (sp *ShoulderPress) getJoints(frame domain.Frame) bool {
	sp.visible = frame.AllVisible(sp.cfg.VisibilityThreshold,
		domain.LeftShoulder, domain.LeftElbow, domain.LeftWrist,
		domain.RightShoulder, domain.RightElbow, domain.RightWrist)
	if !sp.visible {
		return false
	}

	ls, _ := frame.Joint(domain.LeftShoulder)
	le, _ := frame.Joint(domain.LeftElbow)
	lw, _ := frame.Joint(domain.LeftWrist)
	rs, _ := frame.Joint(domain.RightShoulder)
	re, _ := frame.Joint(domain.RightElbow)
	rw, _ := frame.Joint(domain.RightWrist)

	sp.leftShoulder, sp.leftElbow, sp.leftWrist = ls.Point(), le.Point(), lw.Point()
	sp.rightShoulder, sp.rightElbow, sp.rightWrist = rs.Point(), re.Point(), rw.Point()
	return true
}

func (sp *ShoulderPress) analyzeArms(frame domain.Frame) (left, right *int, visible bool, errs []domain.FormError) {
	if !sp.getJoints(frame) {
		return nil, nil, false, nil
	}

	leftAngle := float64(int(domain.Angle(sp.leftShoulder, sp.leftElbow, sp.leftWrist)))
	rightAngle := float64(int(domain.Angle(sp.rightShoulder, sp.rightElbow, sp.rightWrist)))

	// Movement gate: large deltas start a press, small deltas end it.
	if sp.prevLeft != nil && sp.prevRight != nil {
		leftDelta := math.Abs(leftAngle - *sp.prevLeft)
		rightDelta := math.Abs(rightAngle - *sp.prevRight)
		if !sp.isPressing && leftDelta > sp.cfg.DeltaStartThreshold && rightDelta > sp.cfg.DeltaStartThreshold {
			sp.isPressing = true
			sp.stage = domain.StageMiddle
		} else if sp.isPressing && leftDelta < sp.cfg.DeltaEndThreshold && rightDelta < sp.cfg.DeltaEndThreshold {
			sp.isPressing = false
		}
	}

	previousStage := sp.stage

	if leftAngle < sp.cfg.PressAngleThreshold && rightAngle < sp.cfg.PressAngleThreshold {
		sp.stage = domain.StageUp
	} else if leftAngle > sp.cfg.LockoutThreshold && rightAngle > sp.cfg.LockoutThreshold {
		switch previousStage {
		case domain.StageUp:
			sp.stage = domain.StageCounting
		case domain.StageCounting:
			sp.stage = domain.StageDown
			sp.counter++
		default:
			sp.stage = domain.StageDown
		}
	}

	if math.Abs(leftAngle-rightAngle) > sp.cfg.UnevenThreshold {
		errs = append(errs, domain.FormError{
			Type:     "uneven_pressing",
			Severity: domain.SeverityMedium,
			Message:  "Keep both arms even during the press",
		})
	}

	if sp.stage == domain.StageUp && (leftAngle > sp.cfg.IncompleteThreshold || rightAngle > sp.cfg.IncompleteThreshold) {
		errs = append(errs, domain.FormError{
			Type:     "incorrect_form",
			Severity: domain.SeverityLow,
			Message:  "Press the weights fully overhead for complete range of motion",
		})
	}

	sp.prevLeft = &leftAngle
	sp.prevRight = &rightAngle

	l, r := int(leftAngle), int(rightAngle)
	return &l, &r, true, errs
}
