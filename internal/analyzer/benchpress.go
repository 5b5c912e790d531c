package analyzer

import (
	"math"

	"formcoach/internal/domain"
)

// BenchPressConfig holds the bench press thresholds.
type BenchPressConfig struct {
	VisibilityThreshold float64
	DownAngleThreshold  float64
	UpAngleThreshold    float64
	UnevenThreshold     float64
	IncompleteThreshold float64
}

// DefaultBenchPressConfig returns the tuned bench press constants.
func DefaultBenchPressConfig() BenchPressConfig {
	return BenchPressConfig{
		VisibilityThreshold: 0.1,
		DownAngleThreshold:  145,
		UpAngleThreshold:    160,
		UnevenThreshold:     15,
		IncompleteThreshold: 150,
	}
}

// BenchPress tracks both elbow angles with a pressing latch: both below
// the down threshold starts a press, both above the up threshold ends it
// and credits the rep. Stages: up, down.
type BenchPress struct {
	cfg BenchPressConfig

	counter    int
	stage      domain.Stage
	visible    bool
	isPressing bool
	prevLeft   *float64
	prevRight  *float64

	leftShoulder, leftElbow, leftWrist    domain.Point
	rightShoulder, rightElbow, rightWrist domain.Point
}

// NewBenchPress builds a bench press analyzer.
func NewBenchPress(cfg BenchPressConfig) *BenchPress {
	return &BenchPress{cfg: cfg, stage: domain.StageDown, visible: true}
}

// Analyze judges one bench press frame.
func (bp *BenchPress) Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure) {
	if f := validateFrame(frame); f != nil {
		return nil, f
	}

	left, right, visible, formErrors := bp.analyzeArms(frame)
	if formErrors == nil {
		formErrors = []domain.FormError{}
	}

	metrics := map[string]any{
		"leftShoulderAngle":  nilableInt(left),
		"rightShoulderAngle": nilableInt(right),
		"isVisible":          visible,
	}

	return &domain.AnalysisResult{
		Stage:     bp.stage,
		Metrics:   metrics,
		Errors:    formErrors,
		FormScore: domain.FormScore(formErrors),
		RepCount:  bp.counter,
	}, nil
}

// Reset clears the counter and pressing latch.
func (bp *BenchPress) Reset() {
	bp.counter = 0
	bp.stage = domain.StageDown
	bp.visible = true
	bp.isPressing = false
	bp.prevLeft = nil
	bp.prevRight = nil
}

func (bp *BenchPress) getJoints(frame domain.Frame) bool {
	bp.visible = frame.AllVisible(bp.cfg.VisibilityThreshold,
		domain.LeftShoulder, domain.LeftElbow, domain.LeftWrist,
		domain.RightShoulder, domain.RightElbow, domain.RightWrist)
	if !bp.visible {
		return false
	}

	ls, _ := frame.Joint(domain.LeftShoulder)
	le, _ := frame.Joint(domain.LeftElbow)
	lw, _ := frame.Joint(domain.LeftWrist)
	rs, _ := frame.Joint(domain.RightShoulder)
	re, _ := frame.Joint(domain.RightElbow)
	rw, _ := frame.Joint(domain.RightWrist)

	bp.leftShoulder, bp.leftElbow, bp.leftWrist = ls.Point(), le.Point(), lw.Point()
	bp.rightShoulder, bp.rightElbow, bp.rightWrist = rs.Point(), re.Point(), rw.Point()
	return true
}

func (bp *BenchPress) analyzeArms(frame domain.Frame) (left, right *int, visible bool, errs []domain.FormError) {
	if !bp.getJoints(frame) {
		return nil, nil, false, nil
	}

	leftAngle := float64(int(domain.Angle(bp.leftShoulder, bp.leftElbow, bp.leftWrist)))
	rightAngle := float64(int(domain.Angle(bp.rightShoulder, bp.rightElbow, bp.rightWrist)))

	previousStage := bp.stage

	if !bp.isPressing && leftAngle < bp.cfg.DownAngleThreshold && rightAngle < bp.cfg.DownAngleThreshold {
		bp.isPressing = true
		bp.stage = domain.StageDown
	} else if bp.isPressing && leftAngle > bp.cfg.UpAngleThreshold && rightAngle > bp.cfg.UpAngleThreshold {
		bp.isPressing = false
		bp.stage = domain.StageUp
		if previousStage == domain.StageDown {
			bp.counter++
		}
	}

	if math.Abs(leftAngle-rightAngle) > bp.cfg.UnevenThreshold {
		errs = append(errs, domain.FormError{
			Type:     "uneven_pressing",
			Severity: domain.SeverityMedium,
			Message:  "Keep both arms even during the press",
		})
	}

	if bp.stage == domain.StageUp && (leftAngle < bp.cfg.IncompleteThreshold || rightAngle < bp.cfg.IncompleteThreshold) {
		errs = append(errs, domain.FormError{
			Type:     "incorrect_form",
			Severity: domain.SeverityLow,
			Message:  "Extend arms fully for complete range of motion",
		})
	}

	bp.prevLeft = &leftAngle
	bp.prevRight = &rightAngle

	l, r := int(leftAngle), int(rightAngle)
	return &l, &r, true, errs
}
