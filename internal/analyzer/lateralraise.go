package analyzer

import (
	"math"

	"formcoach/internal/domain"
)

// lateralRaiseRequired are the joints the visibility gate counts.
var lateralRaiseRequired = []domain.JointName{
	domain.LeftShoulder, domain.RightShoulder,
	domain.LeftElbow, domain.RightElbow,
	domain.LeftHip, domain.RightHip,
}

// LateralRaiseConfig holds the lateral raise thresholds.
type LateralRaiseConfig struct {
	VisibilityThreshold  float64
	VisibleFraction      float64
	RaisedAngleThreshold float64
	DeltaStartThreshold  float64
	DeltaStableThreshold float64
	UnevenThreshold      float64
	ExcessiveThreshold   float64
	InsufficientMinimum  float64
}

// DefaultLateralRaiseConfig returns the tuned lateral raise constants.
func DefaultLateralRaiseConfig() LateralRaiseConfig {
	return LateralRaiseConfig{
		VisibilityThreshold:  0.2,
		VisibleFraction:      0.7,
		RaisedAngleThreshold: 120,
		DeltaStartThreshold:  15,
		DeltaStableThreshold: 7,
		UnevenThreshold:      20,
		ExcessiveThreshold:   170,
		InsufficientMinimum:  100,
	}
}

// LateralRaise tracks the shoulder-elbow-hip angle per side with a
// delta-based motion gate. Stage semantics are inverted relative to the
// other analyzers: down means arms raised. A rep is the up -> down
// transition while the raising motion is active and both arms clear the
// raised threshold. Stages: up, down.
type LateralRaise struct {
	cfg LateralRaiseConfig

	counter       int
	currentStage  domain.Stage
	previousStage domain.Stage
	isRaising     bool
	prevLeft      *float64
	prevRight     *float64
}

// NewLateralRaise builds a lateral raise analyzer.
func NewLateralRaise(cfg LateralRaiseConfig) *LateralRaise {
	return &LateralRaise{cfg: cfg, currentStage: domain.StageUp, previousStage: domain.StageUp}
}

// Analyze judges one lateral raise frame.
func (lr *LateralRaise) Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure) {
	if f := validateFrame(frame); f != nil {
		return nil, f
	}

	if !lr.checkVisibility(frame) {
		// Counting state survives visibility dropouts.
		return &domain.AnalysisResult{
			Stage: lr.currentStage,
			Metrics: map[string]any{},
			Errors: []domain.FormError{{
				Type:     "visibility",
				Severity: domain.SeverityHigh,
				Message:  "Cannot see body clearly. Adjust your position.",
			}},
			FormScore: 70,
			RepCount:  lr.counter,
		}, nil
	}

	ls, _ := frame.Joint(domain.LeftShoulder)
	le, _ := frame.Joint(domain.LeftElbow)
	lh, _ := frame.Joint(domain.LeftHip)
	rs, _ := frame.Joint(domain.RightShoulder)
	re, _ := frame.Joint(domain.RightElbow)
	rh, _ := frame.Joint(domain.RightHip)

	leftArmAngle := domain.Angle(ls.Point(), le.Point(), lh.Point())
	rightArmAngle := domain.Angle(rs.Point(), re.Point(), rh.Point())

	var leftDelta, rightDelta float64
	if lr.prevLeft != nil && lr.prevRight != nil {
		leftDelta = math.Abs(leftArmAngle - *lr.prevLeft)
		rightDelta = math.Abs(rightArmAngle - *lr.prevRight)

		if !lr.isRaising && leftDelta > lr.cfg.DeltaStartThreshold && rightDelta > lr.cfg.DeltaStartThreshold {
			lr.isRaising = true
		} else if lr.isRaising && leftDelta < lr.cfg.DeltaStableThreshold && rightDelta < lr.cfg.DeltaStableThreshold {
			lr.isRaising = false
		}
	}
	lr.prevLeft = &leftArmAngle
	lr.prevRight = &rightArmAngle

	metrics := map[string]any{
		"leftArmAngle":  domain.Round2(leftArmAngle),
		"rightArmAngle": domain.Round2(rightArmAngle),
		"armAngleDelta": domain.Round2(math.Abs(leftArmAngle - rightArmAngle)),
		"leftDelta":     domain.Round2(leftDelta),
		"rightDelta":    domain.Round2(rightDelta),
	}

	currentStage := lr.detectStage(leftArmAngle, rightArmAngle)

	if lr.isRaising && leftArmAngle > lr.cfg.RaisedAngleThreshold && rightArmAngle > lr.cfg.RaisedAngleThreshold {
		if lr.currentStage == domain.StageUp && currentStage == domain.StageDown {
			lr.counter++
		}
	}

	lr.previousStage = lr.currentStage
	lr.currentStage = currentStage

	formErrors := lr.detectErrors(leftArmAngle, rightArmAngle)

	return &domain.AnalysisResult{
		Stage:     currentStage,
		Metrics:   metrics,
		Errors:    formErrors,
		FormScore: domain.FormScore(formErrors),
		RepCount:  lr.counter,
	}, nil
}

// Reset clears the counter and motion gate.
func (lr *LateralRaise) Reset() {
	lr.counter = 0
	lr.currentStage = domain.StageUp
	lr.previousStage = domain.StageUp
	lr.isRaising = false
	lr.prevLeft = nil
	lr.prevRight = nil
}

func (lr *LateralRaise) checkVisibility(frame domain.Frame) bool {
	visible := 0
	for _, j := range lateralRaiseRequired {
		if frame.Visible(j, lr.cfg.VisibilityThreshold) {
			visible++
		}
	}
	return float64(visible)/float64(len(lateralRaiseRequired)) >= lr.cfg.VisibleFraction
}

// detectStage: arms past the raised threshold is down, otherwise up.
func (lr *LateralRaise) detectStage(leftArmAngle, rightArmAngle float64) domain.Stage {
	if (leftArmAngle+rightArmAngle)/2 > lr.cfg.RaisedAngleThreshold {
		return domain.StageDown
	}
	return domain.StageUp
}

func (lr *LateralRaise) detectErrors(leftArmAngle, rightArmAngle float64) []domain.FormError {
	formErrors := []domain.FormError{}

	if math.Abs(leftArmAngle-rightArmAngle) > lr.cfg.UnevenThreshold {
		formErrors = append(formErrors, domain.FormError{
			Type:     "uneven_arms",
			Severity: domain.SeverityMedium,
			Message:  "Keep both arms at the same height during lateral raises.",
		})
	}

	if leftArmAngle > lr.cfg.ExcessiveThreshold || rightArmAngle > lr.cfg.ExcessiveThreshold {
		formErrors = append(formErrors, domain.FormError{
			Type:     "excessive_raise",
			Severity: domain.SeverityMedium,
			Message:  "Avoid raising arms too high above shoulder level.",
		})
	}

	if lr.currentStage == domain.StageDown && (leftArmAngle < lr.cfg.InsufficientMinimum || rightArmAngle < lr.cfg.InsufficientMinimum) {
		formErrors = append(formErrors, domain.FormError{
			Type:     "insufficient_raise",
			Severity: domain.SeverityMedium,
			Message:  "Raise arms to at least shoulder level for full range of motion.",
		})
	}

	return formErrors
}
