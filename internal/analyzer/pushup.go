package analyzer

import (
	"math"

	"formcoach/internal/domain"
)

// pushupRequired are the joints the visibility gate counts.
var pushupRequired = []domain.JointName{
	domain.LeftShoulder, domain.RightShoulder,
	domain.LeftElbow, domain.RightElbow,
	domain.LeftWrist, domain.RightWrist,
	domain.LeftHip, domain.RightHip,
}

// PushupConfig holds the pushup thresholds.
type PushupConfig struct {
	VisibilityThreshold    float64
	VisibleFraction        float64
	UpAngleThreshold       float64
	DownAngleThreshold     float64
	UnevenThreshold        float64
	IncompleteThreshold    float64
	BackAlignmentThreshold float64
}

// DefaultPushupConfig returns the tuned pushup constants.
func DefaultPushupConfig() PushupConfig {
	return PushupConfig{
		VisibilityThreshold:    0.2,
		VisibleFraction:        0.7,
		UpAngleThreshold:       130,
		DownAngleThreshold:     120,
		UnevenThreshold:        20,
		IncompleteThreshold:    120,
		BackAlignmentThreshold: 0.10,
	}
}

// Pushup averages both arm angles for the stage and latches a went-down
// flag at the bottom; the rep is credited when the body comes back up
// from down or middle with the latch set. Stages: up, middle, down.
type Pushup struct {
	cfg PushupConfig

	counter       int
	currentStage  domain.Stage
	previousStage domain.Stage
	wentDown      bool
}

// NewPushup builds a pushup analyzer.
func NewPushup(cfg PushupConfig) *Pushup {
	return &Pushup{cfg: cfg, currentStage: domain.StageUp, previousStage: domain.StageUp}
}

// Analyze judges one pushup frame.
func (p *Pushup) Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure) {
	if f := validateFrame(frame); f != nil {
		return nil, f
	}

	if !p.checkVisibility(frame) {
		formErrors := []domain.FormError{{
			Type:     "visibility",
			Severity: domain.SeverityHigh,
			Message:  "Cannot see body clearly. Adjust your position.",
		}}
		return &domain.AnalysisResult{
			Stage:     p.currentStage,
			Metrics:   map[string]any{},
			Errors:    formErrors,
			FormScore: domain.FormScore(formErrors),
			RepCount:  p.counter,
		}, nil
	}

	ls, _ := frame.Joint(domain.LeftShoulder)
	le, _ := frame.Joint(domain.LeftElbow)
	lw, _ := frame.Joint(domain.LeftWrist)
	rs, _ := frame.Joint(domain.RightShoulder)
	re, _ := frame.Joint(domain.RightElbow)
	rw, _ := frame.Joint(domain.RightWrist)

	leftArmAngle := domain.Angle(ls.Point(), le.Point(), lw.Point())
	rightArmAngle := domain.Angle(rs.Point(), re.Point(), rw.Point())

	metrics := map[string]any{
		"leftArmAngle":  domain.Round2(leftArmAngle),
		"rightArmAngle": domain.Round2(rightArmAngle),
		"armAngleDelta": domain.Round2(math.Abs(leftArmAngle - rightArmAngle)),
	}

	currentStage := p.detectStage(leftArmAngle, rightArmAngle)

	if currentStage == domain.StageDown {
		p.wentDown = true
	}
	if currentStage == domain.StageUp && p.wentDown {
		if p.currentStage == domain.StageDown || p.currentStage == domain.StageMiddle {
			p.counter++
			p.wentDown = false
		}
	}

	p.previousStage = p.currentStage
	p.currentStage = currentStage

	formErrors := p.detectErrors(frame, leftArmAngle, rightArmAngle)

	return &domain.AnalysisResult{
		Stage:     currentStage,
		Metrics:   metrics,
		Errors:    formErrors,
		FormScore: domain.FormScore(formErrors),
		RepCount:  p.counter,
	}, nil
}

// Reset clears the counter and returns the stage machine to up.
func (p *Pushup) Reset() {
	p.counter = 0
	p.currentStage = domain.StageUp
	p.previousStage = domain.StageUp
	p.wentDown = false
}

// checkVisibility passes when at least the configured fraction of the
// required joints clears the visibility threshold.
func (p *Pushup) checkVisibility(frame domain.Frame) bool {
	visible := 0
	for _, j := range pushupRequired {
		if frame.Visible(j, p.cfg.VisibilityThreshold) {
			visible++
		}
	}
	return float64(visible)/float64(len(pushupRequired)) >= p.cfg.VisibleFraction
}

func (p *Pushup) detectStage(leftArmAngle, rightArmAngle float64) domain.Stage {
	avg := (leftArmAngle + rightArmAngle) / 2
	switch {
	case avg > p.cfg.UpAngleThreshold:
		return domain.StageUp
	case avg < p.cfg.DownAngleThreshold:
		return domain.StageDown
	default:
		return domain.StageMiddle
	}
}

func (p *Pushup) detectErrors(frame domain.Frame, leftArmAngle, rightArmAngle float64) []domain.FormError {
	formErrors := []domain.FormError{}

	if math.Abs(leftArmAngle-rightArmAngle) > p.cfg.UnevenThreshold {
		formErrors = append(formErrors, domain.FormError{
			Type:     "uneven_arms",
			Severity: domain.SeverityMedium,
			Message:  "Arms are uneven. Keep shoulders level.",
		})
	}

	if p.currentStage == domain.StageDown && (leftArmAngle > p.cfg.IncompleteThreshold || rightArmAngle > p.cfg.IncompleteThreshold) {
		formErrors = append(formErrors, domain.FormError{
			Type:     "incomplete_pushup",
			Severity: domain.SeverityMedium,
			Message:  "Go lower for a complete push-up.",
		})
	}

	// Shoulder and hip midlines act as a proxy for the back line.
	ls, _ := frame.Joint(domain.LeftShoulder)
	rs, _ := frame.Joint(domain.RightShoulder)
	lh, _ := frame.Joint(domain.LeftHip)
	rh, _ := frame.Joint(domain.RightHip)
	shoulderY := (ls.Y + rs.Y) / 2
	hipY := (lh.Y + rh.Y) / 2
	if math.Abs(shoulderY-hipY) > p.cfg.BackAlignmentThreshold {
		formErrors = append(formErrors, domain.FormError{
			Type:     "back_alignment",
			Severity: domain.SeverityHigh,
			Message:  "Keep your back straight during push-ups.",
		})
	}

	return formErrors
}
