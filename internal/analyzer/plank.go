package analyzer

import (
	"math"
	"time"

	"formcoach/internal/classifier"
	"formcoach/internal/domain"
)

// plankJoints is the plank-model feature order.
var plankJoints = []domain.JointName{
	domain.Nose,
	domain.LeftShoulder, domain.RightShoulder,
	domain.LeftElbow, domain.RightElbow,
	domain.LeftWrist, domain.RightWrist,
	domain.LeftHip, domain.RightHip,
	domain.LeftKnee, domain.RightKnee,
	domain.LeftAnkle, domain.RightAnkle,
	domain.LeftHeel, domain.RightHeel,
	domain.LeftFootIndex, domain.RightFootIndex,
}

// PlankConfig holds the plank thresholds.
type PlankConfig struct {
	VisibilityThreshold float64
	PredictionThreshold float64
}

// DefaultPlankConfig returns the tuned plank constants.
func DefaultPlankConfig() PlankConfig {
	return PlankConfig{
		VisibilityThreshold: 0.6,
		PredictionThreshold: 0.6,
	}
}

// Plank classifies back posture (C/H/L labels) and integrates a hold
// timer that advances only while the form is correct. There is no rep
// counter; Reset zeroes the timer. Stages: correct, high_back, low_back.
// Low-confidence frames fall back to correct so the timer keeps running
// through momentary classifier doubt.
type Plank struct {
	cfg    PlankConfig
	model  classifier.Predictor
	scaler *classifier.StandardScaler
	now    func() time.Time

	holdTime     float64
	lastAnalysis time.Time
	started      bool
}

// NewPlank builds a plank analyzer. The clock is injected so the timer
// is testable; a nil model leaves every frame on the correct fallback.
func NewPlank(cfg PlankConfig, model classifier.Predictor, scaler *classifier.StandardScaler, now func() time.Time) *Plank {
	if now == nil {
		now = time.Now
	}
	return &Plank{cfg: cfg, model: model, scaler: scaler, now: now}
}

// Analyze judges one plank frame and advances the hold timer.
func (p *Plank) Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure) {
	if f := validateFrame(frame); f != nil {
		return nil, f
	}

	stage, confidence := p.detectStage(frame)
	if confidence < p.cfg.PredictionThreshold {
		stage = domain.StageUnknown
	}
	if stage == domain.StageUnknown {
		stage = domain.StageCorrect
	}

	formErrors := []domain.FormError{}
	switch stage {
	case domain.StageHighBack:
		formErrors = append(formErrors, domain.FormError{
			Type:     "high_back",
			Severity: domain.SeverityHigh,
			Message:  "Your lower back is raised too high. Flatten your back to maintain proper form.",
		})
	case domain.StageLowBack:
		formErrors = append(formErrors, domain.FormError{
			Type:     "low_back",
			Severity: domain.SeverityHigh,
			Message:  "Your lower back is dipping too low. Engage your core to maintain a straight line from head to heels.",
		})
	}
	formScore := domain.FormScore(formErrors)

	// The first call only arms the clock; later calls integrate the
	// elapsed wall time while the stage stays correct.
	current := p.now()
	if !p.started {
		p.started = true
	} else if stage == domain.StageCorrect {
		p.holdTime += current.Sub(p.lastAnalysis).Seconds()
	}
	p.lastAnalysis = current

	holdSeconds := int(p.holdTime)

	metrics := map[string]any{
		"highBackFlag": boolFlag(stage == domain.StageHighBack),
		"lowBackFlag":  boolFlag(stage == domain.StageLowBack),
		"holdTime":     holdSeconds,
		"formScore":    formScore,
		"confidence":   int(math.Round(confidence * 100)),
		"originalData": map[string]any{"stage": stage},
	}

	duration := holdSeconds
	return &domain.AnalysisResult{
		Stage:             stage,
		Metrics:           metrics,
		Errors:            formErrors,
		FormScore:         formScore,
		RepCount:          0,
		DurationInSeconds: &duration,
		HoldTime:          &duration,
	}, nil
}

// Reset zeroes the hold timer and disarms the clock.
func (p *Plank) Reset() {
	p.holdTime = 0
	p.lastAnalysis = time.Time{}
	p.started = false
}

// detectStage runs the posture model. Missing model or any prediction
// failure reports correct at zero confidence, the documented fallback.
func (p *Plank) detectStage(frame domain.Frame) (domain.Stage, float64) {
	if p.model == nil {
		return domain.StageCorrect, 0
	}

	features := classifier.ExtractKeypoints(frame, plankJoints)
	if p.scaler != nil {
		scaled, err := p.scaler.Transform(features)
		if err != nil {
			return domain.StageCorrect, 0
		}
		features = scaled
	}

	class, err := p.model.PredictClass(features)
	if err != nil {
		return domain.StageCorrect, 0
	}
	probs, err := p.model.PredictProba(features)
	if err != nil {
		return domain.StageCorrect, 0
	}

	switch class {
	case "C":
		return domain.StageCorrect, maxProb(probs)
	case "H":
		return domain.StageHighBack, maxProb(probs)
	case "L":
		return domain.StageLowBack, maxProb(probs)
	default:
		return domain.StageUnknown, maxProb(probs)
	}
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}
