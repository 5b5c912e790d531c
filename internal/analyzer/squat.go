package analyzer

import (
	"formcoach/internal/classifier"
	"formcoach/internal/domain"
)

// squatJoints is the feature-extraction order the squat model was
// trained on. Changing it invalidates the classifier.
var squatJoints = []domain.JointName{
	domain.Nose,
	domain.LeftShoulder, domain.RightShoulder,
	domain.LeftHip, domain.RightHip,
	domain.LeftKnee, domain.RightKnee,
	domain.LeftAnkle, domain.RightAnkle,
}

// SquatConfig holds the squat thresholds.
type SquatConfig struct {
	VisibilityThreshold float64
	PredictionThreshold float64
	FootShoulderRatio   [2]float64
	KneeFootRatioUp     [2]float64
	KneeFootRatioDown   [2]float64
}

// DefaultSquatConfig returns the tuned squat constants.
func DefaultSquatConfig() SquatConfig {
	return SquatConfig{
		VisibilityThreshold: 0.5,
		PredictionThreshold: 0.3,
		FootShoulderRatio:   [2]float64{1.2, 2.8},
		KneeFootRatioUp:     [2]float64{0.5, 1.0},
		KneeFootRatioDown:   [2]float64{0.7, 1.1},
	}
}

// Squat classifies the squat stage with a logistic model (class 0 down,
// class 1 up) and checks foot and knee placement geometrically.
// Stages: up, down, unknown.
type Squat struct {
	cfg     SquatConfig
	model   classifier.Predictor
	counter repCounter
}

// NewSquat builds a squat analyzer. A nil model disables stage
// detection; every frame then reports stage unknown.
func NewSquat(cfg SquatConfig, model classifier.Predictor) *Squat {
	return &Squat{cfg: cfg, model: model}
}

// placement codes for foot and knee checks.
const (
	placementNotAssessed = -1
	placementCorrect     = 0
	placementTooClose    = 1
	placementTooFar      = 2
)

// Analyze judges one squat frame.
func (s *Squat) Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure) {
	if f := validateFrame(frame); f != nil {
		return nil, f
	}

	stage := s.determineStage(frame)

	footPlacement, kneePlacement := s.analyzePlacement(frame, stage)

	formErrors := []domain.FormError{}
	switch footPlacement {
	case placementTooClose:
		formErrors = append(formErrors, domain.FormError{
			Type: "foot_placement", Severity: domain.SeverityHigh, Message: "Feet too close together",
		})
	case placementTooFar:
		formErrors = append(formErrors, domain.FormError{
			Type: "foot_placement", Severity: domain.SeverityHigh, Message: "Feet too far apart",
		})
	}
	switch kneePlacement {
	case placementTooClose:
		formErrors = append(formErrors, domain.FormError{
			Type: "knee_placement", Severity: domain.SeverityHigh, Message: "Knees too close together",
		})
	case placementTooFar:
		formErrors = append(formErrors, domain.FormError{
			Type: "knee_placement", Severity: domain.SeverityHigh, Message: "Knees too far apart",
		})
	}

	metrics := s.calculateMetrics(frame)
	if metrics == nil {
		return nil, domain.NewFailure(domain.FailureMetricsCalcError, "Failed to calculate pose metrics")
	}

	return &domain.AnalysisResult{
		Stage:     stage,
		Metrics:   metrics,
		Errors:    formErrors,
		FormScore: domain.FormScore(formErrors),
		RepCount:  s.counter.count,
	}, nil
}

// Reset clears the rep counter.
func (s *Squat) Reset() {
	s.counter.reset()
}

// determineStage runs the classifier and updates the rep counter.
// Predictions below the confidence threshold still map to their class to
// keep sensitivity high; this mirrors the trained pipeline.
func (s *Squat) determineStage(frame domain.Frame) domain.Stage {
	required := []domain.JointName{
		domain.LeftHip, domain.RightHip,
		domain.LeftKnee, domain.RightKnee,
		domain.LeftAnkle, domain.RightAnkle,
		domain.LeftShoulder, domain.RightShoulder,
	}
	if !frame.AllVisible(s.cfg.VisibilityThreshold, required...) {
		return domain.StageUnknown
	}

	if s.model == nil {
		return domain.StageUnknown
	}

	features := classifier.ExtractKeypoints(frame, squatJoints)
	class, err := s.model.PredictClass(features)
	if err != nil {
		return domain.StageUnknown
	}
	probs, err := s.model.PredictProba(features)
	if err != nil {
		return domain.StageUnknown
	}
	confidence := maxProb(probs)

	var stage domain.Stage
	switch class {
	case "0":
		stage = domain.StageDown
	case "1":
		stage = domain.StageUp
	default:
		return domain.StageUnknown
	}

	s.counter.update(stage, confidence)
	return stage
}

// analyzePlacement computes foot/shoulder and knee/foot ratio codes.
// Placement uses the foot tips for foot width; anything below the
// visibility threshold leaves the corresponding code not assessed.
func (s *Squat) analyzePlacement(frame domain.Frame, stage domain.Stage) (foot, knee int) {
	foot, knee = placementNotAssessed, placementNotAssessed

	if !frame.AllVisible(s.cfg.VisibilityThreshold,
		domain.LeftFootIndex, domain.RightFootIndex,
		domain.LeftShoulder, domain.RightShoulder) {
		return foot, knee
	}

	leftShoulder, _ := frame.Joint(domain.LeftShoulder)
	rightShoulder, _ := frame.Joint(domain.RightShoulder)
	leftFoot, _ := frame.Joint(domain.LeftFootIndex)
	rightFoot, _ := frame.Joint(domain.RightFootIndex)

	shoulderWidth := domain.Distance(leftShoulder.Point(), rightShoulder.Point())
	footWidth := domain.Distance(leftFoot.Point(), rightFoot.Point())
	if shoulderWidth < 0.01 {
		return foot, knee
	}

	footShoulderRatio := footWidth / shoulderWidth
	switch {
	case footShoulderRatio >= s.cfg.FootShoulderRatio[0] && footShoulderRatio <= s.cfg.FootShoulderRatio[1]:
		foot = placementCorrect
	case footShoulderRatio < s.cfg.FootShoulderRatio[0]:
		foot = placementTooClose
	default:
		foot = placementTooFar
	}

	if !frame.AllVisible(s.cfg.VisibilityThreshold, domain.LeftKnee, domain.RightKnee) {
		return foot, knee
	}

	leftKnee, _ := frame.Joint(domain.LeftKnee)
	rightKnee, _ := frame.Joint(domain.RightKnee)
	kneeWidth := domain.Distance(leftKnee.Point(), rightKnee.Point())

	var kneeFootRatio float64
	if footWidth > 0 {
		kneeFootRatio = domain.Round1(kneeWidth / footWidth)
	}

	var band [2]float64
	switch stage {
	case domain.StageUp:
		band = s.cfg.KneeFootRatioUp
	case domain.StageDown:
		band = s.cfg.KneeFootRatioDown
	default:
		return foot, knee
	}

	switch {
	case kneeFootRatio >= band[0] && kneeFootRatio <= band[1]:
		knee = placementCorrect
	case kneeFootRatio < band[0]:
		knee = placementTooClose
	default:
		knee = placementTooFar
	}
	return foot, knee
}

// calculateMetrics reports widths, ratios, and side-averaged joint
// angles. Returns nil when the frame lacks the required joints.
func (s *Squat) calculateMetrics(frame domain.Frame) map[string]any {
	required := []domain.JointName{
		domain.LeftShoulder, domain.RightShoulder,
		domain.LeftHip, domain.RightHip,
		domain.LeftKnee, domain.RightKnee,
		domain.LeftAnkle, domain.RightAnkle,
	}
	points := make(map[domain.JointName]domain.Point, len(required))
	for _, j := range required {
		lm, ok := frame.Joint(j)
		if !ok {
			return nil
		}
		points[j] = lm.Point()
	}

	shoulderWidth := domain.Distance(points[domain.LeftShoulder], points[domain.RightShoulder])
	feetWidth := domain.Distance(points[domain.LeftAnkle], points[domain.RightAnkle])
	kneeWidth := domain.Distance(points[domain.LeftKnee], points[domain.RightKnee])

	// Below-foot reference points approximate the foot direction for the
	// ankle angle.
	leftFootRef := domain.Point{X: points[domain.LeftAnkle].X, Y: points[domain.LeftAnkle].Y + 0.1}
	rightFootRef := domain.Point{X: points[domain.RightAnkle].X, Y: points[domain.RightAnkle].Y + 0.1}

	hipAngle := (domain.Angle(points[domain.LeftShoulder], points[domain.LeftHip], points[domain.LeftKnee]) +
		domain.Angle(points[domain.RightShoulder], points[domain.RightHip], points[domain.RightKnee])) / 2
	kneeAngle := (domain.Angle(points[domain.LeftHip], points[domain.LeftKnee], points[domain.LeftAnkle]) +
		domain.Angle(points[domain.RightHip], points[domain.RightKnee], points[domain.RightAnkle])) / 2
	ankleAngle := (domain.Angle(points[domain.LeftKnee], points[domain.LeftAnkle], leftFootRef) +
		domain.Angle(points[domain.RightKnee], points[domain.RightAnkle], rightFootRef)) / 2

	var feetToShoulderRatio, kneeToFeetRatio float64
	if shoulderWidth > 0 {
		feetToShoulderRatio = feetWidth / shoulderWidth
	}
	if feetWidth > 0 {
		kneeToFeetRatio = kneeWidth / feetWidth
	}

	return map[string]any{
		"shoulderWidth":       domain.Round2(shoulderWidth),
		"feetWidth":           domain.Round2(feetWidth),
		"kneeWidth":           domain.Round2(kneeWidth),
		"feetToShoulderRatio": domain.Round2(feetToShoulderRatio),
		"kneeToFeetRatio":     domain.Round2(kneeToFeetRatio),
		"hipAngle":            domain.Round2(hipAngle),
		"kneeAngle":           domain.Round2(kneeAngle),
		"ankleAngle":          domain.Round2(ankleAngle),
	}
}

func maxProb(probs []float64) float64 {
	var max float64
	for _, p := range probs {
		if p > max {
			max = p
		}
	}
	return max
}
