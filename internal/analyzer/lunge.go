package analyzer

import (
	"math"

	"formcoach/internal/classifier"
	"formcoach/internal/domain"
)

// lungeJoints is the stage-model feature order.
var lungeJoints = []domain.JointName{
	domain.Nose,
	domain.LeftShoulder, domain.RightShoulder,
	domain.LeftHip, domain.RightHip,
	domain.LeftKnee, domain.RightKnee,
	domain.LeftAnkle, domain.RightAnkle,
	domain.LeftHeel, domain.RightHeel,
	domain.LeftFootIndex, domain.RightFootIndex,
}

// LungeConfig holds the lunge thresholds.
type LungeConfig struct {
	VisibilityThreshold float64
	PredictionThreshold float64
	KneeAngleBand       [2]float64
	KneeOverToeMargin   float64
	AnkleToeRatio       float64
	KneeToeVisibility   float64
}

// DefaultLungeConfig returns the tuned lunge constants.
func DefaultLungeConfig() LungeConfig {
	return LungeConfig{
		VisibilityThreshold: 0.6,
		PredictionThreshold: 0.8,
		KneeAngleBand:       [2]float64{60, 125},
		KneeOverToeMargin:   0.02,
		AnkleToeRatio:       0.6,
		KneeToeVisibility:   0.5,
	}
}

// Lunge classifies the lunge stage with a logistic model over labels
// I/M/D and checks knee depth and knee-over-toe alignment while down.
// Stages: init, mid, down, unknown.
type Lunge struct {
	cfg     LungeConfig
	model   classifier.Predictor
	scaler  *classifier.StandardScaler
	counter lungeCounter
}

// NewLunge builds a lunge analyzer. Without a model every frame reports
// stage unknown and no reps accumulate.
func NewLunge(cfg LungeConfig, model classifier.Predictor, scaler *classifier.StandardScaler) *Lunge {
	return &Lunge{cfg: cfg, model: model, scaler: scaler, counter: newLungeCounter()}
}

// Analyze judges one lunge frame.
func (l *Lunge) Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure) {
	if f := validateFrame(frame); f != nil {
		return nil, f
	}

	stage := l.detectStage(frame)
	l.counter.update(stage)

	formErrors := []domain.FormError{}
	metrics := map[string]any{
		"leftKneeAngle":  nil,
		"rightKneeAngle": nil,
	}

	// Form is judged only at the bottom of the movement.
	if stage == domain.StageDown {
		leftAngle, rightAngle, ok := l.kneeAngles(frame)
		if ok {
			metrics["leftKneeAngle"] = domain.Round2(leftAngle)
			metrics["rightKneeAngle"] = domain.Round2(rightAngle)

			if leftAngle < l.cfg.KneeAngleBand[0] || leftAngle > l.cfg.KneeAngleBand[1] {
				formErrors = append(formErrors, domain.FormError{
					Type:     "knee_angle",
					Severity: domain.SeverityHigh,
					Message:  "Left knee angle is not in proper range. Aim for 60-125 degrees.",
				})
			}
			if rightAngle < l.cfg.KneeAngleBand[0] || rightAngle > l.cfg.KneeAngleBand[1] {
				formErrors = append(formErrors, domain.FormError{
					Type:     "knee_angle",
					Severity: domain.SeverityHigh,
					Message:  "Right knee angle is not in proper range. Aim for 60-125 degrees.",
				})
			}
		}

		kneeOverToe := l.detectKneeOverToe(frame)
		metrics["kneeOverToe"] = kneeOverToe
		if kneeOverToe {
			formErrors = append(formErrors, domain.FormError{
				Type:     "knee_over_toe",
				Severity: domain.SeverityHigh,
				Message:  "Knee is extending beyond toes. Ensure proper alignment.",
			})
		}
	}

	return &domain.AnalysisResult{
		Stage:     stage,
		Metrics:   metrics,
		Errors:    formErrors,
		FormScore: domain.FormScore(formErrors),
		RepCount:  l.counter.count,
	}, nil
}

// Reset clears the rep counter and stage tracking.
func (l *Lunge) Reset() {
	l.counter.reset()
}

// detectStage maps the stage model's I/M/D labels to stages, requiring
// the configured prediction confidence.
func (l *Lunge) detectStage(frame domain.Frame) domain.Stage {
	if l.model == nil {
		return domain.StageUnknown
	}

	features := classifier.ExtractKeypoints(frame, lungeJoints)
	if l.scaler != nil {
		scaled, err := l.scaler.Transform(features)
		if err != nil {
			return domain.StageUnknown
		}
		features = scaled
	}

	class, err := l.model.PredictClass(features)
	if err != nil {
		return domain.StageUnknown
	}
	probs, err := l.model.PredictProba(features)
	if err != nil {
		return domain.StageUnknown
	}
	if maxProb(probs) < l.cfg.PredictionThreshold {
		return domain.StageUnknown
	}

	switch class {
	case "I":
		return domain.StageInit
	case "M":
		return domain.StageMid
	case "D":
		return domain.StageDown
	default:
		return domain.StageUnknown
	}
}

func (l *Lunge) kneeAngles(frame domain.Frame) (left, right float64, ok bool) {
	joints := []domain.JointName{
		domain.LeftHip, domain.LeftKnee, domain.LeftAnkle,
		domain.RightHip, domain.RightKnee, domain.RightAnkle,
	}
	points := make(map[domain.JointName]domain.Point, len(joints))
	for _, j := range joints {
		lm, present := frame.Joint(j)
		if !present {
			return 0, 0, false
		}
		points[j] = lm.Point()
	}
	left = domain.Angle(points[domain.LeftHip], points[domain.LeftKnee], points[domain.LeftAnkle])
	right = domain.Angle(points[domain.RightHip], points[domain.RightKnee], points[domain.RightAnkle])
	return left, right, true
}

// detectKneeOverToe flags a knee protruding past the toe on the x axis
// beyond the margin, or past the ankle by more than the configured share
// of the ankle-to-toe distance. The x axis points from the camera's
// right to left, so the two sides compare in opposite directions.
func (l *Lunge) detectKneeOverToe(frame domain.Frame) bool {
	leftKnee, _ := frame.Joint(domain.LeftKnee)
	leftAnkle, _ := frame.Joint(domain.LeftAnkle)
	leftFoot, _ := frame.Joint(domain.LeftFootIndex)
	rightKnee, _ := frame.Joint(domain.RightKnee)
	rightAnkle, _ := frame.Joint(domain.RightAnkle)
	rightFoot, _ := frame.Joint(domain.RightFootIndex)

	leftError := false
	if leftKnee.Visibility > l.cfg.KneeToeVisibility && leftFoot.Visibility > l.cfg.KneeToeVisibility {
		kneeOverToe := leftKnee.X > leftFoot.X+l.cfg.KneeOverToeMargin
		kneeOverAnkle := leftKnee.X > leftAnkle.X+l.cfg.KneeOverToeMargin

		ratioError := false
		if leftAnkle.Visibility > l.cfg.KneeToeVisibility {
			ankleToeDist := math.Abs(leftAnkle.X - leftFoot.X)
			if ankleToeDist > 0 {
				ratioError = (leftKnee.X-leftAnkle.X)/ankleToeDist > l.cfg.AnkleToeRatio
			}
		}
		leftError = kneeOverToe || (kneeOverAnkle && ratioError)
	}

	rightError := false
	if rightKnee.Visibility > l.cfg.KneeToeVisibility && rightFoot.Visibility > l.cfg.KneeToeVisibility {
		kneeOverToe := rightKnee.X < rightFoot.X-l.cfg.KneeOverToeMargin
		kneeOverAnkle := rightKnee.X < rightAnkle.X-l.cfg.KneeOverToeMargin

		ratioError := false
		if rightAnkle.Visibility > l.cfg.KneeToeVisibility {
			ankleToeDist := math.Abs(rightAnkle.X - rightFoot.X)
			if ankleToeDist > 0 {
				ratioError = (rightAnkle.X-rightKnee.X)/ankleToeDist > l.cfg.AnkleToeRatio
			}
		}
		rightError = kneeOverToe || (kneeOverAnkle && ratioError)
	}

	return leftError || rightError
}
