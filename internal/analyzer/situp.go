package analyzer

import (
	"fmt"
	"time"

	"formcoach/internal/domain"
)

// SitupConfig holds the situp thresholds. The down/up angle thresholds
// and the minimum excursion adapt at runtime to the observed knee bend.
type SitupConfig struct {
	VisibilityThreshold float64
	DownAngleThreshold  float64
	UpAngleThreshold    float64
	MinAngleChange      float64
	MinRepInterval      time.Duration
	KneeIdealMin        float64
	KneeIdealMax        float64
	KneeAcceptableMax   float64
	KneeStraight        float64
}

// DefaultSitupConfig returns the tuned situp constants.
func DefaultSitupConfig() SitupConfig {
	return SitupConfig{
		VisibilityThreshold: 0.3,
		DownAngleThreshold:  120,
		UpAngleThreshold:    90,
		MinAngleChange:      20,
		MinRepInterval:      time.Second,
		KneeIdealMin:        40,
		KneeIdealMax:        45,
		KneeAcceptableMax:   90,
		KneeStraight:        150,
	}
}

// kneeQuality grades the observed knee bend; the grade relaxes or
// tightens the rep thresholds.
type kneeQuality string

const (
	kneeUnknown    kneeQuality = "unknown"
	kneeIdeal      kneeQuality = "ideal"
	kneeAcceptable kneeQuality = "acceptable"
	kneeStraight   kneeQuality = "straight"
	kneeOther      kneeQuality = "other"
)

// Situp tracks the torso angle (shoulder-hip-knee) with side selection
// by knee visibility. A rep is the down -> up edge, debounced by a
// minimum interval and a minimum angle excursion from the recorded
// bottom position. Stages: up, down.
type Situp struct {
	cfg SitupConfig
	now func() time.Time

	counter       int
	stage         domain.Stage
	visible       bool
	lastCountedAt time.Time
	minAngleSeen  float64
	inRep         bool
	kneeQuality   kneeQuality

	shoulder, hip, knee domain.Point
	ankle               *domain.Point
	head                *domain.Point
}

// NewSitup builds a situp analyzer with an injected clock for the rep
// debounce.
func NewSitup(cfg SitupConfig, now func() time.Time) *Situp {
	if now == nil {
		now = time.Now
	}
	return &Situp{
		cfg:          cfg,
		now:          now,
		stage:        domain.StageDown,
		visible:      true,
		minAngleSeen: 180,
		kneeQuality:  kneeUnknown,
	}
}

// Analyze judges one situp frame.
func (s *Situp) Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure) {
	if f := validateFrame(frame); f != nil {
		return nil, f
	}

	torsoAngle, kneeAngle, visible, formErrors := s.analyzeSide(frame)
	if formErrors == nil {
		formErrors = []domain.FormError{}
	}

	metrics := map[string]any{
		"torsoAngle": nilableInt(torsoAngle),
		"kneeAngle":  nilableInt(kneeAngle),
		"isVisible":  visible,
	}

	return &domain.AnalysisResult{
		Stage:     s.stage,
		Metrics:   metrics,
		Errors:    formErrors,
		FormScore: domain.FormScore(formErrors),
		RepCount:  s.counter,
	}, nil
}

// Reset clears the counter, debounce clock and angle tracking.
func (s *Situp) Reset() {
	s.counter = 0
	s.stage = domain.StageDown
	s.visible = true
	s.lastCountedAt = time.Time{}
	s.minAngleSeen = 180
	s.inRep = false
	s.kneeQuality = kneeUnknown
	s.ankle = nil
	s.head = nil
}

// getJoints picks the side with the better knee visibility and falls
// back to the other when only one side clears the threshold.
func (s *Situp) getJoints(frame domain.Frame) bool {
	leftVisible := frame.AllVisible(s.cfg.VisibilityThreshold, domain.LeftShoulder, domain.LeftHip, domain.LeftKnee)
	rightVisible := frame.AllVisible(s.cfg.VisibilityThreshold, domain.RightShoulder, domain.RightHip, domain.RightKnee)

	if !leftVisible && !rightVisible {
		s.visible = false
		return false
	}
	s.visible = true

	shoulderJoint, hipJoint, kneeJoint, ankleJoint := domain.LeftShoulder, domain.LeftHip, domain.LeftKnee, domain.LeftAnkle
	leftKnee, _ := frame.Joint(domain.LeftKnee)
	rightKnee, _ := frame.Joint(domain.RightKnee)
	useRight := rightKnee.Visibility > leftKnee.Visibility
	if !leftVisible || !rightVisible {
		useRight = rightVisible
	}
	if useRight {
		shoulderJoint, hipJoint, kneeJoint, ankleJoint = domain.RightShoulder, domain.RightHip, domain.RightKnee, domain.RightAnkle
	}

	shoulder, _ := frame.Joint(shoulderJoint)
	hip, _ := frame.Joint(hipJoint)
	knee, _ := frame.Joint(kneeJoint)
	s.shoulder, s.hip, s.knee = shoulder.Point(), hip.Point(), knee.Point()

	s.head = nil
	if nose, ok := frame.Joint(domain.Nose); ok && nose.Visibility > s.cfg.VisibilityThreshold {
		p := nose.Point()
		s.head = &p
	}

	s.ankle = nil
	if ankle, ok := frame.Joint(ankleJoint); ok && ankle.Visibility > s.cfg.VisibilityThreshold {
		p := ankle.Point()
		s.ankle = &p
	}

	return true
}

func (s *Situp) analyzeSide(frame domain.Frame) (torso, knee *int, visible bool, errs []domain.FormError) {
	currentTime := s.now()

	if !s.getJoints(frame) {
		return nil, nil, false, nil
	}

	var kneeAngle *int
	if s.ankle != nil {
		angle := int(domain.Angle(s.hip, s.knee, *s.ankle))
		kneeAngle = &angle

		switch {
		case float64(angle) >= s.cfg.KneeIdealMin && float64(angle) <= s.cfg.KneeIdealMax:
			s.kneeQuality = kneeIdeal
		case float64(angle) > s.cfg.KneeIdealMax && float64(angle) <= s.cfg.KneeAcceptableMax:
			s.kneeQuality = kneeAcceptable
		case float64(angle) > s.cfg.KneeStraight:
			s.kneeQuality = kneeStraight
		default:
			s.kneeQuality = kneeOther
		}

		switch s.kneeQuality {
		case kneeStraight:
			errs = append(errs, domain.FormError{
				Type:     "straight_legs",
				Severity: domain.SeverityHigh,
				Message:  "Bend your knees to approximately 40-45 degrees for ideal form",
			})
		case kneeOther:
			errs = append(errs, domain.FormError{
				Type:     "improper_knee_angle",
				Severity: domain.SeverityMedium,
				Message:  fmt.Sprintf("Adjust knee bend closer to 40-45 degrees for ideal form (current: %d°)", angle),
			})
		}
	} else {
		s.kneeQuality = kneeUnknown
	}

	torsoAngle := int(domain.Clamp(domain.Angle(s.shoulder, s.hip, s.knee), 0, 180))

	// Knee quality tunes the stage thresholds and the required excursion.
	downThreshold := s.cfg.DownAngleThreshold
	upThreshold := s.cfg.UpAngleThreshold
	minAngleChange := s.cfg.MinAngleChange
	switch s.kneeQuality {
	case kneeIdeal:
		downThreshold = 110
		upThreshold = 85
	case kneeAcceptable:
		downThreshold += 5
		minAngleChange += 5
	case kneeStraight:
		downThreshold += 15
		minAngleChange += 15
	}

	isDown := false
	if float64(torsoAngle) >= downThreshold {
		// When the head is trackable it must be near the bottom of the
		// frame; otherwise the torso angle alone decides.
		if s.head == nil || s.head.Y > 0.7 {
			isDown = true
		}
	}
	isUp := float64(torsoAngle) < upThreshold

	if isDown && !s.inRep {
		if float64(torsoAngle) < s.minAngleSeen {
			s.minAngleSeen = float64(torsoAngle)
		}
		s.stage = domain.StageDown
	}

	angleChange := s.minAngleSeen - float64(torsoAngle)
	previousStage := s.stage

	switch {
	case isDown:
		s.stage = domain.StageDown
	case isUp && previousStage == domain.StageDown:
		s.stage = domain.StageUp
		interval := currentTime.Sub(s.lastCountedAt)
		if (s.lastCountedAt.IsZero() || interval >= s.cfg.MinRepInterval) && angleChange >= minAngleChange {
			s.counter++
			s.lastCountedAt = currentTime
		}
	case isUp:
		s.stage = domain.StageUp
	}

	if s.stage == domain.StageUp && float64(torsoAngle) >= upThreshold {
		errs = append(errs, domain.FormError{
			Type:     "incomplete_situp",
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("Sit up more to reach at least a %.0f° angle (current: %d°)", upThreshold, torsoAngle),
		})
	}

	return &torsoAngle, kneeAngle, true, errs
}
