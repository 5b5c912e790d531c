package analyzer

import "formcoach/internal/classifier"

// scripted is a deterministic Predictor for tests: each call pops the
// next prediction; the last one repeats once the script runs out.
type scripted struct {
	classes []string
	script  []scriptedStep
	pos     int
}

type scriptedStep struct {
	class string
	probs []float64
}

func newScripted(classes []string, steps ...scriptedStep) *scripted {
	return &scripted{classes: classes, script: steps}
}

func (s *scripted) current() scriptedStep {
	if s.pos < len(s.script) {
		return s.script[s.pos]
	}
	return s.script[len(s.script)-1]
}

func (s *scripted) PredictClass(features []float64) (string, error) {
	return s.current().class, nil
}

func (s *scripted) PredictProba(features []float64) ([]float64, error) {
	step := s.current()
	s.pos++
	return step.probs, nil
}

func (s *scripted) Classes() []string { return s.classes }

var _ classifier.Predictor = (*scripted)(nil)
