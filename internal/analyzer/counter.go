package analyzer

import "formcoach/internal/domain"

// repCounter tracks repetitions over a stage sequence using the classic
// down-then-up transition pattern. A rep is credited only on a direct
// down -> up edge while the in-rep latch is set, which debounces jitter
// around the thresholds.
type repCounter struct {
	lastStage  domain.Stage
	count      int
	inRep      bool
	confidence float64
}

// update feeds the next observed stage and its prediction confidence.
func (c *repCounter) update(stage domain.Stage, confidence float64) {
	c.confidence = confidence

	switch {
	case stage == domain.StageDown:
		c.inRep = true
	case stage == domain.StageUp && c.inRep && c.lastStage == domain.StageDown:
		c.count++
		c.inRep = false
	}

	c.lastStage = stage
}

func (c *repCounter) reset() {
	c.lastStage = ""
	c.count = 0
	c.inRep = false
	c.confidence = 0
}

// lungeCounter counts a rep on any transition into down from init or
// mid, the pattern the lunge stage classifier produces.
type lungeCounter struct {
	count         int
	currentStage  domain.Stage
	previousStage domain.Stage
}

func newLungeCounter() lungeCounter {
	return lungeCounter{currentStage: domain.StageUnknown, previousStage: domain.StageUnknown}
}

func (c *lungeCounter) update(stage domain.Stage) {
	if stage == domain.StageDown && (c.currentStage == domain.StageInit || c.currentStage == domain.StageMid) {
		c.count++
	}
	c.previousStage = c.currentStage
	c.currentStage = stage
}

func (c *lungeCounter) reset() {
	c.count = 0
	c.currentStage = domain.StageUnknown
	c.previousStage = domain.StageUnknown
}
