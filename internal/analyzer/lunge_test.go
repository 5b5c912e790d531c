package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formcoach/internal/domain"
	"formcoach/internal/testutil"
)

func lungeStep(label string) scriptedStep {
	probs := map[string][]float64{
		"I": {0.9, 0.05, 0.05},
		"M": {0.05, 0.9, 0.05},
		"D": {0.05, 0.05, 0.9},
	}[label]
	return scriptedStep{class: label, probs: probs}
}

// lungeFrame bends both knees to the given angle at the bottom of a
// lunge, with the toes kept outward of knee and ankle so the alignment
// check stays clean. The right side rotates the opposite way so both
// ankles land on their outward side.
func lungeFrame(kneeAngle float64) domain.Frame {
	frame := testutil.Standing()
	frame = testutil.PlaceAngle(frame, domain.LeftHip, domain.LeftKnee, domain.LeftAnkle, kneeAngle, 0.2)
	frame = testutil.PlaceAngle(frame, domain.RightHip, domain.RightKnee, domain.RightAnkle, -kneeAngle, 0.2)

	leftAnkle, _ := frame.Joint(domain.LeftAnkle)
	leftKnee, _ := frame.Joint(domain.LeftKnee)
	rightAnkle, _ := frame.Joint(domain.RightAnkle)
	rightKnee, _ := frame.Joint(domain.RightKnee)

	frame = testutil.Set(frame, domain.LeftFootIndex, math.Max(leftAnkle.X, leftKnee.X)+0.05, leftAnkle.Y+0.03)
	frame = testutil.Set(frame, domain.RightFootIndex, math.Min(rightAnkle.X, rightKnee.X)-0.05, rightAnkle.Y+0.03)
	return frame
}

func TestLungeCountsRepOnDescent(t *testing.T) {
	model := newScripted([]string{"I", "M", "D"},
		lungeStep("I"), lungeStep("M"), lungeStep("D"), lungeStep("I"))
	lunge := NewLunge(DefaultLungeConfig(), model, nil)

	frame := testutil.Standing()

	r1, failure := lunge.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, domain.StageInit, r1.Stage)
	assert.Equal(t, 0, r1.RepCount)

	r2, failure := lunge.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, domain.StageMid, r2.Stage)
	assert.Equal(t, 0, r2.RepCount)

	r3, failure := lunge.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, domain.StageDown, r3.Stage)
	assert.Equal(t, 1, r3.RepCount)

	r4, failure := lunge.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, 1, r4.RepCount, "returning to init must not count again")
}

func TestLungeLowConfidenceIsUnknown(t *testing.T) {
	model := newScripted([]string{"I", "M", "D"},
		scriptedStep{class: "D", probs: []float64{0.3, 0.3, 0.4}})
	lunge := NewLunge(DefaultLungeConfig(), model, nil)

	result, failure := lunge.Analyze(testutil.Standing())
	require.Nil(t, failure)
	assert.Equal(t, domain.StageUnknown, result.Stage)
	assert.Equal(t, 0, result.RepCount)
}

func TestLungeKneeAngleCheckedOnlyWhenDown(t *testing.T) {
	// Knees nearly straight: out of the 60-125 band.
	frame := lungeFrame(170)

	model := newScripted([]string{"I", "M", "D"}, lungeStep("M"), lungeStep("D"))
	lunge := NewLunge(DefaultLungeConfig(), model, nil)

	mid, failure := lunge.Analyze(frame)
	require.Nil(t, failure)
	assert.Empty(t, mid.Errors, "no form checks outside the down stage")
	assert.Nil(t, mid.Metrics["leftKneeAngle"])

	down, failure := lunge.Analyze(frame)
	require.Nil(t, failure)

	kneeErrors := 0
	for _, e := range down.Errors {
		if e.Type == "knee_angle" {
			kneeErrors++
			assert.Equal(t, domain.SeverityHigh, e.Severity)
		}
	}
	assert.Equal(t, 2, kneeErrors, "both knees out of band")
	assert.NotNil(t, down.Metrics["leftKneeAngle"])
}

func TestLungeKneeWithinBandIsClean(t *testing.T) {
	frame := lungeFrame(100)

	model := newScripted([]string{"I", "M", "D"}, lungeStep("D"))
	lunge := NewLunge(DefaultLungeConfig(), model, nil)

	result, failure := lunge.Analyze(frame)
	require.Nil(t, failure)

	for _, e := range result.Errors {
		assert.NotEqual(t, "knee_angle", e.Type)
	}
	assert.Equal(t, false, result.Metrics["kneeOverToe"])
}

func TestLungeKneeOverToeDetected(t *testing.T) {
	frame := lungeFrame(100)
	// Push the left knee well past the left toe on the x axis.
	frame = testutil.Set(frame, domain.LeftKnee, 0.92, 0.70)

	model := newScripted([]string{"I", "M", "D"}, lungeStep("D"))
	lunge := NewLunge(DefaultLungeConfig(), model, nil)

	result, failure := lunge.Analyze(frame)
	require.Nil(t, failure)

	assert.Equal(t, true, result.Metrics["kneeOverToe"])
	found := false
	for _, e := range result.Errors {
		if e.Type == "knee_over_toe" {
			found = true
			assert.Equal(t, domain.SeverityHigh, e.Severity)
		}
	}
	assert.True(t, found)
}

func TestLungeWithoutModelStaysUnknown(t *testing.T) {
	lunge := NewLunge(DefaultLungeConfig(), nil, nil)

	result, failure := lunge.Analyze(testutil.Standing())
	require.Nil(t, failure)
	assert.Equal(t, domain.StageUnknown, result.Stage)
}

func TestLungeResetClearsCount(t *testing.T) {
	model := newScripted([]string{"I", "M", "D"},
		lungeStep("I"), lungeStep("D"), lungeStep("I"))
	lunge := NewLunge(DefaultLungeConfig(), model, nil)

	frame := testutil.Standing()
	_, failure := lunge.Analyze(frame)
	require.Nil(t, failure)
	result, failure := lunge.Analyze(frame)
	require.Nil(t, failure)
	require.Equal(t, 1, result.RepCount)

	lunge.Reset()
	result, failure = lunge.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, 0, result.RepCount)
}
