package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formcoach/internal/domain"
	"formcoach/internal/testutil"
)

// fakeClock steps through a scripted timeline.
type fakeClock struct {
	times []time.Time
	pos   int
}

func (c *fakeClock) now() time.Time {
	t := c.times[c.pos]
	if c.pos < len(c.times)-1 {
		c.pos++
	}
	return t
}

func plankStep(label string, confidence float64) scriptedStep {
	probs := make([]float64, 3)
	idx := map[string]int{"C": 0, "H": 1, "L": 2}[label]
	rest := (1 - confidence) / 2
	for i := range probs {
		probs[i] = rest
	}
	probs[idx] = confidence
	return scriptedStep{class: label, probs: probs}
}

func TestPlankHoldTimeAdvancesOnlyWhileCorrect(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{times: []time.Time{
		base,
		base.Add(2 * time.Second),
		base.Add(3 * time.Second),
	}}

	model := newScripted([]string{"C", "H", "L"},
		plankStep("C", 0.9), plankStep("C", 0.9), plankStep("H", 0.9))
	plank := NewPlank(DefaultPlankConfig(), model, nil, clock.now)

	frame := testutil.Standing()

	// First call arms the clock; hold time stays zero.
	r1, failure := plank.Analyze(frame)
	require.Nil(t, failure)
	require.NotNil(t, r1.HoldTime)
	assert.Equal(t, 0, *r1.HoldTime)
	assert.Equal(t, domain.StageCorrect, r1.Stage)

	// Two seconds of correct form accumulate.
	r2, failure := plank.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, 2, *r2.HoldTime)
	assert.Equal(t, 2, *r2.DurationInSeconds)
	assert.Equal(t, 100, r2.FormScore)

	// High back: the timer freezes, the error scores.
	r3, failure := plank.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, 2, *r3.HoldTime)
	assert.Equal(t, domain.StageHighBack, r3.Stage)
	require.Len(t, r3.Errors, 1)
	assert.Equal(t, "high_back", r3.Errors[0].Type)
	assert.Equal(t, domain.SeverityHigh, r3.Errors[0].Severity)
	assert.Equal(t, 80, r3.FormScore)
}

func TestPlankHoldTimeIsMonotonicAndBoundedByWallClock(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	times := []time.Time{base}
	for i := 1; i < 6; i++ {
		times = append(times, base.Add(time.Duration(i)*1500*time.Millisecond))
	}
	clock := &fakeClock{times: times}

	model := newScripted([]string{"C", "H", "L"}, plankStep("C", 0.95))
	plank := NewPlank(DefaultPlankConfig(), model, nil, clock.now)

	frame := testutil.Standing()
	prevHold := 0
	prevTime := base
	for i := 0; i < 6; i++ {
		result, failure := plank.Analyze(frame)
		require.Nil(t, failure)
		hold := *result.HoldTime
		require.GreaterOrEqual(t, hold, prevHold)

		now := times[min(i, len(times)-1)]
		elapsed := int(now.Sub(prevTime).Seconds()) + 1
		require.LessOrEqual(t, hold-prevHold, elapsed)
		prevHold, prevTime = hold, now
	}
}

func TestPlankLowConfidenceFallsBackToCorrect(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{times: []time.Time{base, base.Add(time.Second)}}

	model := newScripted([]string{"C", "H", "L"},
		plankStep("H", 0.4), plankStep("H", 0.4))
	plank := NewPlank(DefaultPlankConfig(), model, nil, clock.now)

	frame := testutil.Standing()
	r1, failure := plank.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, domain.StageCorrect, r1.Stage, "low-confidence prediction falls back to correct")
	assert.Empty(t, r1.Errors)

	// The fallback keeps the timer running.
	r2, failure := plank.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, 1, *r2.HoldTime)
}

func TestPlankWithoutModelKeepsTiming(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{times: []time.Time{base, base.Add(3 * time.Second)}}

	plank := NewPlank(DefaultPlankConfig(), nil, nil, clock.now)
	frame := testutil.Standing()

	_, failure := plank.Analyze(frame)
	require.Nil(t, failure)
	result, failure := plank.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, domain.StageCorrect, result.Stage)
	assert.Equal(t, 3, *result.HoldTime)
}

func TestPlankResetZeroesTimer(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := &fakeClock{times: []time.Time{
		base, base.Add(2 * time.Second), base.Add(4 * time.Second), base.Add(5 * time.Second),
	}}

	model := newScripted([]string{"C", "H", "L"}, plankStep("C", 0.9))
	plank := NewPlank(DefaultPlankConfig(), model, nil, clock.now)

	frame := testutil.Standing()
	_, failure := plank.Analyze(frame)
	require.Nil(t, failure)
	result, failure := plank.Analyze(frame)
	require.Nil(t, failure)
	require.Equal(t, 2, *result.HoldTime)

	plank.Reset()

	// The first call after reset re-arms the clock without credit.
	result, failure = plank.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, 0, *result.HoldTime)

	result, failure = plank.Analyze(frame)
	require.Nil(t, failure)
	assert.Equal(t, 1, *result.HoldTime)
}

func TestPlankMetricsShape(t *testing.T) {
	model := newScripted([]string{"C", "H", "L"}, plankStep("L", 0.8))
	plank := NewPlank(DefaultPlankConfig(), model, nil, (&fakeClock{times: []time.Time{time.Now()}}).now)

	result, failure := plank.Analyze(testutil.Standing())
	require.Nil(t, failure)

	assert.Equal(t, domain.StageLowBack, result.Stage)
	assert.Equal(t, 0, result.Metrics["highBackFlag"])
	assert.Equal(t, 1, result.Metrics["lowBackFlag"])
	assert.Equal(t, 80, result.Metrics["confidence"])
	assert.Equal(t, 0, result.RepCount)
}
