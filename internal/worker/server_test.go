package worker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formcoach/internal/analyzer"
	"formcoach/internal/domain"
	"formcoach/internal/testutil"
)

func testDeps() analyzer.Deps {
	// No model root: classifier-backed analyzers run on their
	// geometric fallbacks, which is all the transport tests need.
	return analyzer.Deps{Now: func() time.Time { return time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC) }}
}

func runServer(t *testing.T, input string) []map[string]any {
	t.Helper()

	var out bytes.Buffer
	server := NewServer(strings.NewReader(input), &out, testDeps(), log.New(io.Discard, "", 0))
	require.NoError(t, server.Run())

	var responses []map[string]any
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded))
		responses = append(responses, decoded)
	}
	return responses
}

func analyzeLine(requestID, exercise string, frame domain.Frame) string {
	payload := map[string]any{
		"requestId":    requestID,
		"exerciseType": exercise,
		"landmarks":    frame,
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func commandLine(requestID, exercise, command string) string {
	data, _ := json.Marshal(map[string]any{
		"requestId":    requestID,
		"exerciseType": exercise,
		"command":      command,
	})
	return string(data)
}

func TestServerEmitsReadyBanner(t *testing.T) {
	responses := runServer(t, "")
	require.Len(t, responses, 1)

	want := map[string]any{"status": "ready", "message": "Exercise Analyzer Server started"}
	if diff := cmp.Diff(want, responses[0]); diff != "" {
		t.Errorf("banner mismatch (-want +got):\n%s", diff)
	}
}

func TestServerOneResponsePerRequest(t *testing.T) {
	frame := testutil.Standing()
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, analyzeLine(fmt.Sprintf("req-%d", i), "pushup", frame))
	}

	responses := runServer(t, strings.Join(lines, "\n"))
	require.Len(t, responses, 6, "banner plus one response per request")

	// Responses come back in request order with matching ids.
	for i, resp := range responses[1:] {
		assert.Equal(t, fmt.Sprintf("req-%d", i), resp["requestId"])
		assert.Equal(t, true, resp["success"])
		assert.Equal(t, "analysis_result", resp["type"])
	}
}

func TestServerAnalysisResultShape(t *testing.T) {
	responses := runServer(t, analyzeLine("shape-1", "pushup", testutil.Standing()))
	require.Len(t, responses, 2)

	resp := responses[1]
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok)

	assert.Contains(t, result, "stage")
	assert.Contains(t, result, "metrics")
	assert.Contains(t, result, "errors")
	assert.Contains(t, result, "formScore")
	assert.Contains(t, result, "repCount")

	score := result["formScore"].(float64)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)

	_, hasProcessing := resp["processingTime"]
	assert.True(t, hasProcessing)
}

func TestServerAllWireFormsAccepted(t *testing.T) {
	frame := testutil.Standing()
	full, _ := json.Marshal(frame)

	var packed [][]float64
	var points []map[string]float64
	for _, lm := range frame {
		packed = append(packed, []float64{lm.X, lm.Y, lm.Z, lm.Visibility})
		points = append(points, map[string]float64{"x": lm.X, "y": lm.Y, "v": lm.Visibility})
	}
	packedJSON, _ := json.Marshal(packed)
	pointsJSON, _ := json.Marshal(points)

	lines := []string{
		fmt.Sprintf(`{"requestId":"wf-1","exerciseType":"pushup","landmarks":%s}`, full),
		fmt.Sprintf(`{"t":"landmarks","e":"pushup","id":1,"p":%s}`, packedJSON),
		fmt.Sprintf(`{"type":"data","exercise":"pushup","frame":2,"points":%s}`, pointsJSON),
		fmt.Sprintf(`{"type":"landmarks","poseLandmarks":%s,"exerciseType":"pushup","frameId":3}`, full),
		fmt.Sprintf(`{"landmarks":%s,"exercise":"pushup"}`, full),
	}

	responses := runServer(t, strings.Join(lines, "\n"))
	require.Len(t, responses, len(lines)+1)
	for i, resp := range responses[1:] {
		assert.Equal(t, true, resp["success"], "wire form %d should parse", i)
		assert.Equal(t, "analysis_result", resp["type"])
	}
}

func TestServerResetCommandRoundTrip(t *testing.T) {
	// Two pushup reps, reset, then one more frame: the count restarts.
	var lines []string
	angles := [][2]float64{{150, 150}, {100, 100}, {150, 150}, {100, 100}, {150, 150}}
	for i, a := range angles {
		frame := pushupArms(a[0], a[1])
		lines = append(lines, analyzeLine(fmt.Sprintf("rep-%d", i), "pushup", frame))
	}
	lines = append(lines, commandLine("reset-1", "pushup", "reset_counter"))
	lines = append(lines, analyzeLine("after-reset", "pushup", pushupArms(150, 150)))

	responses := runServer(t, strings.Join(lines, "\n"))
	require.Len(t, responses, len(lines)+1)

	last := responses[len(angles)]
	result := last["result"].(map[string]any)
	require.Equal(t, float64(2), result["repCount"], "two reps before the reset")

	ack := responses[len(angles)+1]
	assert.Equal(t, true, ack["success"])
	assert.Equal(t, "command_response", ack["type"])
	assert.Equal(t, "reset_counter_ack", ack["command"])
	assert.Equal(t, "Reset counter for pushup", ack["message"])
	assert.Equal(t, "reset-1", ack["requestId"])

	after := responses[len(angles)+2]
	result = after["result"].(map[string]any)
	assert.Equal(t, float64(0), result["repCount"])
}

func TestServerInvalidJSON(t *testing.T) {
	responses := runServer(t, `{broken`)
	require.Len(t, responses, 2)

	resp := responses[1]
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "error_response", resp["type"])
	assert.Equal(t, "unknown", resp["requestId"])

	errObj := resp["error"].(map[string]any)
	want := map[string]any{"type": "INVALID_INPUT", "severity": "error", "message": "Invalid JSON input"}
	if diff := cmp.Diff(want, errObj, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("error payload mismatch (-want +got):\n%s", diff)
	}
}

func TestServerUnknownCommand(t *testing.T) {
	responses := runServer(t, commandLine("c1", "pushup", "do_backflip"))
	require.Len(t, responses, 2)

	resp := responses[1]
	assert.Equal(t, false, resp["success"])
	errObj := resp["error"].(map[string]any)
	assert.Equal(t, "COMMAND_ERROR", errObj["type"])
	assert.Contains(t, errObj["message"], "do_backflip")
}

func TestServerUnknownExercise(t *testing.T) {
	responses := runServer(t, analyzeLine("x1", "yoga", testutil.Standing()))
	require.Len(t, responses, 2)

	resp := responses[1]
	assert.Equal(t, false, resp["success"])
	errObj := resp["error"].(map[string]any)
	assert.Equal(t, "ANALYSIS_ERROR", errObj["type"])
	assert.Equal(t, "Failed to load analyzer for yoga", errObj["message"])
}

func TestServerEmptyLandmarksFailure(t *testing.T) {
	responses := runServer(t, `{"requestId":"e1","exerciseType":"pushup","landmarks":[]}`)
	require.Len(t, responses, 2)

	resp := responses[1]
	assert.Equal(t, false, resp["success"])
	errObj := resp["error"].(map[string]any)
	assert.Equal(t, "INVALID_INPUT", errObj["type"])
	assert.Equal(t, "e1", resp["requestId"])
}

func TestServerExitSentinelStopsLoop(t *testing.T) {
	input := strings.Join([]string{
		analyzeLine("before", "pushup", testutil.Standing()),
		"EXIT",
		analyzeLine("after", "pushup", testutil.Standing()),
	}, "\n")

	responses := runServer(t, input)
	require.Len(t, responses, 2, "nothing is processed after EXIT")
	assert.Equal(t, "before", responses[1]["requestId"])
}

func TestServerBlankLinesIgnored(t *testing.T) {
	input := "\n\n" + analyzeLine("b1", "pushup", testutil.Standing()) + "\n\n"
	responses := runServer(t, input)
	require.Len(t, responses, 2)
}

func TestServerAnalyzerReusedAcrossRequests(t *testing.T) {
	var out bytes.Buffer
	server := NewServer(strings.NewReader(""), &out, testDeps(), log.New(io.Discard, "", 0))

	first := server.handleLine([]byte(analyzeLine("a", "situp", testutil.Standing())))
	require.True(t, first.Success)
	require.Len(t, server.analyzers, 1)

	second := server.handleLine([]byte(analyzeLine("b", "situp", testutil.Standing())))
	require.True(t, second.Success)
	assert.Len(t, server.analyzers, 1, "analyzer constructed once per kind")
}

func TestServerPlankResponseCarriesHoldTime(t *testing.T) {
	responses := runServer(t, analyzeLine("p1", "plank", testutil.Standing()))
	require.Len(t, responses, 2)

	result := responses[1]["result"].(map[string]any)
	assert.Contains(t, result, "holdTime")
	assert.Contains(t, result, "durationInSeconds")
}

// pushupArms builds a horizontal-body frame with the given elbow
// angles, mirroring the analyzer package's test geometry.
func pushupArms(left, right float64) domain.Frame {
	frame := testutil.Standing()
	frame = testutil.Set(frame, domain.LeftShoulder, 0.30, 0.50)
	frame = testutil.Set(frame, domain.RightShoulder, 0.34, 0.50)
	frame = testutil.Set(frame, domain.LeftElbow, 0.30, 0.62)
	frame = testutil.Set(frame, domain.RightElbow, 0.34, 0.62)
	frame = testutil.Set(frame, domain.LeftHip, 0.55, 0.52)
	frame = testutil.Set(frame, domain.RightHip, 0.59, 0.52)
	frame = testutil.PlaceAngle(frame, domain.LeftShoulder, domain.LeftElbow, domain.LeftWrist, left, 0.12)
	frame = testutil.PlaceAngle(frame, domain.RightShoulder, domain.RightElbow, domain.RightWrist, right, 0.12)
	return frame
}
