package worker

import (
	"encoding/json"

	"formcoach/internal/domain"
)

// Request is a parsed wire message: either an analysis frame or a
// command for the named exercise.
type Request struct {
	ID       string
	Exercise string
	Command  string
	Frame    domain.Frame
}

// wireLandmark accepts every landmark spelling the protocol has carried:
// full {x,y,z,visibility}, minimal {x,y}, and the {x,y,v} point form.
type wireLandmark struct {
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	Z          *float64 `json:"z"`
	Visibility *float64 `json:"visibility"`
	V          *float64 `json:"v"`
}

// defaultVisibility is assumed for landmark forms that omit visibility.
const defaultVisibility = 0.9

// parseRequest normalizes one input line into a Request. The accepted
// forms, in priority order:
//
//  1. {"requestId","exerciseType","landmarks":[{x,y,z,visibility}...]}
//     (missing z defaults to 0, missing visibility to 0.9)
//  2. {"type":"data","exercise","frame","points":[{x,y,v}...]}
//  3. {"t":"landmarks","e","id","p":[[x,y,z,v]...]}
//  4. {"type":"landmarks","poseLandmarks":[...],"exerciseType","frameId"}
//  5. {"poseLandmarks":[...]} with no type field
//
// Command messages short-circuit landmark parsing. Unknown fields are
// ignored throughout.
func parseRequest(line []byte) (*Request, *domain.Failure) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, domain.NewFailure(domain.FailureInvalidInput, "Invalid JSON input")
	}

	req := &Request{
		ID:       stringField(raw, "requestId", "unknown"),
		Exercise: stringField(raw, "exerciseType", ""),
	}

	if cmd := stringField(raw, "command", ""); cmd != "" {
		req.Command = cmd
		if req.Exercise == "" {
			req.Exercise = string(domain.ExerciseSquat)
		}
		return req, nil
	}

	switch {
	case hasField(raw, "landmarks"):
		frame, failure := parseLandmarkObjects(raw["landmarks"])
		if failure != nil {
			return nil, failure
		}
		req.Frame = frame
		if req.Exercise == "" {
			req.Exercise = stringField(raw, "exercise", "")
		}

	case stringField(raw, "type", "") == "data":
		var points []wireLandmark
		if err := json.Unmarshal(raw["points"], &points); err != nil {
			return nil, domain.NewFailure(domain.FailureInvalidInput, "Invalid points payload")
		}
		frame := make(domain.Frame, 0, len(points))
		for _, pt := range points {
			if pt.X == nil || pt.Y == nil {
				return nil, domain.NewFailure(domain.FailureInvalidLandmark, "Invalid landmark structure")
			}
			frame = append(frame, domain.Landmark{X: *pt.X, Y: *pt.Y, Visibility: floatOr(pt.V, 0)})
		}
		req.Frame = frame
		req.Exercise = stringField(raw, "exercise", "")

	case stringField(raw, "t", "") == "landmarks":
		var packed [][]float64
		if err := json.Unmarshal(raw["p"], &packed); err != nil {
			return nil, domain.NewFailure(domain.FailureInvalidInput, "Invalid landmark payload")
		}
		frame := make(domain.Frame, 0, len(packed))
		for _, lm := range packed {
			if len(lm) < 4 {
				return nil, domain.NewFailure(domain.FailureInvalidLandmark, "Invalid landmark structure")
			}
			frame = append(frame, domain.Landmark{X: lm[0], Y: lm[1], Z: lm[2], Visibility: lm[3]})
		}
		req.Frame = frame
		req.Exercise = stringField(raw, "e", "")

	case stringField(raw, "type", "") == "landmarks":
		frame, failure := parseLandmarkObjects(raw["poseLandmarks"])
		if failure != nil {
			return nil, failure
		}
		req.Frame = frame

	default:
		if hasField(raw, "poseLandmarks") {
			frame, failure := parseLandmarkObjects(raw["poseLandmarks"])
			if failure != nil {
				return nil, failure
			}
			req.Frame = frame
		}
	}

	if req.Exercise == "" {
		req.Exercise = string(domain.ExerciseSquat)
	}
	return req, nil
}

func parseLandmarkObjects(raw json.RawMessage) (domain.Frame, *domain.Failure) {
	if raw == nil {
		return nil, nil
	}
	var landmarks []wireLandmark
	if err := json.Unmarshal(raw, &landmarks); err != nil {
		return nil, domain.NewFailure(domain.FailureInvalidInput, "Invalid landmarks payload")
	}
	frame := make(domain.Frame, 0, len(landmarks))
	for _, lm := range landmarks {
		if lm.X == nil || lm.Y == nil {
			return nil, domain.NewFailure(domain.FailureInvalidLandmark, "Invalid landmark structure")
		}
		visibility := defaultVisibility
		if lm.Visibility != nil {
			visibility = *lm.Visibility
		} else if lm.V != nil {
			visibility = *lm.V
		}
		frame = append(frame, domain.Landmark{
			X:          *lm.X,
			Y:          *lm.Y,
			Z:          floatOr(lm.Z, 0),
			Visibility: visibility,
		})
	}
	return frame, nil
}

func hasField(raw map[string]json.RawMessage, key string) bool {
	_, ok := raw[key]
	return ok
}

func stringField(raw map[string]json.RawMessage, key, fallback string) string {
	data, ok := raw[key]
	if !ok {
		return fallback
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fallback
	}
	return s
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
