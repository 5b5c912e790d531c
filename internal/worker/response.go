package worker

import "formcoach/internal/domain"

// Response type tags.
const (
	typeAnalysisResult  = "analysis_result"
	typeCommandResponse = "command_response"
	typeErrorResponse   = "error_response"
)

// Response is one output line. Every request yields exactly one.
type Response struct {
	Success        bool                   `json:"success"`
	RequestID      string                 `json:"requestId"`
	Type           string                 `json:"type"`
	ProcessingTime float64                `json:"processingTime"`
	Result         *domain.AnalysisResult `json:"result,omitempty"`
	Command        string                 `json:"command,omitempty"`
	Message        string                 `json:"message,omitempty"`
	Error          *domain.Failure        `json:"error,omitempty"`
}

// readyBanner is emitted once on startup so the parent process knows
// the worker is accepting requests.
type readyBanner struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func analysisResponse(requestID string, result *domain.AnalysisResult, elapsed float64) Response {
	return Response{
		Success:        true,
		RequestID:      requestID,
		Type:           typeAnalysisResult,
		ProcessingTime: elapsed,
		Result:         result,
	}
}

func commandResponse(requestID, command, message string, elapsed float64) Response {
	return Response{
		Success:        true,
		RequestID:      requestID,
		Type:           typeCommandResponse,
		ProcessingTime: elapsed,
		Command:        command,
		Message:        message,
	}
}

func errorResponse(requestID string, failure *domain.Failure, elapsed float64) Response {
	return Response{
		Success:        false,
		RequestID:      requestID,
		Type:           typeErrorResponse,
		ProcessingTime: elapsed,
		Error:          failure,
	}
}
