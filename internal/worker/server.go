// Package worker implements the dispatch loop: one JSON request per
// line on standard input, one JSON response per line on standard
// output, strictly interleaved. Analyzer state lives here for the life
// of the process; stderr carries the logs.
package worker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"formcoach/internal/analyzer"
	"formcoach/internal/domain"
)

// ExitSentinel is the input line that requests an orderly shutdown.
const ExitSentinel = "EXIT"

// maxLineSize bounds one request line.
const maxLineSize = 1 << 20

// Server owns the analyzers and the request loop. It is single-
// threaded by design: requests are processed to completion in arrival
// order, so analyzer state never needs locking.
type Server struct {
	in     *bufio.Scanner
	out    *bufio.Writer
	deps   analyzer.Deps
	logger *log.Logger

	analyzers map[domain.ExerciseKind]analyzer.Analyzer
}

// NewServer builds a Server reading requests from in and writing
// responses to out. logger may be nil; the default logger then applies.
func NewServer(in io.Reader, out io.Writer, deps analyzer.Deps, logger *log.Logger) *Server {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		in:        scanner,
		out:       bufio.NewWriter(out),
		deps:      deps,
		logger:    logger,
		analyzers: make(map[domain.ExerciseKind]analyzer.Analyzer),
	}
}

// Run emits the readiness banner and processes requests until the EXIT
// sentinel or end of input. Internal analyzer failures become error
// responses; they never end the loop.
func (s *Server) Run() error {
	if err := s.writeJSON(readyBanner{Status: "ready", Message: "Exercise Analyzer Server started"}); err != nil {
		return err
	}

	for s.in.Scan() {
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if line == ExitSentinel {
			s.logger.Printf("received EXIT command")
			break
		}

		response := s.handleLine([]byte(line))
		if err := s.writeJSON(response); err != nil {
			return err
		}
	}
	if err := s.in.Err(); err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	return nil
}

// handleLine processes one request line to one response. A panic in an
// analyzer is fenced here and synthesized into an error response.
func (s *Server) handleLine(line []byte) (response Response) {
	start := time.Now()
	requestID := "unknown"

	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("panic while handling request %s: %v", requestID, r)
			response = errorResponse(requestID,
				domain.NewFailure(domain.FailureAnalysisError, fmt.Sprintf("internal error: %v", r)),
				time.Since(start).Seconds())
		}
	}()

	req, failure := parseRequest(line)
	if failure != nil {
		return errorResponse(requestID, failure, time.Since(start).Seconds())
	}
	requestID = req.ID

	if req.Command != "" {
		return s.handleCommand(req, start)
	}
	return s.handleAnalyze(req, start)
}

func (s *Server) handleAnalyze(req *Request, start time.Time) Response {
	a, failure := s.analyzerFor(req.Exercise, domain.FailureAnalysisError)
	if failure != nil {
		return errorResponse(req.ID, failure, time.Since(start).Seconds())
	}

	result, analyzeFailure := a.Analyze(req.Frame)
	if analyzeFailure != nil {
		return errorResponse(req.ID, analyzeFailure, time.Since(start).Seconds())
	}
	return analysisResponse(req.ID, result, time.Since(start).Seconds())
}

func (s *Server) handleCommand(req *Request, start time.Time) Response {
	if req.Command != "reset_counter" {
		failure := domain.NewFailure(domain.FailureCommandError, fmt.Sprintf("unknown command: %s", req.Command))
		return errorResponse(req.ID, failure, time.Since(start).Seconds())
	}

	a, failure := s.analyzerFor(req.Exercise, domain.FailureCommandError)
	if failure != nil {
		return errorResponse(req.ID, failure, time.Since(start).Seconds())
	}

	a.Reset()
	s.logger.Printf("reset counter for %s", req.Exercise)
	return commandResponse(req.ID, "reset_counter_ack",
		fmt.Sprintf("Reset counter for %s", req.Exercise), time.Since(start).Seconds())
}

// analyzerFor returns the analyzer for a kind, constructing it on first
// use. failKind selects the failure taxonomy for the calling path.
func (s *Server) analyzerFor(exercise string, failKind domain.FailureKind) (analyzer.Analyzer, *domain.Failure) {
	kind, err := domain.ParseExerciseKind(exercise)
	if err != nil {
		return nil, domain.NewFailure(failKind, fmt.Sprintf("Failed to load analyzer for %s", exercise))
	}

	if a, ok := s.analyzers[kind]; ok {
		return a, nil
	}

	a, err := analyzer.New(kind, s.deps)
	if err != nil {
		return nil, domain.NewFailure(failKind, fmt.Sprintf("Failed to load analyzer for %s", exercise))
	}
	s.analyzers[kind] = a
	s.logger.Printf("loaded %s analyzer", kind)
	return a, nil
}

func (s *Server) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return s.out.Flush()
}
