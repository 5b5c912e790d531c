// Command monitor is a development dashboard for the analysis worker.
// It spawns the worker as a co-process, replays a JSONL capture of
// requests (or a built-in synthetic push-up loop) over the wire
// protocol, and renders the returned stage, rep count and form score
// live in the terminal.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

func main() {
	workerPath := flag.String("worker", "formcoach-worker", "path to the worker binary")
	framesPath := flag.String("frames", "", "JSONL file of requests to replay (default: synthetic push-ups)")
	exercise := flag.String("exercise", "pushup", "exercise type for synthetic frames")
	fps := flag.Int("fps", 10, "frames per second to send")
	flag.Parse()

	frames, err := loadFrames(*framesPath, *exercise)
	if err != nil {
		log.Fatalf("load frames: %v", err)
	}

	m, err := newModel(*workerPath, *exercise, frames, *fps)
	if err != nil {
		log.Fatalf("start worker: %v", err)
	}

	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatalf("monitor error: %v", err)
	}
}

// wireResult mirrors the worker's result payload; only the fields the
// dashboard renders are decoded.
type wireResult struct {
	Stage     string `json:"stage"`
	FormScore int    `json:"formScore"`
	RepCount  int    `json:"repCount"`
	HoldTime  *int   `json:"holdTime"`
	Errors    []struct {
		Type     string `json:"type"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
	} `json:"errors"`
}

type wireResponse struct {
	Success        bool        `json:"success"`
	Type           string      `json:"type"`
	ProcessingTime float64     `json:"processingTime"`
	Result         *wireResult `json:"result"`
	Status         string      `json:"status"`
	Message        string      `json:"message"`
	Error          *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type responseMsg wireResponse
type workerGoneMsg struct{ err error }
type tickMsg time.Time

type model struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	responses chan tea.Msg

	exercise string
	frames   []string
	next     int
	interval time.Duration

	ready     bool
	stage     string
	reps      int
	score     int
	holdTime  *int
	lastErrs  []string
	sent      int
	received  int
	procTotal float64
	lastError string
	done      bool

	bar progress.Model
}

func newModel(workerPath, exercise string, frames []string, fps int) (*model, error) {
	cmd := exec.Command(workerPath)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	responses := make(chan tea.Msg, 16)
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			var resp wireResponse
			if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
				continue
			}
			responses <- responseMsg(resp)
		}
		responses <- workerGoneMsg{err: cmd.Wait()}
	}()

	return &model{
		cmd:       cmd,
		stdin:     stdin,
		responses: responses,
		exercise:  exercise,
		frames:    frames,
		interval:  time.Second / time.Duration(fps),
		stage:     "unknown",
		score:     100,
		bar:       progress.New(progress.WithDefaultGradient()),
	}, nil
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.waitForResponse(), m.tick())
}

func (m *model) waitForResponse() tea.Cmd {
	return func() tea.Msg { return <-m.responses }
}

func (m *model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			fmt.Fprintln(m.stdin, "EXIT")
			m.done = true
			return m, tea.Quit
		case "r":
			reset := fmt.Sprintf(`{"requestId":"monitor-reset","exerciseType":%q,"command":"reset_counter"}`, m.exercise)
			fmt.Fprintln(m.stdin, reset)
		}

	case tickMsg:
		if m.ready && !m.done {
			m.sendNextFrame()
		}
		return m, m.tick()

	case responseMsg:
		m.received++
		if msg.Status == "ready" {
			m.ready = true
		}
		if msg.Result != nil {
			m.stage = msg.Result.Stage
			m.reps = msg.Result.RepCount
			m.score = msg.Result.FormScore
			m.holdTime = msg.Result.HoldTime
			m.lastErrs = m.lastErrs[:0]
			for _, e := range msg.Result.Errors {
				m.lastErrs = append(m.lastErrs, fmt.Sprintf("%s [%s] %s", e.Type, e.Severity, e.Message))
			}
		}
		if msg.Error != nil {
			m.lastError = fmt.Sprintf("%s: %s", msg.Error.Type, msg.Error.Message)
		} else {
			m.lastError = ""
		}
		m.procTotal += msg.ProcessingTime
		return m, m.waitForResponse()

	case workerGoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) sendNextFrame() {
	if len(m.frames) == 0 {
		return
	}
	line := m.frames[m.next%len(m.frames)]
	m.next++
	m.sent++
	fmt.Fprintln(m.stdin, line)
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("formcoach monitor") + "\n\n")

	if !m.ready {
		b.WriteString(labelStyle.Render("waiting for worker...") + "\n")
		return boxStyle.Render(b.String())
	}

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", label)) + valueStyle.Render(value) + "\n")
	}

	row("exercise", m.exercise)
	row("stage", m.stage)
	row("reps", fmt.Sprintf("%d", m.reps))
	if m.holdTime != nil {
		row("hold", fmt.Sprintf("%ds", *m.holdTime))
	}
	b.WriteString("\n" + labelStyle.Render("form score ") + m.bar.ViewAs(float64(m.score)/100) + "\n\n")

	if m.lastError != "" {
		b.WriteString(errStyle.Render("error: "+m.lastError) + "\n")
	} else if len(m.lastErrs) == 0 {
		b.WriteString(okStyle.Render("form: clean") + "\n")
	} else {
		for _, e := range m.lastErrs {
			b.WriteString(errStyle.Render("! "+e) + "\n")
		}
	}

	avg := 0.0
	if m.received > 0 {
		avg = m.procTotal / float64(m.received)
	}
	b.WriteString("\n" + labelStyle.Render(fmt.Sprintf("sent %d  recv %d  avg %.1fms", m.sent, m.received, avg*1000)) + "\n")
	b.WriteString(labelStyle.Render("r: reset counter  q: quit"))
	return boxStyle.Render(b.String())
}

// loadFrames reads a JSONL capture, or synthesizes a push-up cycle when
// no capture is given.
func loadFrames(path, exercise string) ([]string, error) {
	if path == "" {
		return syntheticFrames(exercise), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var frames []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			frames = append(frames, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames in %s", path)
	}
	return frames, nil
}

// syntheticFrames generates one full movement cycle of landmark frames:
// the elbow angle sweeps wide-bent-wide so geometric analyzers count
// reps without model artifacts on disk.
func syntheticFrames(exercise string) []string {
	const steps = 40
	frames := make([]string, 0, steps)
	for i := 0; i < steps; i++ {
		phase := float64(i) / steps * 2 * math.Pi
		bend := (1 - math.Cos(phase)) / 2 // 0 extended, 1 bent

		landmarks := make([]map[string]float64, 33)
		for j := range landmarks {
			landmarks[j] = map[string]float64{"x": 0.5, "y": 0.5, "z": 0, "visibility": 0.95}
		}
		place := func(idx int, x, y float64) {
			landmarks[idx] = map[string]float64{"x": x, "y": y, "z": 0, "visibility": 0.95}
		}

		// Horizontal plank-like body, arms bending with the phase.
		drop := 0.18 * bend
		place(11, 0.35, 0.50+drop) // shoulders
		place(12, 0.40, 0.50+drop)
		place(13, 0.33, 0.64+drop/2) // elbows
		place(14, 0.42, 0.64+drop/2)
		place(15, 0.35-0.12*bend, 0.78) // wrists
		place(16, 0.40+0.12*bend, 0.78)
		place(23, 0.60, 0.52+drop) // hips
		place(24, 0.63, 0.52+drop)
		place(25, 0.72, 0.55) // knees
		place(26, 0.74, 0.55)
		place(27, 0.82, 0.58) // ankles
		place(28, 0.84, 0.58)

		payload := map[string]any{
			"requestId":    fmt.Sprintf("synthetic-%d", i),
			"exerciseType": exercise,
			"landmarks":    landmarks,
		}
		data, _ := json.Marshal(payload)
		frames = append(frames, string(data))
	}
	return frames
}
