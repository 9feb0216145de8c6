package encoder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	gopsproc "github.com/shirou/gopsutil/v4/process"

	"github.com/jmylchreest/castarr/internal/observability"
)

// State is the lifecycle state of an encoder process.
type State string

// Lifecycle states. Transitions: spawning → running → one of the terminal
// three. Kill moves any state to killed.
const (
	StateSpawning  State = "spawning"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
	StateKilled    State = "killed"
)

// Outcome classifies a finished encoder run.
type Outcome string

// Outcome constants. These are also the metric label values.
const (
	// OutcomeEnd is a clean end of stream: exit 0, or exit 255 after bytes
	// were produced (ffmpeg reports a benign EOF that way on some builds).
	OutcomeEnd Outcome = "end"
	// OutcomeError is a crash or an exit 255 before any bytes.
	OutcomeError Outcome = "error"
	// OutcomeKilled is a deliberate termination by the session.
	OutcomeKilled Outcome = "killed"
)

// Status is the terminal report of one encoder run.
type Status struct {
	Outcome  Outcome
	ExitCode int
	BytesOut int64
	Err      error
}

// stderrTailLines bounds how much encoder stderr is kept for error reports.
const stderrTailLines = 30

// Process supervises one external encoder invocation. stdin is closed,
// stderr is drained into debug logs, stdout is handed to the caller as a
// byte-counting reader.
type Process struct {
	id     string
	path   string
	args   []string
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	cmd        *exec.Cmd
	killed     bool
	stderrTail []string

	bytesOut atomic.Int64
	waitOnce sync.Once
	done     chan struct{}
	status   Status
}

// NewProcess creates a supervisor for one ffmpeg invocation. The process ID
// is a ULID carried on every log line for cross-component correlation.
func NewProcess(path string, args []string, logger *slog.Logger) *Process {
	id := ulid.Make().String()
	if logger == nil {
		logger = slog.Default()
	}
	return &Process{
		id:     id,
		path:   path,
		args:   args,
		logger: logger.With(slog.String("encoder_id", id)),
		state:  StateSpawning,
		done:   make(chan struct{}),
	}
}

// ID returns the process correlation ULID.
func (p *Process) ID() string { return p.id }

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// BytesOut returns how many stdout bytes have been produced so far.
func (p *Process) BytesOut() int64 { return p.bytesOut.Load() }

// Start spawns the encoder and returns its stdout. A Kill issued before
// Start wins: the spawn is refused and ErrKilled returned.
func (p *Process) Start() (io.ReadCloser, error) {
	p.mu.Lock()
	if p.killed {
		p.mu.Unlock()
		observability.EncoderStartTotal.WithLabelValues("killed").Inc()
		return nil, ErrKilled
	}
	if p.cmd != nil {
		p.mu.Unlock()
		return nil, ErrAlreadyStarted
	}

	cmd := exec.Command(p.path, p.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		p.state = StateErrored
		p.mu.Unlock()
		return nil, fmt.Errorf("opening encoder stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		p.state = StateErrored
		p.mu.Unlock()
		return nil, fmt.Errorf("opening encoder stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		p.state = StateErrored
		p.mu.Unlock()
		observability.EncoderStartTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("starting encoder: %w", err)
	}

	p.cmd = cmd
	p.state = StateRunning
	p.mu.Unlock()

	observability.EncoderStartTotal.WithLabelValues("ok").Inc()
	p.logger.Debug("encoder started",
		slog.Int("pid", cmd.Process.Pid),
		slog.Int("args", len(p.args)))

	go p.drainStderr(stderr)

	return &countingReader{r: stdout, n: &p.bytesOut}, nil
}

// Kill terminates the encoder. Safe to call from any state, any number of
// times, concurrently with Start.
func (p *Process) Kill() {
	p.mu.Lock()
	if p.killed {
		p.mu.Unlock()
		return
	}
	p.killed = true
	if p.state != StateCompleted && p.state != StateErrored {
		p.state = StateKilled
	}
	cmd := p.cmd
	p.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	p.logger.Debug("encoder kill requested")
}

// Wait blocks until the encoder reaches a terminal state and returns its
// status. Must be called after the caller has finished reading stdout.
func (p *Process) Wait() Status {
	p.waitOnce.Do(func() {
		p.mu.Lock()
		cmd := p.cmd
		p.mu.Unlock()

		var (
			exitCode int
			signaled bool
			waitErr  error
		)
		if cmd != nil {
			waitErr = cmd.Wait()
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				exitCode = exitErr.ExitCode()
				signaled = exitCode == -1
			}
		}

		p.mu.Lock()
		killed := p.killed
		bytesOut := p.bytesOut.Load()
		outcome := classifyExit(exitCode, signaled, bytesOut, killed)
		switch outcome {
		case OutcomeEnd:
			p.state = StateCompleted
		case OutcomeError:
			p.state = StateErrored
		default:
			p.state = StateKilled
		}
		p.status = Status{
			Outcome:  outcome,
			ExitCode: exitCode,
			BytesOut: bytesOut,
			Err:      waitErr,
		}
		tail := p.stderrTail
		p.mu.Unlock()

		observability.EncoderExitTotal.WithLabelValues(string(outcome)).Inc()

		log := p.logger.With(
			slog.String("outcome", string(outcome)),
			slog.Int("exit_code", exitCode),
			slog.Int64("bytes_out", bytesOut))
		if outcome == OutcomeError {
			log.Error("encoder failed", slog.Any("stderr_tail", tail))
		} else {
			log.Debug("encoder finished")
		}

		close(p.done)
	})
	<-p.done
	return p.status
}

// ProcessStats is a point-in-time resource sample of a running encoder.
type ProcessStats struct {
	CPUPercent float64
	RSSBytes   uint64
}

// Stats samples CPU and resident memory of the running encoder, for the
// sessions API.
func (p *Process) Stats() (*ProcessStats, error) {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil, ErrNotStarted
	}

	proc, err := gopsproc.NewProcess(int32(cmd.Process.Pid))
	if err != nil {
		return nil, fmt.Errorf("sampling encoder process: %w", err)
	}
	stats := &ProcessStats{}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	return stats, nil
}

// StderrTail returns the last captured stderr lines.
func (p *Process) StderrTail() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	tail := make([]string, len(p.stderrTail))
	copy(tail, p.stderrTail)
	return tail
}

func (p *Process) drainStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		p.mu.Lock()
		p.stderrTail = append(p.stderrTail, line)
		if len(p.stderrTail) > stderrTailLines {
			p.stderrTail = p.stderrTail[1:]
		}
		p.mu.Unlock()
		p.logger.Debug("ffmpeg", slog.String("line", line))
	}
}

// classifyExit maps an encoder exit to its outcome. Exit 255 after bytes
// were produced is a benign end of stream; before bytes it is a failure.
func classifyExit(exitCode int, signaled bool, bytesOut int64, killed bool) Outcome {
	switch {
	case killed:
		return OutcomeKilled
	case signaled:
		return OutcomeError
	case exitCode == 0:
		return OutcomeEnd
	case exitCode == 255 && bytesOut > 0:
		return OutcomeEnd
	default:
		return OutcomeError
	}
}

// countingReader counts stdout bytes as the caller consumes them; the count
// feeds the exit-code classification.
type countingReader struct {
	r io.ReadCloser
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n.Add(int64(n))
	}
	return n, err
}

func (c *countingReader) Close() error {
	return c.r.Close()
}
