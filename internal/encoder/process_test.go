package encoder

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyExit(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		signaled bool
		bytesOut int64
		killed   bool
		want     Outcome
	}{
		{"clean exit", 0, false, 1 << 20, false, OutcomeEnd},
		{"255 after bytes is benign EOF", 255, false, 188, false, OutcomeEnd},
		{"255 before bytes is a failure", 255, false, 0, false, OutcomeError},
		{"nonzero exit", 1, false, 1 << 20, false, OutcomeError},
		{"killed by session", -1, true, 1 << 20, true, OutcomeKilled},
		{"external signal", -1, true, 500, false, OutcomeError},
		{"killed before any exit code", 0, false, 0, true, OutcomeKilled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyExit(tt.exitCode, tt.signaled, tt.bytesOut, tt.killed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessPreemptiveKill(t *testing.T) {
	p := NewProcess("/bin/sleep", []string{"60"}, nil)
	p.Kill()

	_, err := p.Start()
	assert.ErrorIs(t, err, ErrKilled)
	assert.Equal(t, StateKilled, p.State())

	status := p.Wait()
	assert.Equal(t, OutcomeKilled, status.Outcome)
}

func TestProcessDoubleStart(t *testing.T) {
	p := NewProcess("sh", []string{"-c", "exit 0"}, nil)
	out, err := p.Start()
	require.NoError(t, err)

	_, err = p.Start()
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	_, _ = io.Copy(io.Discard, out)
	p.Wait()
}

func TestProcessRunsToCompletion(t *testing.T) {
	p := NewProcess("sh", []string{"-c", "printf hello"}, nil)
	out, err := p.Start()
	require.NoError(t, err)
	assert.Equal(t, StateRunning, p.State())

	data, err := io.ReadAll(out)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	status := p.Wait()
	assert.Equal(t, OutcomeEnd, status.Outcome)
	assert.EqualValues(t, 5, status.BytesOut)
	assert.Equal(t, StateCompleted, p.State())
}

func TestProcessFailureCapturesStderr(t *testing.T) {
	p := NewProcess("sh", []string{"-c", "echo boom >&2; exit 1"}, nil)
	out, err := p.Start()
	require.NoError(t, err)

	_, _ = io.Copy(io.Discard, out)
	status := p.Wait()
	assert.Equal(t, OutcomeError, status.Outcome)
	assert.Equal(t, 1, status.ExitCode)
	assert.Contains(t, p.StderrTail(), "boom")
}

func TestProcessKillWhileRunning(t *testing.T) {
	p := NewProcess("/bin/sleep", []string{"60"}, nil)
	out, err := p.Start()
	require.NoError(t, err)

	p.Kill()
	_, _ = io.Copy(io.Discard, out)

	status := p.Wait()
	assert.Equal(t, OutcomeKilled, status.Outcome)
	assert.Equal(t, StateKilled, p.State())
}
