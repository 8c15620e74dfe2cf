// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Execution types and interfaces

package exec

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultGracePeriod is how long a cancelled command may take to stop after SIGINT
const DefaultGracePeriod = 10 * time.Second

// DefaultMaxLineSize is the longest piece of an output line relayed as one console line
const DefaultMaxLineSize = 1024 * 1024

// Terminal marker lines appended after a command finishes
const (
	SuccessMarker = "✅ Command completed successfully."
	FailureMarker = "❌ Command failed with exit code %d."
	ErrorMarker   = "❌ Error: %s"
	CancelMarker  = "⛔ Command cancelled."
)

// Sink receives command output one line at a time
type Sink interface {
	Append(text string)
}

// Status is the terminal state of a command
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusErrored   Status = "errored"
	StatusCancelled Status = "cancelled"
)

// Command is an executable and its arguments
type Command struct {
	Name string
	Args []string
	Env  []string // KEY=VALUE pairs added to the inherited environment
}

// String renders the command line as shown in the console
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// RunnerConfig configures the executor
type RunnerConfig struct {
	GracePeriod time.Duration // SIGINT to SIGKILL delay on cancellation
	LineDelay   time.Duration // optional pause after each forwarded line
	MaxLineSize int           // longer lines are split, never fatal
	Logger      *zap.Logger
}

// Result contains the outcome of one command
type Result struct {
	Command   Command       `json:"-"`
	Dir       string        `json:"dir"`
	Status    Status        `json:"status"`
	ExitCode  int           `json:"exit_code"`
	Err       error         `json:"-"`
	Lines     int           `json:"lines"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Success reports whether the command exited with status zero
func (r *Result) Success() bool {
	return r.Status == StatusSucceeded
}

// ErrorString returns the error text or ""
func (r *Result) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
