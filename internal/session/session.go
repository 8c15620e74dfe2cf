// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Operator sessions: form state, console and run state machine

package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sony-level/tfpanel/internal/exec"
	"github.com/sony-level/tfpanel/internal/logbuf"
	"github.com/sony-level/tfpanel/internal/render"
)

var (
	// ErrBusy is returned when a command is already running for the session or workspace
	ErrBusy = errors.New("a command is already running")

	// ErrNotFound is returned for unknown session ids
	ErrNotFound = errors.New("session not found")

	// ErrInvalidForm is returned when form values are outside the offered choices
	ErrInvalidForm = errors.New("invalid form")
)

// State is where a session is in its run lifecycle
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateErrored   State = "errored"
	StateCancelled State = "cancelled"
)

// Form is what the operator has entered in the panel
type Form struct {
	Workspace   string        `json:"workspace"`
	Region      string        `json:"region"`
	Environment string        `json:"environment"`
	Modules     []string      `json:"modules"`
	Inputs      render.Inputs `json:"inputs"`
}

// DefaultForm returns the form a new session starts with
func DefaultForm(settings Settings) Form {
	f := Form{
		Workspace: settings.DefaultWorkspace,
		Modules:   []string{},
		Inputs:    render.DefaultInputs(settings.DefaultWorkspace),
	}
	if len(settings.Regions) > 0 {
		f.Region = settings.Regions[0]
	}
	if len(settings.Environments) > 0 {
		f.Environment = settings.Environments[0]
	}
	return f
}

// Validate checks the form against the configured choices.
// The workspace id is checked separately so its failure reaches the console.
func (f Form) Validate(settings Settings) (render.Flags, error) {
	if !slices.Contains(settings.Regions, f.Region) {
		return nil, fmt.Errorf("%w: unknown region %q", ErrInvalidForm, f.Region)
	}
	if !slices.Contains(settings.Environments, f.Environment) {
		return nil, fmt.Errorf("%w: unknown environment %q", ErrInvalidForm, f.Environment)
	}
	flags, err := render.ParseFlags(f.Modules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	return flags, nil
}

// RunSummary describes the latest command a session ran
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Workspace string        `json:"workspace"`
	Action    exec.Action   `json:"action"`
	Command   string        `json:"command"`
	Status    exec.Status   `json:"status,omitempty"`
	ExitCode  int           `json:"exit_code"`
	Error     string        `json:"error,omitempty"`
	Lines     int           `json:"lines"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Session is one operator's panel: form, console and at most one running command
type Session struct {
	ID      string
	Created time.Time
	Log     *logbuf.Buffer

	mu      sync.Mutex
	form    Form
	state   State
	current *RunSummary
	last    *RunSummary
	cancel  context.CancelFunc
	done    chan struct{}
}

func newSession(id string, settings Settings) *Session {
	s := &Session{
		ID:      id,
		Created: time.Now(),
		Log:     logbuf.New(settings.ConsoleLines),
		form:    DefaultForm(settings),
		state:   StateIdle,
	}
	if settings.Welcome != "" {
		s.Log.Append(settings.Welcome)
	}
	return s
}

// Form returns a copy of the current form
func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.form
	f.Modules = slices.Clone(s.form.Modules)
	return f
}

// SetForm replaces the form
func (s *Session) SetForm(f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Modules == nil {
		f.Modules = []string{}
	}
	s.form = f
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether a command is in flight
func (s *Session) Running() bool {
	return s.State() == StateRunning
}

// LastRun returns the most recent finished run, if any
func (s *Session) LastRun() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// Begin moves the session to running. It refuses re-entry.
func (s *Session) Begin(run *RunSummary, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrBusy
	}
	s.state = StateRunning
	s.current = run
	s.cancel = cancel
	s.done = make(chan struct{})
	return nil
}

// end records the terminal state of the running command
func (s *Session) end(result *exec.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}

	run := s.current
	if run != nil && result != nil {
		run.Status = result.Status
		run.ExitCode = result.ExitCode
		run.Error = result.ErrorString()
		run.Lines = result.Lines
		run.Duration = result.Duration
	}

	switch {
	case result == nil:
		s.state = StateIdle
	default:
		s.state = State(result.Status)
		s.last = run
	}

	s.current = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	close(s.done)
}

// abort returns a session that began but never started its command to idle
func (s *Session) abort() {
	s.end(nil)
}

// Cancel stops the running command. It reports false when nothing was running.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Wait blocks until the running command, if any, has finished
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// ResetLog clears the console and returns a finished session to idle.
// The console of a running command is never cleared.
func (s *Session) ResetLog(welcome string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return fmt.Errorf("%w: cannot clear the console while a command is running", ErrBusy)
	}
	s.state = StateIdle
	s.Log.Reset(welcome)
	return nil
}

// View is the JSON shape of a session
type View struct {
	ID       string      `json:"id"`
	Created  time.Time   `json:"created"`
	Form     Form        `json:"form"`
	State    State       `json:"state"`
	Current  *RunSummary `json:"current,omitempty"`
	LastRun  *RunSummary `json:"last_run,omitempty"`
	LogLines int         `json:"log_lines"`
}

// View returns a point-in-time copy of the session
func (s *Session) View() View {
	s.mu.Lock()
	v := View{
		ID:      s.ID,
		Created: s.Created,
		Form:    s.form,
		State:   s.state,
	}
	v.Form.Modules = slices.Clone(s.form.Modules)
	if s.current != nil {
		c := *s.current
		v.Current = &c
	}
	if s.last != nil {
		l := *s.last
		v.LastRun = &l
	}
	s.mu.Unlock()

	v.LogLines = s.Log.Len()
	return v
}
