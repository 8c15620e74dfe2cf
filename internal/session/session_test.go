// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Session state machine tests

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/sony-level/tfpanel/internal/exec"
	"github.com/sony-level/tfpanel/internal/render"
)

func testSettings() Settings {
	return Settings{
		DefaultWorkspace: "client_alpha",
		Regions:          render.Regions,
		Environments:     render.Environments,
		ConsoleLines:     10,
	}
}

func TestBeginRefusesReentry(t *testing.T) {
	s := newSession("s1", testSettings())
	_, cancel := context.WithCancel(context.Background())

	if err := s.Begin(&RunSummary{Action: exec.ActionPlan}, cancel); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := s.Begin(&RunSummary{Action: exec.ActionApply}, cancel); !errors.Is(err, ErrBusy) {
		t.Errorf("second Begin() error = %v, want ErrBusy", err)
	}

	v := s.View()
	if v.State != StateRunning || v.Current == nil || v.Current.Action != exec.ActionPlan {
		t.Errorf("View() = %+v", v)
	}

	s.end(&exec.Result{Status: exec.StatusFailed, ExitCode: 1, Lines: 4})
	s.Wait()

	if s.State() != StateFailed {
		t.Errorf("State() = %s, want failed", s.State())
	}
	last := s.LastRun()
	if last == nil || last.ExitCode != 1 || last.Lines != 4 || last.Status != exec.StatusFailed {
		t.Errorf("LastRun() = %+v", last)
	}

	// a finished session accepts the next run
	if err := s.Begin(&RunSummary{Action: exec.ActionApply}, cancel); err != nil {
		t.Errorf("Begin() after finish error = %v", err)
	}
}

func TestTerminalStates(t *testing.T) {
	for _, status := range []exec.Status{exec.StatusSucceeded, exec.StatusFailed, exec.StatusErrored, exec.StatusCancelled} {
		s := newSession("s", testSettings())
		_ = s.Begin(&RunSummary{}, func() {})
		s.end(&exec.Result{Status: status})
		if s.State() != State(status) {
			t.Errorf("end(%s) state = %s", status, s.State())
		}
	}
}

func TestCancelInvokesContext(t *testing.T) {
	s := newSession("s", testSettings())
	if s.Cancel() {
		t.Error("Cancel() on idle session should report false")
	}

	ctx, cancel := context.WithCancel(context.Background())
	_ = s.Begin(&RunSummary{}, cancel)
	if !s.Cancel() {
		t.Fatal("Cancel() = false")
	}
	if ctx.Err() == nil {
		t.Error("context not cancelled")
	}
}

func TestAbortReturnsToIdle(t *testing.T) {
	s := newSession("s", testSettings())
	_ = s.Begin(&RunSummary{}, func() {})
	s.abort()

	if s.State() != StateIdle || s.LastRun() != nil {
		t.Errorf("after abort: state %s, last %+v", s.State(), s.LastRun())
	}
}

func TestFormCopies(t *testing.T) {
	s := newSession("s", testSettings())
	s.SetForm(Form{Workspace: "w", Modules: []string{"object-storage"}})

	f := s.Form()
	f.Modules[0] = "changed"
	if s.Form().Modules[0] != "object-storage" {
		t.Error("Form() must return a copy")
	}

	s.SetForm(Form{Workspace: "w"})
	if s.Form().Modules == nil {
		t.Error("SetForm() should normalise nil modules")
	}
}

func TestFormValidate(t *testing.T) {
	settings := testSettings()
	form := DefaultForm(settings)
	form.Modules = []string{"object-storage", "version-control"}

	flags, err := form.Validate(settings)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !flags[render.ObjectStorage] || !flags[render.VersionControl] || flags[render.DataWarehouse] {
		t.Errorf("flags = %v", flags)
	}

	form.Region = "ap-south-1"
	if _, err := form.Validate(settings); !errors.Is(err, ErrInvalidForm) {
		t.Errorf("Validate() error = %v, want ErrInvalidForm", err)
	}
}
