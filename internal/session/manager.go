// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Session manager: configuration generation and command runs

package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sony-level/tfpanel/internal/exec"
	"github.com/sony-level/tfpanel/internal/history"
	"github.com/sony-level/tfpanel/internal/render"
	"github.com/sony-level/tfpanel/internal/workspace"
)

// Settings are the hot-reloadable parts of the configuration a manager uses
type Settings struct {
	ModulesDir       string
	Terraform        exec.Terraform
	DefaultWorkspace string
	Regions          []string
	Environments     []string
	ConsoleLines     int
	Welcome          string
}

// Recorder persists run outcomes
type Recorder interface {
	Start(ctx context.Context, run *history.Run) error
	Finish(ctx context.Context, run *history.Run) error
}

// ManagerConfig wires a manager to its collaborators
type ManagerConfig struct {
	Store    *workspace.Store
	Runner   *exec.Runner
	Recorder Recorder // optional
	Settings Settings
	Logger   *zap.Logger
}

// Manager owns the sessions and everything they act on
type Manager struct {
	store    *workspace.Store
	runner   *exec.Runner
	recorder Recorder
	logger   *zap.Logger

	settingsMu sync.RWMutex
	settings   Settings

	mu       sync.RWMutex
	sessions map[string]*Session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Generation is the outcome of a successful Generate
type Generation struct {
	Workspace *workspace.Workspace `json:"-"`
	Path      string               `json:"path"`
	Created   bool                 `json:"created"`
	Files     []string             `json:"files"`
	Snapshot  *workspace.Snapshot  `json:"snapshot,omitempty"`
	Rendered  render.Rendered      `json:"-"`
}

// NewManager creates a session manager
func NewManager(config *ManagerConfig) (*Manager, error) {
	if config == nil || config.Store == nil {
		return nil, fmt.Errorf("workspace store is required")
	}

	runner := config.Runner
	if runner == nil {
		runner = exec.NewRunner(&exec.RunnerConfig{Logger: config.Logger})
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    config.Store,
		runner:   runner,
		recorder: config.Recorder,
		logger:   logger.Named("session"),
		settings: config.Settings,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Store returns the workspace store
func (m *Manager) Store() *workspace.Store {
	return m.store
}

// Settings returns the current settings
func (m *Manager) Settings() Settings {
	m.settingsMu.RLock()
	defer m.settingsMu.RUnlock()
	return m.settings
}

// UpdateSettings swaps the settings used by later operations.
// Running commands keep the settings they started with.
func (m *Manager) UpdateSettings(settings Settings) {
	m.settingsMu.Lock()
	m.settings = settings
	m.settingsMu.Unlock()
	m.logger.Info("settings updated",
		zap.String("terraform", settings.Terraform.Binary),
		zap.String("modules_dir", settings.ModulesDir),
	)
}

// Create starts a new session with the default form
func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.Settings())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("session created", zap.String("session", s.ID))
	return s
}

// Get returns a session by id
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// List returns all sessions, oldest first
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Delete cancels any running command of the session and forgets it
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Cancel()
	s.Wait()
	m.logger.Debug("session deleted", zap.String("session", id))
	return nil
}

// ResetLog clears a session's console back to the welcome line.
// It fails with ErrBusy while the session runs a command.
func (m *Manager) ResetLog(s *Session) error {
	return s.ResetLog(m.Settings().Welcome)
}

// Generate renders the session's form into its workspace.
// Every outcome, including failures, is written to the session console.
func (m *Manager) Generate(s *Session) (*Generation, error) {
	settings := m.Settings()
	form := s.Form()

	if err := workspace.ValidateID(form.Workspace); err != nil {
		return nil, m.consoleError(s, err)
	}
	flags, err := form.Validate(settings)
	if err != nil {
		return nil, m.consoleError(s, err)
	}

	unlock, err := m.store.TryLock(form.Workspace)
	if err != nil {
		return nil, m.consoleError(s, lockError(form.Workspace, err))
	}
	defer unlock()

	ws, err := m.store.Ensure(form.Workspace)
	if err != nil {
		return nil, m.consoleError(s, err)
	}
	if ws.Created {
		s.Log.Appendf("Created workspace directory: %s", ws.Path)
	} else {
		s.Log.Appendf("Using existing workspace: %s", ws.Path)
	}

	vars := render.Collect(form.Workspace, form.Environment, flags, form.Inputs)
	rendered := render.Render(render.Globals{
		Region:      form.Region,
		Environment: form.Environment,
		ModulesDir:  settings.ModulesDir,
	}, flags, vars)

	gen := &Generation{Workspace: ws, Path: ws.Path, Created: ws.Created, Rendered: rendered}
	for _, f := range rendered.Files() {
		if err := m.store.WriteFile(ws, f.Name, []byte(f.Content)); err != nil {
			return nil, m.consoleError(s, err)
		}
		gen.Files = append(gen.Files, f.Name)
		s.Log.Appendf("📄 Generated %s", f.Name)
	}

	if m.store.HistoryEnabled() {
		snap, err := m.store.Snapshot(ws, snapshotMessage(form, flags), render.FileNames)
		switch {
		case err != nil:
			// The files are written; a failed commit only loses the history entry
			m.logger.Warn("snapshot failed", zap.String("workspace", ws.ID), zap.Error(err))
			s.Log.Appendf("⚠️ Could not record generation history: %s", err)
		case snap != nil:
			gen.Snapshot = snap
			s.Log.Appendf("🗂️ Saved snapshot %s", snap.Hash[:7])
		}
	}

	s.Log.Append("✅ Configuration generation complete.")
	m.logger.Info("configuration generated",
		zap.String("session", s.ID),
		zap.String("workspace", ws.ID),
		zap.Strings("modules", form.Modules),
	)
	return gen, nil
}

// Start launches action in the background and returns once the command is
// accepted. Use Session.Wait to block until it finishes.
func (m *Manager) Start(s *Session, action exec.Action) error {
	job, err := m.prepare(m.ctx, s, action)
	if err != nil {
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(job)
	}()
	return nil
}

// Run executes action in the session's workspace and waits for it.
// Command failures are reported in the result, not as errors.
func (m *Manager) Run(ctx context.Context, s *Session, action exec.Action) (*exec.Result, error) {
	job, err := m.prepare(ctx, s, action)
	if err != nil {
		return nil, err
	}
	return m.execute(job), nil
}

// Cancel stops the session's running command
func (m *Manager) Cancel(s *Session) bool {
	if !s.Cancel() {
		return false
	}
	m.logger.Info("run cancelled", zap.String("session", s.ID))
	return true
}

// Close cancels every running command and waits for them to stop
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// job is a command that has passed every check and holds its locks
type job struct {
	session *Session
	ws      *workspace.Workspace
	command exec.Command
	run     *RunSummary
	ctx     context.Context
	unlock  func()
}

func (m *Manager) prepare(parent context.Context, s *Session, action exec.Action) (*job, error) {
	settings := m.Settings()
	form := s.Form()

	ws, err := m.store.Open(form.Workspace)
	if errors.Is(err, workspace.ErrNotFound) {
		err = fmt.Errorf("%w: generate the configuration for %s first", err, form.Workspace)
	}
	if err != nil {
		return nil, m.consoleError(s, err)
	}

	command := settings.Terraform.Command(action)
	run := &RunSummary{
		Workspace: ws.ID,
		Action:    action,
		Command:   command.String(),
		StartedAt: time.Now(),
	}

	ctx, cancel := context.WithCancel(parent)
	if err := s.Begin(run, cancel); err != nil {
		cancel()
		return nil, m.consoleError(s, err)
	}

	unlock, err := m.store.TryLock(ws.ID)
	if err != nil {
		s.abort()
		return nil, m.consoleError(s, lockError(ws.ID, err))
	}

	run.RunID, err = workspace.GenerateRunID()
	if err != nil {
		run.RunID = uuid.NewString()
	}

	return &job{session: s, ws: ws, command: command, run: run, ctx: ctx, unlock: unlock}, nil
}

func (m *Manager) execute(j *job) *exec.Result {
	defer j.unlock()
	log := m.logger.With(
		zap.String("session", j.session.ID),
		zap.String("workspace", j.ws.ID),
		zap.String("run", j.run.RunID),
	)

	record := &history.Run{
		ID:        j.run.RunID,
		SessionID: j.session.ID,
		Workspace: j.ws.ID,
		Action:    string(j.run.Action),
		Command:   j.run.Command,
		StartedAt: j.run.StartedAt,
	}
	if m.recorder != nil {
		if err := m.recorder.Start(context.Background(), record); err != nil {
			log.Warn("failed to record run start", zap.Error(err))
		}
	}

	log.Info("run started", zap.String("command", j.run.Command))
	result := m.runner.Run(j.ctx, j.command, j.ws.Path, j.session.Log)

	if m.recorder != nil {
		finished := result.StartedAt.Add(result.Duration)
		record.Status = string(result.Status)
		record.ExitCode = result.ExitCode
		record.Error = result.ErrorString()
		record.Lines = result.Lines
		record.FinishedAt = &finished
		if err := m.recorder.Finish(context.Background(), record); err != nil {
			log.Warn("failed to record run result", zap.Error(err))
		}
	}

	j.session.end(result)
	return result
}

// lockError reports a held workspace lock as ErrBusy
func lockError(id string, err error) error {
	if errors.Is(err, workspace.ErrLocked) {
		return fmt.Errorf("%w: workspace %s is busy", ErrBusy, id)
	}
	return err
}

// consoleError writes err to the session console and returns it
func (m *Manager) consoleError(s *Session, err error) error {
	s.Log.Appendf(exec.ErrorMarker, err)
	m.logger.Debug("session operation rejected", zap.String("session", s.ID), zap.Error(err))
	return err
}

func snapshotMessage(form Form, flags render.Flags) string {
	var modules []string
	for _, f := range flags.Enabled() {
		modules = append(modules, string(f))
	}
	list := "no modules"
	if len(modules) > 0 {
		list = strings.Join(modules, ", ")
	}
	return fmt.Sprintf("Generate %s (%s, %s): %s", form.Workspace, form.Region, form.Environment, list)
}
