// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Run history tests

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestStartFinishGet(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	started := time.Now().Add(-2 * time.Second).Truncate(time.Millisecond)
	run := &Run{
		ID:        "run-1",
		SessionID: "s1",
		Workspace: "client_alpha",
		Action:    "plan",
		Command:   "terraform plan",
		StartedAt: started,
	}
	if err := store.Start(ctx, run); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusRunning || got.FinishedAt != nil || !got.StartedAt.Equal(started) {
		t.Errorf("in-flight run = %+v", got)
	}

	run.Status = "failed"
	run.ExitCode = 3
	run.Error = "command exited with code 3"
	run.Lines = 12
	if err := store.Finish(ctx, run); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err = store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != "failed" || got.ExitCode != 3 || got.Lines != 12 || got.FinishedAt == nil {
		t.Errorf("finished run = %+v", got)
	}
	if got.Duration() < 2*time.Second {
		t.Errorf("Duration() = %v, want >= 2s", got.Duration())
	}
}

func TestGetAndFinishUnknown(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := store.Finish(ctx, &Run{ID: "nope", Status: "succeeded"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		ws := "alpha"
		if i%2 == 1 {
			ws = "beta"
		}
		run := &Run{
			ID:        fmt.Sprintf("run-%d", i),
			Workspace: ws,
			Action:    "init",
			Command:   "terraform init",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Start(ctx, run); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}

	alpha, err := store.List(ctx, "alpha", 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(alpha) != 3 || alpha[0].ID != "run-4" || alpha[2].ID != "run-0" {
		t.Errorf("alpha runs = %v", ids(alpha))
	}

	all, err := store.List(ctx, "", 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != "run-4" || all[1].ID != "run-3" {
		t.Errorf("latest runs = %v", ids(all))
	}
}

func TestReopenMarksOrphanedRunsInterrupted(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()

	orphan := &Run{ID: "r", Workspace: "w", Action: "apply", Command: "terraform apply", StartedAt: time.Now(), PID: exitedPID(t)}
	if err := store.Start(ctx, orphan); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "r")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusInterrupted || got.FinishedAt == nil {
		t.Errorf("run after restart = %+v", got)
	}
}

func TestOpenLeavesLiveRunsAlone(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()

	live := &Run{ID: "live", Workspace: "w", Action: "apply", Command: "terraform apply", StartedAt: time.Now()}
	if err := store.Start(ctx, live); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if live.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", live.PID, os.Getpid())
	}

	// a second process listing runs opens the same database
	other, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer other.Close()

	got, err := other.Get(ctx, "live")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusRunning || got.FinishedAt != nil {
		t.Errorf("live run after a second Open = %+v", got)
	}

	live.Status, live.Lines = "succeeded", 3
	if err := store.Finish(ctx, live); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if got, _ := other.Get(ctx, "live"); got.Status != "succeeded" {
		t.Errorf("Status = %s, want succeeded", got.Status)
	}
}

func TestOpenUpgradesSchemaWithoutPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = conn.Exec(`CREATE TABLE runs (
		id TEXT PRIMARY KEY, session_id TEXT NOT NULL, workspace TEXT NOT NULL,
		action TEXT NOT NULL, command TEXT NOT NULL, status TEXT NOT NULL DEFAULT 'running',
		exit_code INTEGER NOT NULL DEFAULT 0, error TEXT NOT NULL DEFAULT '',
		lines INTEGER NOT NULL DEFAULT 0, started_at INTEGER NOT NULL, finished_at INTEGER);
		INSERT INTO runs (id, session_id, workspace, action, command, started_at)
		VALUES ('old', 's', 'w', 'plan', 'terraform plan', 1000);`)
	conn.Close()
	if err != nil {
		t.Fatal(err)
	}

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	// no recorded process: the run cannot still be going
	got, err := store.Get(context.Background(), "old")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusInterrupted || got.PID != 0 {
		t.Errorf("upgraded run = %+v", got)
	}
}

// exitedPID returns the pid of a process that has already been reaped
func exitedPID(t *testing.T) int {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	cmd := osexec.Command("sh", "-c", "exit 0")
	if err := cmd.Run(); err != nil {
		t.Fatalf("sh: %v", err)
	}
	return cmd.Process.Pid
}

func ids(runs []Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
