// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// HTTP API tests

package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sony-level/tfpanel/internal/exec"
	"github.com/sony-level/tfpanel/internal/history"
	"github.com/sony-level/tfpanel/internal/logbuf"
	"github.com/sony-level/tfpanel/internal/render"
	"github.com/sony-level/tfpanel/internal/session"
	"github.com/sony-level/tfpanel/internal/tfstate"
	"github.com/sony-level/tfpanel/internal/workspace"
)

const fakeTerraform = `#!/bin/sh
case "$1" in
  apply)
    echo "Applying..."
    sleep 30
    ;;
  *)
    echo "terraform $1 ok"
    ;;
esac
`

type testEnv struct {
	server  *Server
	manager *session.Manager
	root    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake terraform is a shell script")
	}

	base := t.TempDir()
	bin := filepath.Join(base, "terraform")
	require.NoError(t, os.WriteFile(bin, []byte(fakeTerraform), 0o755))

	root := filepath.Join(base, "workspaces")
	store, err := workspace.NewStore(&workspace.StoreConfig{Root: root, History: true})
	require.NoError(t, err)

	runs, err := history.Open(filepath.Join(base, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	manager, err := session.NewManager(&session.ManagerConfig{
		Store:    store,
		Runner:   exec.NewRunner(&exec.RunnerConfig{GracePeriod: 2 * time.Second}),
		Recorder: runs,
		Settings: session.Settings{
			ModulesDir:       filepath.Join(base, "modules"),
			Terraform:        exec.Terraform{Binary: bin},
			DefaultWorkspace: "client_alpha",
			Regions:          render.Regions,
			Environments:     render.Environments,
			ConsoleLines:     logbuf.DefaultCapacity,
			Welcome:          "Welcome to tfpanel. Ready to launch.",
		},
	})
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	srv, err := New(Config{Manager: manager, Runs: runs, Version: "test"})
	require.NoError(t, err)

	return &testEnv{server: srv, manager: manager, root: root}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createSession(t *testing.T, modules ...string) session.View {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decode[session.View](t, rec)

	form := view.Form
	form.Modules = modules
	rec = e.do(t, http.MethodPut, "/api/sessions/"+view.ID+"/form", form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[session.View](t, rec)
}

func (e *testEnv) waitState(t *testing.T, id string, want session.State) session.View {
	t.Helper()
	var view session.View
	require.Eventually(t, func() bool {
		rec := e.do(t, http.MethodGet, "/api/sessions/"+id, nil)
		return json.Unmarshal(rec.Body.Bytes(), &view) == nil && view.State == want
	}, 10*time.Second, 20*time.Millisecond)
	return view
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "AWS S3 Buckets")
	assert.Contains(t, body, "client_alpha")
	assert.Contains(t, body, "eu-west-1")
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cat := decode[catalogResponse](t, rec)

	require.Len(t, cat.Modules, 5)
	assert.Equal(t, render.ObjectStorage, cat.Modules[0].Flag)
	assert.Equal(t, []string{render.VarBucketName}, cat.Modules[0].Variables)
	assert.Empty(t, cat.Modules[3].Variables)
	assert.Equal(t, []string{"dev", "staging", "prod"}, cat.Environments)
	assert.Equal(t, exec.Actions, cat.Actions)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[healthResponse](t, rec)

	// no module sources under the test modules directory
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "test", health.Version)
	require.NotEmpty(t, health.Toolchain.Results)
	assert.True(t, health.Toolchain.Results[0].Found)
	assert.True(t, health.Toolchain.Ready)
	assert.False(t, health.Modules.Ready)
	assert.Len(t, health.Modules.Missing, len(render.Catalog()))

	for _, m := range render.Catalog() {
		dir := filepath.Join(env.manager.Settings().ModulesDir, m.SourceDir)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte("# "+m.Block), 0o644))
	}

	rec = env.do(t, http.MethodGet, "/api/health", nil)
	health = decode[healthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Modules.Ready)
}

func TestGenerateAndRun(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t, string(render.ObjectStorage))
	base := "/api/sessions/" + view.ID

	rec := env.do(t, http.MethodPost, base+"/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gen := decode[map[string]any](t, rec)
	assert.Equal(t, true, gen["created"])
	assert.Len(t, gen["files"], 3)
	assert.FileExists(t, filepath.Join(env.root, "client_alpha", "main.tf"))

	rec = env.do(t, http.MethodPost, base+"/run/plan", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	done := env.waitState(t, view.ID, session.StateSucceeded)
	require.NotNil(t, done.LastRun)
	assert.Equal(t, exec.ActionPlan, done.LastRun.Action)

	rec = env.do(t, http.MethodGet, base+"/log", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	chunk := decode[logbuf.Chunk](t, rec)
	assert.True(t, chunk.Truncated)
	assert.Contains(t, chunk.Lines, "terraform plan ok")
	assert.Equal(t, exec.SuccessMarker, chunk.Lines[len(chunk.Lines)-1])

	rec = env.do(t, http.MethodGet, "/api/workspaces", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	infos := decode[[]workspace.Info](t, rec)
	require.Len(t, infos, 1)
	assert.Equal(t, "client_alpha", infos[0].ID)
	assert.Equal(t, render.FileNames, infos[0].Files)

	rec = env.do(t, http.MethodGet, "/api/workspaces/client_alpha/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]history.Run](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, "succeeded", runs[0].Status)

	rec = env.do(t, http.MethodGet, "/api/workspaces/client_alpha/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]workspace.Snapshot](t, rec), 1)
}

func TestLogPolling(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t)
	sess, err := env.manager.Get(view.ID)
	require.NoError(t, err)

	first := decode[logbuf.Chunk](t, env.do(t, http.MethodGet, "/api/sessions/"+view.ID+"/log", nil))
	require.Equal(t, []string{"Welcome to tfpanel. Ready to launch."}, first.Lines)

	sess.Log.Append("line one\nline two")
	path := "/api/sessions/" + view.ID + "/log?since=" + itoa(first.Next) + "&epoch=" + itoa(uint64(first.Epoch))
	next := decode[logbuf.Chunk](t, env.do(t, http.MethodGet, path, nil))
	assert.False(t, next.Truncated)
	assert.Equal(t, []string{"line one", "line two"}, next.Lines)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/log/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	after := decode[logbuf.Chunk](t, env.do(t, http.MethodGet, path, nil))
	assert.True(t, after.Truncated)
	assert.Equal(t, []string{"Welcome to tfpanel. Ready to launch."}, after.Lines)

	rec = env.do(t, http.MethodGet, "/api/sessions/"+view.ID+"/log?since=-4", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogStream(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t)
	sess, err := env.manager.Get(view.ID)
	require.NoError(t, err)

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/sessions/"+view.ID+"/log/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() logbuf.Chunk {
		var chunk logbuf.Chunk
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				require.NoError(t, json.Unmarshal([]byte(data), &chunk))
				return chunk
			}
		}
	}

	first := readEvent()
	assert.True(t, first.Truncated)
	assert.Equal(t, []string{"Welcome to tfpanel. Ready to launch."}, first.Lines)

	sess.Log.Append("pushed line")
	next := readEvent()
	assert.False(t, next.Truncated)
	assert.Equal(t, []string{"pushed line"}, next.Lines)
}

func TestBusyAndCancel(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t)
	base := "/api/sessions/" + view.ID

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, base+"/generate", nil).Code)
	require.Equal(t, http.StatusAccepted, env.do(t, http.MethodPost, base+"/run/apply", nil).Code)

	rec := env.do(t, http.MethodPost, base+"/run/plan", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "already running")

	other := env.createSession(t)
	rec = env.do(t, http.MethodPost, "/api/sessions/"+other.ID+"/generate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "generation must not rewrite files under a running command")

	consoleHasApply := func() bool {
		var chunk logbuf.Chunk
		rec := env.do(t, http.MethodGet, base+"/log", nil)
		return json.Unmarshal(rec.Body.Bytes(), &chunk) == nil && slices.Contains(chunk.Lines, "Applying...")
	}
	require.Eventually(t, consoleHasApply, 10*time.Second, 20*time.Millisecond)
	rec = env.do(t, http.MethodPost, base+"/log/reset", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "the console of a running command is kept")
	assert.True(t, consoleHasApply())

	rec = env.do(t, http.MethodPost, base+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"cancelled": true}, decode[map[string]bool](t, rec))

	done := env.waitState(t, view.ID, session.StateCancelled)
	assert.Equal(t, exec.StatusCancelled, done.LastRun.Status)
}

func TestErrorResponses(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t)
	base := "/api/sessions/" + view.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown session", http.MethodGet, "/api/sessions/nope", nil, http.StatusNotFound},
		{"unknown action", http.MethodPost, base + "/run/destroy", nil, http.StatusBadRequest},
		{"unknown form field", http.MethodPut, base + "/form", map[string]string{"color": "red"}, http.StatusBadRequest},
		{"run before generate", http.MethodPost, base + "/run/init", nil, http.StatusNotFound},
		{"unknown workspace", http.MethodGet, "/api/workspaces/ghost/state", nil, http.StatusNotFound},
		{"invalid workspace", http.MethodGet, "/api/workspaces/.hidden/runs", nil, http.StatusBadRequest},
		{"unknown endpoint", http.MethodGet, "/api/nothing", nil, http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/sessions", nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestGenerateInvalidWorkspace(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t)

	form := view.Form
	form.Workspace = "../etc"
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/sessions/"+view.ID+"/form", form).Code)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/generate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoDirExists(t, filepath.Join(filepath.Dir(env.root), "etc"))
}

func TestWorkspaceState(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/sessions/"+view.ID+"/generate", nil).Code)

	rec := env.do(t, http.MethodGet, "/api/workspaces/client_alpha/state", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	state := `{"version":4,"serial":2,"terraform_version":"1.9.5","resources":[` +
		`{"module":"module.s3_datalake","mode":"managed","type":"aws_s3_bucket","name":"this","instances":[{}]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(env.root, "client_alpha", workspace.StateFile), []byte(state), 0o644))

	rec = env.do(t, http.MethodGet, "/api/workspaces/client_alpha/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[tfstate.Summary](t, rec)
	assert.Equal(t, 2, summary.Serial)
	require.Len(t, summary.Resources, 1)
	assert.Equal(t, "module.s3_datalake.aws_s3_bucket.this", summary.Resources[0].Address)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t)

	rec := env.do(t, http.MethodGet, "/api/sessions", nil)
	assert.Len(t, decode[[]session.View](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/api/sessions/"+view.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/sessions/"+view.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(n uint64) string {
	return strconv.FormatUint(n, 10)
}
