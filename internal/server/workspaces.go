// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Workspace, catalog and health handlers

package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sony-level/tfpanel/internal/exec"
	"github.com/sony-level/tfpanel/internal/history"
	"github.com/sony-level/tfpanel/internal/modsrc"
	"github.com/sony-level/tfpanel/internal/prereq"
	"github.com/sony-level/tfpanel/internal/render"
	"github.com/sony-level/tfpanel/internal/tfstate"
	"github.com/sony-level/tfpanel/internal/workspace"
)

const defaultListLimit = 20

type healthResponse struct {
	Status    string               `json:"status"` // ok or degraded
	Version   string               `json:"version"`
	Toolchain *prereq.CheckSummary `json:"toolchain"`
	Modules   *modsrc.Report       `json:"modules"`
}

// healthHandler reports whether terraform can be run against complete module sources
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	settings := s.manager.Settings()
	summary := prereq.NewChecker(settings.Terraform.Binary).Check(r.Context())
	modules := modsrc.Verify(settings.ModulesDir)

	resp := healthResponse{Status: "ok", Version: s.config.Version, Toolchain: summary, Modules: modules}
	if !summary.Ready || !modules.Ready {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

type catalogModule struct {
	Flag      render.Flag `json:"flag"`
	Label     string      `json:"label"`
	Variables []string    `json:"variables"`
}

type catalogResponse struct {
	Modules          []catalogModule `json:"modules"`
	Regions          []string        `json:"regions"`
	Environments     []string        `json:"environments"`
	Actions          []exec.Action   `json:"actions"`
	DefaultWorkspace string          `json:"default_workspace"`
}

func (s *Server) catalog() catalogResponse {
	settings := s.manager.Settings()
	resp := catalogResponse{
		Regions:          settings.Regions,
		Environments:     settings.Environments,
		Actions:          exec.Actions,
		DefaultWorkspace: settings.DefaultWorkspace,
	}
	for _, m := range render.Catalog() {
		vars := m.Variables()
		if vars == nil {
			vars = []string{}
		}
		resp.Modules = append(resp.Modules, catalogModule{Flag: m.Flag, Label: m.Label, Variables: vars})
	}
	return resp
}

func (s *Server) catalogHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog())
}

func (s *Server) listWorkspacesHandler(w http.ResponseWriter, r *http.Request) {
	infos, err := s.manager.Store().List(render.FileNames)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if infos == nil {
		infos = []workspace.Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// openWorkspace resolves the {id} route variable to an existing workspace
func (s *Server) openWorkspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := s.manager.Store().Open(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return ws, true
}

// workspaceHistoryHandler lists generation snapshots
func (s *Server) workspaceHistoryHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snaps, err := s.manager.Store().History(ws, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []workspace.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

// workspaceRunsHandler lists recorded terraform runs
func (s *Server) workspaceRunsHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs := []history.Run{}
	if s.runs != nil {
		found, err := s.runs.List(r.Context(), ws.ID, limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		runs = append(runs, found...)
	}
	writeJSON(w, http.StatusOK, runs)
}

// workspaceStateHandler summarizes terraform.tfstate
func (s *Server) workspaceStateHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.openWorkspace(w, r)
	if !ok {
		return
	}

	summary, err := tfstate.Load(ws.StatePath())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
