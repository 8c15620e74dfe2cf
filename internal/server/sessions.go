// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Session API handlers

package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sony-level/tfpanel/internal/exec"
	"github.com/sony-level/tfpanel/internal/session"
)

// session resolves the {id} route variable
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.manager.Get(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

// createSessionHandler opens a new panel session
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.manager.Create()
	writeJSON(w, http.StatusCreated, sess.View())
}

// listSessionsHandler returns every open session
func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions := s.manager.List()
	views := make([]session.View, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sess.View())
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// deleteSessionHandler stops any running command and forgets the session
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Delete(mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// updateFormHandler replaces the form; values are checked on generate
func (s *Server) updateFormHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var form session.Form
	if err := decodeJSON(w, r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}
	sess.SetForm(form)
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	gen, err := s.manager.Generate(sess)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

// runHandler starts init, plan or apply and returns before it finishes
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	action, err := exec.ParseAction(mux.Vars(r)["action"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.manager.Start(sess, action); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("run accepted", zap.String("session", sess.ID), zap.String("action", string(action)))
	writeJSON(w, http.StatusAccepted, sess.View())
}

func (s *Server) cancelHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.manager.Cancel(sess)})
}

// logHandler answers console polls. Clients pass back epoch and next from
// the previous answer; without them the whole console is returned.
func (s *Server) logHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	since, err := queryInt(r, "since", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	epoch := -1
	if r.URL.Query().Has("epoch") {
		if epoch, err = queryInt(r, "epoch", 0); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, sess.Log.Since(epoch, uint64(since)))
}

func (s *Server) resetLogHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.manager.ResetLog(sess); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}
