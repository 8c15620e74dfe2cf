// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// JSON responses and error mapping

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sony-level/tfpanel/internal/session"
	"github.com/sony-level/tfpanel/internal/tfstate"
	"github.com/sony-level/tfpanel/internal/workspace"
)

const maxBodySize = 1 << 20

// errorResponse is the body of every failed API call
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrInvalidID),
		errors.Is(err, session.ErrInvalidForm):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, tfstate.ErrNoState):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status, logging server-side failures
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// queryInt reads a non-negative integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name + " parameter")
	}
	return n, nil
}
