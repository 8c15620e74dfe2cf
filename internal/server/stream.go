// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Console push over Server-Sent Events

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const keepAliveInterval = 15 * time.Second

// logStreamHandler pushes console changes as "log" events carrying a chunk.
// The first event holds the whole console.
func (s *Server) logStreamHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	changes, unsubscribe := sess.Log.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	chunk := sess.Log.Since(-1, 0)
	for {
		if len(chunk.Lines) > 0 || chunk.Truncated {
			data, err := json.Marshal(chunk)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: log\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			s.logger.Debug("stream flush failed", zap.Error(err))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			chunk.Lines, chunk.Truncated = nil, false
		case <-changes:
			chunk = sess.Log.Since(chunk.Epoch, chunk.Next)
		}
	}
}
