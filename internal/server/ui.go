// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Panel page

package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/sony-level/tfpanel/internal/logbuf"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return t, nil
}

type indexData struct {
	Title        string
	Version      string
	Catalog      catalogResponse
	ConsoleLines int
}

// indexHandler renders the single-page form
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	lines := s.manager.Settings().ConsoleLines
	if lines <= 0 {
		lines = logbuf.DefaultCapacity
	}

	data := indexData{
		Title:        "tfpanel",
		Version:      s.config.Version,
		Catalog:      s.catalog(),
		ConsoleLines: lines,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error("template error", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
