package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// sectionInfo is the wire form of a manifest section.
type sectionInfo struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Source        string `json:"source"`
	Essential     bool   `json:"essential"`
	Visualization bool   `json:"visualization,omitempty"`
}

type bookInfo struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Sections []sectionInfo `json:"sections"`
}

func (s *Server) registerAPI(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/book", s.handleBook)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Get("/history/position", s.handleGetPosition)
		r.Get("/history/events", s.handleRecentEvents)
	})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	info := bookInfo{
		ID:       s.cfg.BookID,
		Title:    s.manifest.Title,
		Sections: make([]sectionInfo, 0, len(s.manifest.Sections)),
	}
	for _, sec := range s.manifest.Sections {
		info.Sections = append(info.Sections, sectionInfo{
			ID:            sec.ID,
			Title:         s.manifest.FriendlyTitle(sec.ID),
			Source:        sec.Source,
			Essential:     s.manifest.IsEssential(sec.ID),
			Visualization: sec.Visualization,
		})
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	next := s.settings.Get()
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		http.Error(w, "invalid settings payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	saved, err := s.settings.Replace(next)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	pos, err := s.history.Position(r.Context(), s.cfg.BookID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"section_id": pos})
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	evs, err := s.history.RecentEvents(r.Context(), s.cfg.BookID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
