package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tgienger/planx/internal/db"
)

type sectionRequest struct {
	SectionName string `json:"sectionName"`
}

func (s *Server) createSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.SectionName)
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "sectionName is required")
		return
	}
	section, err := s.DB.CreateSection(r.Context(), name)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, section)
}

func (s *Server) listSections(w http.ResponseWriter, r *http.Request) {
	sections, err := s.DB.ListSections(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func (s *Server) getSection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	section, err := s.DB.GetSection(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Section not found")
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (s *Server) updateSection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req sectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.SectionName)
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "sectionName is required")
		return
	}
	section, err := s.DB.UpdateSection(r.Context(), id, name)
	if err != nil {
		s.fail(w, r, err, "Section not found")
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (s *Server) deleteSection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	err := s.DB.DeleteSection(r.Context(), id)
	if errors.Is(err, db.ErrConflict) {
		writeMessage(w, http.StatusConflict, "Section still has tasks")
		return
	}
	if err != nil {
		s.fail(w, r, err, "Section not found")
		return
	}
	writeMessage(w, http.StatusOK, "Section deleted successfully")
}
