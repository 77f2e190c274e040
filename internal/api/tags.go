package api

import (
	"net/http"
	"strings"
)

type tagRequest struct {
	TagName string `json:"tagName"`
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.TagName)
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "tagName is required")
		return
	}
	tag, err := s.DB.CreateTag(r.Context(), name)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// listTags returns every tag, or only those named by ?ids=1,2,3
func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if raw, ok := r.URL.Query()["ids"]; ok {
		var err error
		if ids, err = parseIDList(strings.Join(raw, ",")); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	tags, err := s.DB.ListTags(r.Context(), ids...)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) getTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tag, err := s.DB.GetTag(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Tag not found")
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req tagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.TagName)
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "tagName is required")
		return
	}
	tag, err := s.DB.UpdateTag(r.Context(), id, name)
	if err != nil {
		s.fail(w, r, err, "Tag not found")
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.DB.DeleteTag(r.Context(), id); err != nil {
		s.fail(w, r, err, "Tag not found")
		return
	}
	writeMessage(w, http.StatusOK, "Tag deleted successfully")
}
