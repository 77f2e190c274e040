package api

import (
	"context"
	"net/http"

	"github.com/tgienger/planx/internal/db"
	"github.com/tgienger/planx/internal/models"
)

func (s *Server) listMedia(w http.ResponseWriter, r *http.Request) {
	var f db.MediaFilter
	if owner := models.MediaOwner(r.URL.Query().Get("type")); owner != "" {
		if !owner.Valid() {
			writeMessage(w, http.StatusBadRequest, "type must be Task or Build")
			return
		}
		f.Type = owner
	}
	var err error
	if f.TaskOrBuildID, err = queryID(r, "taskOrBuildId"); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.DB.ListMedia(r.Context(), f)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := s.DB.GetMedia(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Media not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// uploadMedia stores files against a task or build, one record per file
func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request) {
	uploads, ok := s.readUploads(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	owner := models.MediaOwner(r.FormValue("type"))
	if !owner.Valid() {
		writeMessage(w, http.StatusBadRequest, "type must be Task or Build")
		return
	}
	ownerID, ok := formID(r, "taskOrBuildId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "taskOrBuildId is required")
		return
	}
	switch owner {
	case models.OwnerTask:
		if !s.taskExists(w, r, ownerID) {
			return
		}
	case models.OwnerBuild:
		if !s.buildExists(w, r, ownerID) {
			return
		}
	}

	stored, err := s.Media.Ingest(r.Context(), uploads)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	items := make([]models.Media, len(stored))
	for i, st := range stored {
		items[i] = models.Media{
			MediaLink:     st.URL,
			Type:          owner,
			TaskOrBuildID: ownerID,
			MediaType:     st.Kind,
		}
	}

	created, err := s.DB.CreateMedia(r.Context(), items)
	if err != nil {
		s.Media.Discard(context.WithoutCancel(r.Context()), stored)
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) deleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := s.DB.GetMedia(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Media not found")
		return
	}
	if err := s.DB.DeleteMedia(r.Context(), id); err != nil {
		s.fail(w, r, err, "Media not found")
		return
	}
	s.deleteFiles(r.Context(), []string{m.MediaLink})
	writeMessage(w, http.StatusOK, "Media deleted successfully")
}

// deleteFiles removes stored objects whose records are already gone. It
// ignores cancellation of ctx.
func (s *Server) deleteFiles(ctx context.Context, links []string) {
	ctx = context.WithoutCancel(ctx)
	for _, link := range links {
		if err := s.Media.DeleteURL(ctx, link); err != nil {
			s.Logger.WarnContext(ctx, "failed to delete stored media", "url", link, "error", err)
		}
	}
}
