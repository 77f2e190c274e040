package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tgienger/planx/internal/media"
	"github.com/tgienger/planx/internal/models"
)

type createBuildRequest struct {
	BuildName   string `json:"buildName"`
	Version     string `json:"version"`
	AndroidLink string `json:"androidLink"`
}

func (s *Server) createBuild(w http.ResponseWriter, r *http.Request) {
	var req createBuildRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.BuildName = strings.TrimSpace(req.BuildName)
	if req.BuildName == "" {
		writeMessage(w, http.StatusBadRequest, "buildName is required")
		return
	}
	if req.AndroidLink != "" && !validLink(req.AndroidLink) {
		writeMessage(w, http.StatusBadRequest, "androidLink must be an http(s) URL")
		return
	}

	creator := callerID(r)
	build, err := s.DB.CreateBuild(r.Context(), &models.Build{
		BuildName:       req.BuildName,
		Version:         strings.TrimSpace(req.Version),
		AndroidLink:     req.AndroidLink,
		CreatedByUserID: &creator,
	})
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, build)
}

func (s *Server) listBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := s.DB.ListBuilds(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, builds)
}

func (s *Server) getBuild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	build, err := s.DB.GetBuild(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Build not found")
		return
	}
	writeJSON(w, http.StatusOK, build)
}

// deleteBuild removes a build with its checks and comments, and the files
// they pointed at
func (s *Server) deleteBuild(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	links, err := s.DB.DeleteBuild(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Build not found")
		return
	}
	s.deleteFiles(r.Context(), links)
	writeMessage(w, http.StatusOK, "Build deleted successfully")
}

type androidLinkRequest struct {
	AndroidLink string `json:"androidLink"`
}

func (s *Server) addAndroidLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "buildId")
	if !ok {
		return
	}
	var req androidLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validLink(req.AndroidLink) {
		writeMessage(w, http.StatusBadRequest, "androidLink must be an http(s) URL")
		return
	}
	build, err := s.DB.SetAndroidLink(r.Context(), id, req.AndroidLink)
	if err != nil {
		s.fail(w, r, err, "Build not found")
		return
	}
	writeJSON(w, http.StatusOK, build)
}

type buildCommentResponse struct {
	Message string               `json:"message"`
	Comment *models.BuildComment `json:"comment"`
}

// addBuildComment records a comment on a task tested in a build. The
// multipart form carries taskName, commentText, an optional userId and
// any number of mediaFiles; text or files must be present.
func (s *Server) addBuildComment(w http.ResponseWriter, r *http.Request) {
	buildID, ok := pathID(w, r, "buildId")
	if !ok {
		return
	}
	uploads, ok := s.readOptionalUploads(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	taskName := strings.TrimSpace(r.FormValue("taskName"))
	text := strings.TrimSpace(r.FormValue("commentText"))
	if taskName == "" {
		writeMessage(w, http.StatusBadRequest, "taskName is required")
		return
	}
	if text == "" && len(uploads) == 0 {
		writeMessage(w, http.StatusBadRequest, "commentText or mediaFiles is required")
		return
	}
	author := callerID(r)
	if raw := r.FormValue("userId"); raw != "" {
		if author, ok = formID(r, "userId"); !ok {
			writeMessage(w, http.StatusBadRequest, "Invalid userId")
			return
		}
	}
	if !s.buildExists(w, r, buildID) || !s.userExists(w, r, author) {
		return
	}

	var stored []media.Stored
	if len(uploads) > 0 {
		var err error
		if stored, err = s.Media.Ingest(r.Context(), uploads); err != nil {
			s.fail(w, r, err, "")
			return
		}
	}
	links := make(models.Links, len(stored))
	for i, st := range stored {
		links[i] = st.URL
	}

	comment, err := s.DB.CreateBuildComment(r.Context(), &models.BuildComment{
		BuildID:    buildID,
		TaskName:   taskName,
		UserID:     &author,
		Comment:    text,
		MediaLinks: links,
	})
	if err != nil {
		s.Media.Discard(context.WithoutCancel(r.Context()), stored)
		s.fail(w, r, err, "Build not found")
		return
	}
	writeJSON(w, http.StatusCreated, buildCommentResponse{Message: "Comment added", Comment: comment})
}

// listBuildComments answers {"comments": [...]} for a build, narrowed to
// one task by the taskName query parameter
func (s *Server) listBuildComments(w http.ResponseWriter, r *http.Request) {
	buildID, ok := pathID(w, r, "buildId")
	if !ok {
		return
	}
	if !s.buildExists(w, r, buildID) {
		return
	}
	comments, err := s.DB.ListBuildComments(r.Context(), buildID, strings.TrimSpace(r.URL.Query().Get("taskName")))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// buildExists answers 404 itself when the build is missing
func (s *Server) buildExists(w http.ResponseWriter, r *http.Request, id int64) bool {
	ok, err := s.DB.BuildExists(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "")
		return false
	}
	if !ok {
		writeMessage(w, http.StatusNotFound, "Build does not exist.")
	}
	return ok
}

func validLink(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
