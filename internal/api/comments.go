package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tgienger/planx/internal/db"
	"github.com/tgienger/planx/internal/models"
)

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.DB.ListComments(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) getComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	comment, err := s.DB.GetComment(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Comment not found")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (s *Server) listTaskComments(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskId")
	if !ok {
		return
	}
	if _, err := s.DB.GetTask(r.Context(), taskID); err != nil {
		s.fail(w, r, err, "Task does not exist.")
		return
	}
	comments, err := s.DB.GetTaskComments(r.Context(), taskID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// createCommentRequest accepts the text under either name; commentText is
// what the browser client sends for plain text comments
type createCommentRequest struct {
	CommentText            string `json:"commentText"`
	TextCommentForViewTask string `json:"textCommentforViewtask"`
	TaskID                 *int64 `json:"taskId"`
	CreatedByUserID        *int64 `json:"createdByUserId"`
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.TextCommentForViewTask)
	if text == "" {
		text = strings.TrimSpace(req.CommentText)
	}
	if text == "" || req.TaskID == nil {
		writeMessage(w, http.StatusBadRequest, "commentText and taskId are required")
		return
	}
	if !s.taskExists(w, r, *req.TaskID) {
		return
	}
	author := req.CreatedByUserID
	if author == nil {
		id := callerID(r)
		author = &id
	} else if !s.userExists(w, r, *author) {
		return
	}

	comment, err := s.DB.CreateComment(r.Context(), &models.Comment{
		TextCommentForViewTask: text,
		TaskID:                 req.TaskID,
		CreatedByUserID:        author,
	})
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

type mediaCommentResponse struct {
	Message            string          `json:"message"`
	NewCommentResponse *models.Comment `json:"newCommentResponse"`
}

// addMediaComment stores the uploaded files and records their links as
// one comment
func (s *Server) addMediaComment(w http.ResponseWriter, r *http.Request) {
	uploads, ok := s.readUploads(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	taskID, ok := formID(r, "taskId")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "taskId is required")
		return
	}
	author := callerID(r)
	if raw := r.FormValue("createdByUserId"); raw != "" {
		if author, ok = formID(r, "createdByUserId"); !ok {
			writeMessage(w, http.StatusBadRequest, "Invalid createdByUserId")
			return
		}
	}
	if !s.taskExists(w, r, taskID) || !s.userExists(w, r, author) {
		return
	}

	stored, err := s.Media.Ingest(r.Context(), uploads)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	links := make(models.Links, len(stored))
	for i, st := range stored {
		links[i] = st.URL
	}

	comment, err := s.DB.CreateComment(r.Context(), &models.Comment{
		CommentText:            links,
		TextCommentForViewTask: r.FormValue("textCommentforViewtask"),
		TaskID:                 &taskID,
		CreatedByUserID:        &author,
	})
	if err != nil {
		s.Media.Discard(context.WithoutCancel(r.Context()), stored)
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, mediaCommentResponse{Message: "New media added", NewCommentResponse: comment})
}

type updateCommentRequest struct {
	CommentText            json.RawMessage `json:"commentText"`
	TextCommentForViewTask *string         `json:"textCommentforViewtask"`
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var upd db.CommentUpdate
	if len(req.CommentText) > 0 && string(req.CommentText) != "null" {
		var links models.Links
		if err := json.Unmarshal(req.CommentText, &links); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		upd.CommentText = &links
	}
	upd.TextCommentForViewTask = req.TextCommentForViewTask

	comment, err := s.DB.UpdateComment(r.Context(), id, upd)
	if err != nil {
		s.fail(w, r, err, "Comment not found")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// deleteComment removes the comment and any stored media it links to
func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	comment, err := s.DB.GetComment(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Comment not found")
		return
	}
	if err := s.DB.DeleteComment(r.Context(), id); err != nil {
		s.fail(w, r, err, "Comment not found")
		return
	}
	s.deleteFiles(r.Context(), comment.CommentText)
	writeMessage(w, http.StatusOK, "Comment deleted successfully")
}
