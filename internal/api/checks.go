package api

import (
	"net/http"
	"strings"

	"github.com/tgienger/planx/internal/models"
)

type taskCheckRequest struct {
	TaskName        string `json:"taskName"`
	BuildID         int64  `json:"buildId"`
	CheckedByUserID *int64 `json:"checkedByUserId"`
}

func (s *Server) decodeCheck(w http.ResponseWriter, r *http.Request) (taskCheckRequest, bool) {
	var req taskCheckRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	req.TaskName = strings.TrimSpace(req.TaskName)
	if req.TaskName == "" || req.BuildID <= 0 {
		writeMessage(w, http.StatusBadRequest, "taskName and buildId are required")
		return req, false
	}
	return req, true
}

// markWorking records whether a task works in a build, replacing any
// earlier verdict
func (s *Server) markWorking(working bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeCheck(w, r)
		if !ok {
			return
		}
		if !s.buildExists(w, r, req.BuildID) {
			return
		}
		checker := callerID(r)
		if req.CheckedByUserID != nil {
			if !s.userExists(w, r, *req.CheckedByUserID) {
				return
			}
			checker = *req.CheckedByUserID
		}

		check, err := s.DB.UpsertTaskCheck(r.Context(), models.TaskCheck{
			TaskName:        req.TaskName,
			CheckedByUserID: checker,
			BuildID:         req.BuildID,
			IsWorking:       working,
		})
		if err != nil {
			s.fail(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, check)
	}
}

func (s *Server) isWorking(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCheck(w, r)
	if !ok {
		return
	}
	check, err := s.DB.GetTaskCheck(r.Context(), req.BuildID, req.TaskName)
	if err != nil {
		s.fail(w, r, err, "Task has not been checked in this build")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"isWorking": check.IsWorking,
		"check":     check,
	})
}

func (s *Server) listBuildChecks(w http.ResponseWriter, r *http.Request) {
	buildID, ok := pathID(w, r, "buildId")
	if !ok {
		return
	}
	if !s.buildExists(w, r, buildID) {
		return
	}
	checks, err := s.DB.ListBuildChecks(r.Context(), buildID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func (s *Server) uncheck(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCheck(w, r)
	if !ok {
		return
	}
	if err := s.DB.DeleteTaskCheck(r.Context(), req.BuildID, req.TaskName); err != nil {
		s.fail(w, r, err, "Task has not been checked in this build")
		return
	}
	writeMessage(w, http.StatusOK, "Check removed")
}
