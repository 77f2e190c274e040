package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tgienger/planx/internal/db"
	planxmail "github.com/tgienger/planx/internal/mail"
	"github.com/tgienger/planx/internal/models"
)

type taskRequest struct {
	TaskName         *string              `json:"taskName"`
	Description      *string              `json:"description"`
	SubTask          *string              `json:"subTask"`
	DueDate          optional[string]     `json:"dueDate"`
	Status           *models.TaskStatus   `json:"status"`
	PlatformType     *models.PlatformType `json:"platformType"`
	SectionID        *int64               `json:"sectionID"`
	TaskAssignedToID optional[int64]      `json:"taskAssignedToID"`
	TaskCreatedByID  *int64               `json:"taskCreatedByID"`
	TagIDs           *models.IDList       `json:"tagIDs"`
}

// validate checks enums and the due date, returning the parsed due date
func (req taskRequest) validate(now time.Time) (*time.Time, error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("Invalid status %q", *req.Status)
	}
	if req.PlatformType != nil && !req.PlatformType.Valid() {
		return nil, fmt.Errorf("Invalid platformType %q", *req.PlatformType)
	}
	if req.TaskName != nil && strings.TrimSpace(*req.TaskName) == "" {
		return nil, errors.New("taskName cannot be empty")
	}
	if req.DueDate.Value == nil || *req.DueDate.Value == "" {
		return nil, nil
	}
	due, err := parseDueDate(*req.DueDate.Value, now)
	if err != nil {
		return nil, err
	}
	return &due, nil
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TaskName == nil || req.SectionID == nil {
		writeMessage(w, http.StatusBadRequest, "taskName and sectionID are required")
		return
	}
	due, err := req.validate(s.now())
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.sectionExists(w, r, *req.SectionID) {
		return
	}
	assignee := req.TaskAssignedToID.Value
	if assignee != nil && !s.userExists(w, r, *assignee) {
		return
	}
	creator := req.TaskCreatedByID
	if creator == nil {
		id := callerID(r)
		creator = &id
	} else if !s.userExists(w, r, *creator) {
		return
	}

	t := &models.Task{
		TaskName:         strings.TrimSpace(*req.TaskName),
		Description:      deref(req.Description),
		SubTask:          deref(req.SubTask),
		DueDate:          due,
		SectionID:        *req.SectionID,
		TaskAssignedToID: assignee,
		TaskCreatedByID:  creator,
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.PlatformType != nil {
		t.PlatformType = *req.PlatformType
	}
	if req.TagIDs != nil {
		t.TagIDs = *req.TagIDs
	}

	task, err := s.DB.CreateTask(r.Context(), t)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if task.TaskAssignedToID != nil {
		s.notifyAssignee(r, task)
	}
	writeJSON(w, http.StatusCreated, task)
}

// notifyAssignee records a notification and mails the assignee. Failures
// are logged; the task change already happened.
func (s *Server) notifyAssignee(r *http.Request, task *models.Task) {
	ctx := r.Context()
	text := fmt.Sprintf("You have been assigned task %s: %s", task.IDWithPrefix, task.TaskName)
	if _, err := s.DB.CreateNotifications(ctx, text, &task.ID, []int64{*task.TaskAssignedToID}); err != nil {
		s.Logger.ErrorContext(ctx, "failed to create assignment notification", "task_id", task.ID, "error", err)
	}

	assignee, err := s.DB.GetUser(ctx, *task.TaskAssignedToID)
	if err != nil {
		s.Logger.ErrorContext(ctx, "failed to load assignee", "task_id", task.ID, "error", err)
		return
	}
	assignedBy := "A teammate"
	if caller, err := s.DB.GetUser(ctx, callerID(r)); err == nil {
		assignedBy = caller.UserName
	}
	s.sendLater(planxmail.TaskAssigned(assignee.Email, assignee.UserName, assignedBy,
		task.IDWithPrefix, task.TaskName, task.DueDate))
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	var f db.TaskFilter
	var err error
	if f.SectionID, err = queryID(r, "sectionID"); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.AssignedTo, err = queryID(r, "assignedTo"); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.CreatedBy, err = queryID(r, "createdBy"); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if status := models.TaskStatus(r.URL.Query().Get("status")); status != "" {
		if !status.Valid() {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Invalid status %q", status))
			return
		}
		f.Status = status
	}
	s.writeTasks(w, r, f)
}

func (s *Server) listDeletedTasks(w http.ResponseWriter, r *http.Request) {
	s.writeTasks(w, r, db.TaskFilter{Deleted: true})
}

func (s *Server) listAssignedTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok || !s.userExists(w, r, userID) {
		return
	}
	s.writeTasks(w, r, db.TaskFilter{AssignedTo: &userID})
}

func (s *Server) writeTasks(w http.ResponseWriter, r *http.Request, f db.TaskFilter) {
	tasks, err := s.DB.ListTasks(r.Context(), f)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := s.DB.GetTask(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	due, err := req.validate(s.now())
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	before, err := s.DB.GetTask(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Task not found")
		return
	}
	if req.SectionID != nil && !s.sectionExists(w, r, *req.SectionID) {
		return
	}
	assignee := req.TaskAssignedToID.Value
	if assignee != nil && !s.userExists(w, r, *assignee) {
		return
	}

	upd := db.TaskUpdate{
		TaskName:      trimmed(req.TaskName),
		Description:   req.Description,
		SubTask:       req.SubTask,
		DueDate:       due,
		ClearDueDate:  req.DueDate.Set && due == nil,
		Status:        req.Status,
		PlatformType:  req.PlatformType,
		SectionID:     req.SectionID,
		AssignedTo:    assignee,
		ClearAssignee: req.TaskAssignedToID.Set && assignee == nil,
		TagIDs:        req.TagIDs,
	}
	task, err := s.DB.UpdateTask(r.Context(), id, upd)
	if err != nil {
		s.fail(w, r, err, "Task not found")
		return
	}
	if assignee != nil && !sameID(before.TaskAssignedToID, assignee) {
		s.notifyAssignee(r, task)
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) softDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.DB.SoftDeleteTask(r.Context(), id); err != nil {
		s.fail(w, r, err, "Task not found")
		return
	}
	writeMessage(w, http.StatusOK, "Task moved to trash")
}

func (s *Server) restoreTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := s.DB.RestoreTask(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Deleted task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	links, err := s.DB.DeleteTask(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Task not found")
		return
	}
	s.deleteFiles(r.Context(), links)
	writeMessage(w, http.StatusOK, "Task permanently deleted")
}

func (s *Server) sendTaskToQA(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := s.DB.SendTaskToQA(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) removeTaskTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagId")
	if !ok {
		return
	}
	task, err := s.DB.RemoveTagFromTask(r.Context(), id, tagID)
	if err != nil {
		s.fail(w, r, err, "Task or tag not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
