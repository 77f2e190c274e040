package api

import (
	"net/http"
	"strings"
)

type notificationRequest struct {
	NotificationText string  `json:"notificationText"`
	UserIDs          []int64 `json:"userIds"`
	TaskID           *int64  `json:"taskId"`
}

func (s *Server) createNotifications(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.NotificationText)
	if text == "" || len(req.UserIDs) == 0 {
		writeMessage(w, http.StatusBadRequest, "notificationText and userIds are required")
		return
	}
	for _, id := range req.UserIDs {
		if !s.userExists(w, r, id) {
			return
		}
	}
	if req.TaskID != nil && !s.taskExists(w, r, *req.TaskID) {
		return
	}

	created, err := s.DB.CreateNotifications(r.Context(), text, req.TaskID, req.UserIDs)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok || !s.userExists(w, r, userID) {
		return
	}
	items, err := s.DB.ListUserNotifications(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok || !s.userExists(w, r, userID) {
		return
	}
	n, err := s.DB.UnreadCount(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unreadCount": n})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	n, err := s.DB.MarkNotificationRead(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "Notification not found")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok || !s.userExists(w, r, userID) {
		return
	}
	n, err := s.DB.MarkAllRead(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All notifications marked as read",
		"updated": n,
	})
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.DB.DeleteNotification(r.Context(), id); err != nil {
		s.fail(w, r, err, "Notification not found")
		return
	}
	writeMessage(w, http.StatusOK, "Notification deleted successfully")
}
