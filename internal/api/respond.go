package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tgienger/planx/internal/db"
	"github.com/tgienger/planx/internal/media"
)

const maxJSONBody = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// fail maps err to a status code. Not found and conflict errors use msg
// when given; anything unexpected is logged and answered with a generic 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeMessage(w, http.StatusNotFound, orDefault(msg, "Not found"))
	case errors.Is(err, db.ErrConflict):
		writeMessage(w, http.StatusConflict, orDefault(msg, "Conflicts with existing data"))
	case errors.Is(err, media.ErrUnsupportedMedia):
		writeMessage(w, http.StatusBadRequest, "Unsupported media type.")
	default:
		s.Logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// decodeJSON reads a JSON body into dst, answering 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeMessage(w, http.StatusBadRequest, "Request body is required")
		} else {
			writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		}
		return false
	}
	return true
}

// pathID parses a positive integer path parameter, answering 400 on failure
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

// queryID parses an optional integer query parameter
func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &id, nil
}

func parseIDList(raw string) ([]int64, error) {
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// optional tells an absent JSON field apart from an explicit null
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

var errPastDueDate = errors.New("Due date cannot be in the past")

// parseDueDate accepts RFC 3339 timestamps and YYYY-MM-DD dates. Dates
// before today (UTC) are rejected.
func parseDueDate(raw string, now time.Time) (time.Time, error) {
	d, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		d, err = time.Parse(time.DateOnly, raw)
		if err != nil {
			return time.Time{}, errors.New("Invalid due date, use YYYY-MM-DD or RFC 3339")
		}
	}
	d = d.UTC()
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return time.Time{}, errPastDueDate
	}
	return d, nil
}
