// Package client is a typed client for the Plan-X REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tgienger/planx/internal/models"
)

// ErrUnauthorized is returned when the session is missing or expired
var ErrUnauthorized = errors.New("not logged in")

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Client talks to one API server. The session cookie set by Login is
// kept in a cookie jar and sent with every later request.
type Client struct {
	base *url.URL
	http *http.Client
}

func New(baseURL string) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base: base,
		http: &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}, nil
}

// BaseURL is the server the client talks to
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var m struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&m) == nil {
			apiErr.Message = m.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodPost, "/users", nil, map[string]string{
		"userName": name,
		"email":    email,
		"password": password,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Login starts a session
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/users/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/users/logout", nil, nil, nil)
}

// Me returns the logged in user
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListSections(ctx context.Context) ([]models.Section, error) {
	var out []models.Section
	err := c.do(ctx, http.MethodGet, "/sections", nil, nil, &out)
	return out, err
}

func (c *Client) CreateSection(ctx context.Context, name string) (*models.Section, error) {
	var s models.Section
	if err := c.do(ctx, http.MethodPost, "/sections", nil, map[string]string{"sectionName": name}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) DeleteSection(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/sections/"+itoa(id), nil, nil, nil)
}

func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	var out []models.Tag
	err := c.do(ctx, http.MethodGet, "/tags", nil, nil, &out)
	return out, err
}

// TaskQuery filters ListTasks; zero fields are ignored
type TaskQuery struct {
	SectionID  int64
	AssignedTo int64
	Status     models.TaskStatus
}

func (q TaskQuery) values() url.Values {
	v := url.Values{}
	if q.SectionID > 0 {
		v.Set("sectionID", itoa(q.SectionID))
	}
	if q.AssignedTo > 0 {
		v.Set("assignedTo", itoa(q.AssignedTo))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	return v
}

func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]models.Task, error) {
	var out []models.Task
	err := c.do(ctx, http.MethodGet, "/tasks", q.values(), nil, &out)
	return out, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	var t models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+itoa(id), nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// NewTask is the body of a create call
type NewTask struct {
	TaskName    string        `json:"taskName"`
	Description string        `json:"description,omitempty"`
	SectionID   int64         `json:"sectionID"`
	TagIDs      models.IDList `json:"tagIDs,omitempty"`
}

func (c *Client) CreateTask(ctx context.Context, t NewTask) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TaskChanges is a partial update; nil fields are left alone
type TaskChanges struct {
	TaskName    *string            `json:"taskName,omitempty"`
	Description *string            `json:"description,omitempty"`
	Status      *models.TaskStatus `json:"status,omitempty"`
	TagIDs      *models.IDList     `json:"tagIDs,omitempty"`
}

func (c *Client) UpdateTask(ctx context.Context, id int64, ch TaskChanges) (*models.Task, error) {
	var out models.Task
	if err := c.do(ctx, http.MethodPut, "/tasks/"+itoa(id), nil, ch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrashTask soft-deletes a task
func (c *Client) TrashTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+itoa(id), nil, nil, nil)
}

func (c *Client) TaskComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	var out []models.Comment
	err := c.do(ctx, http.MethodGet, "/comment/task/"+itoa(taskID), nil, nil, &out)
	return out, err
}

func (c *Client) AddComment(ctx context.Context, taskID int64, text string) (*models.Comment, error) {
	var out models.Comment
	err := c.do(ctx, http.MethodPost, "/comment", nil, map[string]any{
		"textCommentforViewtask": text,
		"taskId":                 taskID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
