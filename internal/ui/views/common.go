package views

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/planx/internal/client"
	"github.com/tgienger/planx/internal/models"
)

// API is the part of the REST client the views use
type API interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	ListSections(ctx context.Context) ([]models.Section, error)
	CreateSection(ctx context.Context, name string) (*models.Section, error)
	DeleteSection(ctx context.Context, id int64) error
	ListTags(ctx context.Context) ([]models.Tag, error)
	ListTasks(ctx context.Context, q client.TaskQuery) ([]models.Task, error)
	CreateTask(ctx context.Context, t client.NewTask) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, ch client.TaskChanges) (*models.Task, error)
	TrashTask(ctx context.Context, id int64) error
	TaskComments(ctx context.Context, taskID int64) ([]models.Comment, error)
	AddComment(ctx context.Context, taskID int64, text string) (*models.Comment, error)
}

const requestTimeout = 15 * time.Second

// call runs fn with a bounded context and turns a failure into an errMsg
func call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return fn(ctx)
	}
}

// errMsg reports a failed request to the view that issued it
type errMsg struct {
	err error
}

func (e errMsg) Error() string {
	return e.err.Error()
}

// SessionExpired tells the app to go back to the login view
type SessionExpired struct{}

// failed converts err into the message a view should receive
func failed(err error) tea.Msg {
	if errors.Is(err, client.ErrUnauthorized) {
		return SessionExpired{}
	}
	return errMsg{err: err}
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
