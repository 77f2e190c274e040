package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/planx/internal/models"
	"github.com/tgienger/planx/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewLogin View = iota
	ViewSections
	ViewTasks
)

type App struct {
	api         views.API
	server      string
	user        *models.User
	currentView View
	login       *views.LoginView
	sectionList *views.SectionListView
	taskList    *views.TaskListView
	width       int
	height      int
}

// Creates a new application that starts at the login view
func NewApp(api views.API, server, email string) *App {
	return &App{
		api:         api,
		server:      server,
		currentView: ViewLogin,
		login:       views.NewLoginView(api, server, email),
		sectionList: views.NewSectionListView(api),
	}
}

func (a *App) Init() tea.Cmd {
	return a.login.Init()
}

// resize replays the last known window size to a freshly shown view
func (a *App) resize() tea.Cmd {
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: a.width, Height: a.height}
	}
}

func (a *App) openSection(section models.Section) tea.Cmd {
	a.currentView = ViewTasks
	a.taskList = views.NewTaskListView(a.api, section)
	return tea.Batch(a.taskList.Init(), a.resize())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// the section list persists behind the task view
		a.sectionList.Update(msg)
		a.login.Update(msg)

	case views.LoggedIn:
		user := msg.User
		a.user = &user
		a.currentView = ViewSections
		return a, tea.Batch(a.sectionList.Init(), a.resize())

	case views.SelectedSection:
		return a, a.openSection(msg.Section)

	case views.BackToSections:
		a.currentView = ViewSections
		a.taskList = nil
		return a, tea.Batch(a.sectionList.Init(), a.resize())

	case views.SessionExpired:
		email := ""
		if a.user != nil {
			email = a.user.Email
		}
		a.user = nil
		a.taskList = nil
		a.currentView = ViewLogin
		a.login = views.NewLoginView(a.api, a.server, email)
		return a, tea.Batch(a.login.Init(), a.resize())
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewLogin:
		_, cmd = a.login.Update(msg)
	case ViewSections:
		_, cmd = a.sectionList.Update(msg)
	case ViewTasks:
		if a.taskList != nil {
			_, cmd = a.taskList.Update(msg)
		}
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewLogin:
		return a.login.View()
	case ViewTasks:
		if a.taskList != nil {
			return a.taskList.View()
		}
	}
	return a.sectionList.View()
}
