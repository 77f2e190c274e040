package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/planx/internal/models"
	"github.com/tgienger/planx/internal/ui/keys"
	"github.com/tgienger/planx/internal/ui/styles"
)

// LoggedIn is sent once the server accepted the credentials
type LoggedIn struct {
	User models.User
}

// LoginView asks for email and password
type LoginView struct {
	api      API
	styles   *styles.Styles
	keys     keys.KeyMap
	server   string
	email    textinput.Model
	password textinput.Model
	focusIdx int // 0=email, 1=password, 2=submit
	busy     bool
	err      string
	width    int
	height   int
}

func NewLoginView(api API, server, email string) *LoginView {
	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.CharLimit = 200
	emailInput.SetValue(email)

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 200
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	v := &LoginView{
		api:      api,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		server:   server,
		email:    emailInput,
		password: password,
	}
	if email != "" {
		v.focusIdx = 1
	}
	v.updateFocus()
	return v
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case errMsg:
		v.busy = false
		v.err = msg.Error()
		return v, nil

	case tea.KeyMsg:
		if v.busy {
			return v, nil
		}
		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit
		case key.Matches(msg, v.keys.Back):
			return v, tea.Quit
		case msg.String() == "shift+tab":
			v.focusIdx = (v.focusIdx + 2) % 3
			v.updateFocus()
			return v, nil
		case key.Matches(msg, v.keys.Tab):
			v.focusIdx = (v.focusIdx + 1) % 3
			v.updateFocus()
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if v.focusIdx == 0 {
				v.focusIdx = 1
				v.updateFocus()
				return v, nil
			}
			return v, v.submit()
		}
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.email, cmd = v.email.Update(msg)
	case 1:
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v *LoginView) submit() tea.Cmd {
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()
	if email == "" || password == "" {
		v.err = "Email and password are required"
		return nil
	}
	v.busy = true
	v.err = ""
	return call(func(ctx context.Context) tea.Msg {
		u, err := v.api.Login(ctx, email, password)
		if err != nil {
			return errMsg{err: err}
		}
		return LoggedIn{User: *u}
	})
}

func (v *LoginView) updateFocus() {
	v.email.Blur()
	v.password.Blur()
	switch v.focusIdx {
	case 0:
		v.email.Focus()
	case 1:
		v.password.Focus()
	}
}

func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	emailStyle := s.Input
	passwordStyle := s.Input
	btnStyle := s.Button
	switch v.focusIdx {
	case 0:
		emailStyle = s.InputFocused
	case 1:
		passwordStyle = s.InputFocused
	case 2:
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)
	status := s.TitleMuted.Render(v.server)
	if v.busy {
		status = s.TitleMuted.Render("Signing in...")
	} else if v.err != "" {
		status = s.Error.Render(v.err)
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Plan-X"),
		"",
		"Email:",
		emailStyle.Width(inputWidth).Render(v.email.View()),
		"",
		"Password:",
		passwordStyle.Width(inputWidth).Render(v.password.View()),
		"",
		btnStyle.Render(" Sign in "),
		"",
		status,
		"",
		s.TitleMuted.Render("Tab: next • ↵: sign in • Esc: quit"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
