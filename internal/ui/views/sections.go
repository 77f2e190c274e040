package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/planx/internal/models"
	"github.com/tgienger/planx/internal/ui/keys"
	"github.com/tgienger/planx/internal/ui/styles"
)

type sectionItem struct {
	section models.Section
}

func (i sectionItem) Title() string { return i.section.SectionName }
func (i sectionItem) Description() string {
	return "created " + i.section.CreatedAt.Local().Format("Jan 2, 2006")
}
func (i sectionItem) FilterValue() string { return i.section.SectionName }

type sectionDelegate struct {
	styles *styles.Styles
	width  int
}

func (d sectionDelegate) Height() int                               { return 2 }
func (d sectionDelegate) Spacing() int                              { return 1 }
func (d sectionDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d sectionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	si, ok := item.(sectionItem)
	if !ok {
		return
	}

	width := max(d.width-4, 20)
	titleStyle := d.styles.ListItem.Width(width)
	descStyle := d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	if index == m.Index() {
		titleStyle = d.styles.ListSelected.Width(width)
		descStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(si.Title()), descStyle.Render(si.Description()))
}

type sectionsLoadedMsg struct {
	sections []models.Section
}

type sectionDeletedMsg struct{}

// SelectedSection opens the task list of a section
type SelectedSection struct {
	Section models.Section
}

// SectionListView lists sections and creates or deletes them
type SectionListView struct {
	api      API
	list     list.Model
	delegate *sectionDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	err      string

	creating bool
	newName  textinput.Model

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	showHelpPopup bool
}

func NewSectionListView(api API) *SectionListView {
	s := styles.NewStyles()

	newName := textinput.New()
	newName.Placeholder = "Section name"
	newName.CharLimit = 100

	delegate := &sectionDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Sections"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &SectionListView{
		api:      api,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		newName:  newName,
	}
}

func (v *SectionListView) Init() tea.Cmd {
	return v.loadSections()
}

func (v *SectionListView) loadSections() tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		sections, err := v.api.ListSections(ctx)
		if err != nil {
			return failed(err)
		}
		return sectionsLoadedMsg{sections: sections}
	})
}

func (v *SectionListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-7)
		return v, nil

	case sectionsLoadedMsg:
		items := make([]list.Item, len(msg.sections))
		for i, s := range msg.sections {
			items[i] = sectionItem{section: s}
		}
		v.list.SetItems(items)
		v.loaded = true
		return v, nil

	case sectionDeletedMsg:
		v.err = ""
		return v, v.loadSections()

	case errMsg:
		v.loaded = true
		v.err = msg.Error()
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		if v.creating {
			return v.updateCreating(msg)
		}
		// let the list's own filter input take every key while it is open
		if v.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.New):
			v.creating = true
			v.err = ""
			v.newName.Reset()
			v.newName.Focus()
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Refresh):
			return v, v.loadSections()
		case msg.String() == "?":
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(sectionItem); ok {
				return v, func() tea.Msg {
					return SelectedSection{Section: item.section}
				}
			}
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(sectionItem); ok {
				v.confirmingDelete = true
				v.deleteTargetID = item.section.ID
				v.deleteTargetName = item.section.SectionName
				return v, nil
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *SectionListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		id := v.deleteTargetID
		return v, call(func(ctx context.Context) tea.Msg {
			if err := v.api.DeleteSection(ctx, id); err != nil {
				return failed(err)
			}
			return sectionDeletedMsg{}
		})
	case "n", "N", "esc":
		v.confirmingDelete = false
	}
	return v, nil
}

func (v *SectionListView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		v.newName.Blur()
		return v, nil

	case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Save):
		name := strings.TrimSpace(v.newName.Value())
		if name == "" {
			return v, nil
		}
		v.creating = false
		v.newName.Blur()
		return v, call(func(ctx context.Context) tea.Msg {
			section, err := v.api.CreateSection(ctx, name)
			if err != nil {
				return failed(err)
			}
			return SelectedSection{Section: *section}
		})
	}

	var cmd tea.Cmd
	v.newName, cmd = v.newName.Update(msg)
	return v, cmd
}

func (v *SectionListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}
	if v.creating {
		return v.renderCreateForm()
	}
	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}
	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}

	content := v.list.View() + "\n" + v.renderStatus() + v.renderHelp()
	return styles.CenterView(content, v.width, v.height)
}

func (v *SectionListView) renderStatus() string {
	if v.err == "" {
		return ""
	}
	return v.styles.Error.Render(v.err) + "\n"
}

func (v *SectionListView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("No Sections"),
		"",
		s.TitleMuted.Render("Press 'n' to create the first section"),
		"",
		s.ButtonPrimary.Render(" New Section "),
		"",
		v.renderStatus(),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *SectionListView) renderCreateForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("New Section"),
		"",
		"Name:",
		s.InputFocused.Width(inputWidth).Render(v.newName.View()),
		"",
		s.TitleMuted.Render("↵: create • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *SectionListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return v.styles.Help.Render(
		fmt.Sprintf("%s open • %s new • %s del • %s filter • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *SectionListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      open section",
		s.HelpKey.Render("n") + "      new section",
		s.HelpKey.Render("d") + "      delete section",
		s.HelpKey.Render("/") + "      filter",
		s.HelpKey.Render("r") + "      refresh",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *SectionListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Section?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("%q can only be deleted once it holds no tasks.", v.deleteTargetName)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}
