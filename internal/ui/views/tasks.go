package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/planx/internal/client"
	"github.com/tgienger/planx/internal/models"
	"github.com/tgienger/planx/internal/ui/keys"
	"github.com/tgienger/planx/internal/ui/styles"
)

// FocusArea represents which part of the UI has focus
type FocusArea int

const (
	FocusBackButton FocusArea = iota
	FocusSearchInput
	FocusTagDropdown
	FocusTaskList
)

const (
	editFieldName = iota
	editFieldDesc
	editFieldTags
	editFieldSave
	editFieldCount
)

// TaskListView shows the open tasks of one section
type TaskListView struct {
	api     API
	section models.Section
	tasks   []models.Task // as loaded
	visible []models.Task // after search and tag filter
	tags    []models.Tag
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	loaded      bool
	err         string
	focus       FocusArea
	cursor      int
	scrollY     int
	searchInput textinput.Model
	selectedTag *int64 // nil = no filter

	tagDropdownOpen bool
	tagCursor       int

	// new or edited task
	editing       bool
	editingID     int64 // 0 when creating
	editName      textinput.Model
	editDesc      textarea.Model
	editTags      models.IDList
	editTagCursor int
	editFocusIdx  int

	assigningTags   bool
	assignTagCursor int
	assigningTaskID int64

	// read-only detail view
	viewingTask         bool
	viewingTaskID       int64
	viewTaskComments    []models.Comment
	commentInput        textarea.Model
	commentInputFocused bool

	confirmingDelete bool
	deleteTargetID   int64
	deleteTargetName string

	showHelpPopup bool
}

func NewTaskListView(api API, section models.Section) *TaskListView {
	search := textinput.New()
	search.Placeholder = "Search..."
	search.CharLimit = 100

	editName := textinput.New()
	editName.Placeholder = "Task name"
	editName.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 2000
	editDesc.SetWidth(50)
	editDesc.SetHeight(4)
	editDesc.ShowLineNumbers = false

	commentInput := textarea.New()
	commentInput.Placeholder = "Add a comment..."
	commentInput.CharLimit = 2000
	commentInput.SetWidth(50)
	commentInput.SetHeight(3)
	commentInput.ShowLineNumbers = false

	return &TaskListView{
		api:          api,
		section:      section,
		styles:       styles.NewStyles(),
		keys:         keys.DefaultKeyMap(),
		focus:        FocusTaskList,
		searchInput:  search,
		editName:     editName,
		editDesc:     editDesc,
		commentInput: commentInput,
	}
}

// BackToSections signals to go back to the section list
type BackToSections struct{}

type tasksLoadedMsg struct {
	tasks []models.Task
}

type tagsLoadedMsg struct {
	tags []models.Tag
}

type commentsLoadedMsg struct {
	taskID   int64
	comments []models.Comment
}

// taskSavedMsg carries a task the server just created or changed
type taskSavedMsg struct {
	task models.Task
}

type taskTrashedMsg struct {
	id int64
}

func (v *TaskListView) Init() tea.Cmd {
	return tea.Batch(v.loadTasks(), v.loadTags())
}

func (v *TaskListView) loadTasks() tea.Cmd {
	sectionID := v.section.ID
	return call(func(ctx context.Context) tea.Msg {
		tasks, err := v.api.ListTasks(ctx, client.TaskQuery{SectionID: sectionID})
		if err != nil {
			return failed(err)
		}
		return tasksLoadedMsg{tasks: tasks}
	})
}

func (v *TaskListView) loadTags() tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		tags, err := v.api.ListTags(ctx)
		if err != nil {
			return failed(err)
		}
		return tagsLoadedMsg{tags: tags}
	})
}

func (v *TaskListView) loadComments(taskID int64) tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		comments, err := v.api.TaskComments(ctx, taskID)
		if err != nil {
			return failed(err)
		}
		return commentsLoadedMsg{taskID: taskID, comments: comments}
	})
}

func (v *TaskListView) updateTask(id int64, ch client.TaskChanges) tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		task, err := v.api.UpdateTask(ctx, id, ch)
		if err != nil {
			return failed(err)
		}
		return taskSavedMsg{task: *task}
	})
}

// applyFilter rebuilds the visible list from the search text and tag filter
func (v *TaskListView) applyFilter() {
	search := strings.ToLower(strings.TrimSpace(v.searchInput.Value()))
	v.visible = v.visible[:0]
	for _, t := range v.tasks {
		if v.selectedTag != nil && !t.TagIDs.Contains(*v.selectedTag) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.TaskName), search) &&
			!strings.Contains(strings.ToLower(t.IDWithPrefix), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		v.visible = append(v.visible, t)
	}
	if v.cursor >= len(v.visible) {
		v.cursor = max(0, len(v.visible)-1)
	}
	v.ensureVisible()
}

// current is the task under the cursor
func (v *TaskListView) current() (models.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.visible) {
		return models.Task{}, false
	}
	return v.visible[v.cursor], true
}

func (v *TaskListView) taskByID(id int64) (models.Task, bool) {
	for _, t := range v.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

func (v *TaskListView) tagName(id int64) string {
	for _, t := range v.tags {
		if t.ID == id {
			return t.TagName
		}
	}
	return fmt.Sprintf("#%d", id)
}

func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		inputWidth := clamp(contentWidth-10, 20, 50)
		v.editDesc.SetWidth(inputWidth)
		v.commentInput.SetWidth(inputWidth)
		return v, nil

	case tasksLoadedMsg:
		v.loaded = true
		v.tasks = msg.tasks
		v.applyFilter()
		if v.assigningTags {
			if _, ok := v.taskByID(v.assigningTaskID); !ok {
				v.assigningTags = false
				v.assigningTaskID = 0
			}
		}
		return v, nil

	case tagsLoadedMsg:
		v.tags = msg.tags
		return v, nil

	case commentsLoadedMsg:
		if v.viewingTask && msg.taskID == v.viewingTaskID {
			v.viewTaskComments = msg.comments
		}
		return v, nil

	case taskSavedMsg:
		v.err = ""
		replaced := false
		for i := range v.tasks {
			if v.tasks[i].ID == msg.task.ID {
				v.tasks[i] = msg.task
				replaced = true
			}
		}
		if !replaced && msg.task.SectionID == v.section.ID {
			v.tasks = append([]models.Task{msg.task}, v.tasks...)
		}
		v.applyFilter()
		return v, nil

	case taskTrashedMsg:
		v.err = ""
		kept := v.tasks[:0]
		for _, t := range v.tasks {
			if t.ID != msg.id {
				kept = append(kept, t)
			}
		}
		v.tasks = kept
		v.viewingTask = false
		v.applyFilter()
		return v, nil

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
		if v.editing {
			return v.updateEditing(msg)
		}
		if v.viewingTask {
			return v.updateViewingTask(msg)
		}
		if v.assigningTags {
			return v.updateAssigningTags(msg)
		}
		if v.tagDropdownOpen {
			return v.updateTagDropdown(msg)
		}
		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// typing in the search box never triggers hotkeys
	if v.focus == FocusSearchInput {
		switch {
		case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
			v.searchInput.Blur()
			v.focus = FocusTaskList
			return v, nil
		default:
			var cmd tea.Cmd
			v.searchInput, cmd = v.searchInput.Update(msg)
			v.applyFilter()
			return v, cmd
		}
	}

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return BackToSections{} }

	case key.Matches(msg, v.keys.Tab):
		v.cycleFocus(1)
		return v, nil

	case msg.String() == "shift+tab":
		v.cycleFocus(-1)
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.focus == FocusTaskList && v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.focus == FocusTaskList && v.cursor < len(v.visible)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.focus {
		case FocusBackButton:
			return v, func() tea.Msg { return BackToSections{} }
		case FocusTagDropdown:
			v.tagDropdownOpen = true
			v.tagCursor = 0
			return v, nil
		case FocusTaskList:
			if task, ok := v.current(); ok {
				v.viewingTask = true
				v.viewingTaskID = task.ID
				v.viewTaskComments = nil
				return v, v.loadComments(task.ID)
			}
		}
		return v, nil

	case msg.String() == "e":
		if task, ok := v.current(); ok && v.focus == FocusTaskList {
			v.startEditTask(task)
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.startNewTask()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Status):
		if task, ok := v.current(); ok && v.focus == FocusTaskList {
			next := task.Status.Next()
			return v, v.updateTask(task.ID, client.TaskChanges{Status: &next})
		}
		return v, nil

	case key.Matches(msg, v.keys.Delete):
		if task, ok := v.current(); ok && v.focus == FocusTaskList {
			v.confirmDelete(task)
		}
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.focus = FocusSearchInput
		v.searchInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Filter):
		v.focus = FocusTagDropdown
		v.tagDropdownOpen = true
		v.tagCursor = 0
		return v, nil

	case key.Matches(msg, v.keys.Tags):
		if task, ok := v.current(); ok && v.focus == FocusTaskList {
			v.assigningTags = true
			v.assignTagCursor = 0
			v.assigningTaskID = task.ID
		}
		return v, nil

	case key.Matches(msg, v.keys.Refresh):
		return v, tea.Batch(v.loadTasks(), v.loadTags())

	case msg.String() == "?":
		v.showHelpPopup = true
		return v, nil
	}

	return v, nil
}

func (v *TaskListView) confirmDelete(task models.Task) {
	v.confirmingDelete = true
	v.deleteTargetID = task.ID
	v.deleteTargetName = task.TaskName
}

func (v *TaskListView) updateTagDropdown(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.tagDropdownOpen = false
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.tagCursor > 0 {
			v.tagCursor--
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.tagCursor < len(v.tags) { // +1 for "All"
			v.tagCursor++
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.tagCursor == 0 {
			v.selectedTag = nil
		} else {
			tagID := v.tags[v.tagCursor-1].ID
			v.selectedTag = &tagID
		}
		v.tagDropdownOpen = false
		v.cursor = 0
		v.scrollY = 0
		v.applyFilter()
		return v, nil
	}

	return v, nil
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		id := v.deleteTargetID
		return v, call(func(ctx context.Context) tea.Msg {
			if err := v.api.TrashTask(ctx, id); err != nil {
				return failed(err)
			}
			return taskTrashedMsg{id: id}
		})
	case "n", "N", "esc":
		v.confirmingDelete = false
	}
	return v, nil
}

func (v *TaskListView) updateViewingTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	task, ok := v.taskByID(v.viewingTaskID)
	if !ok {
		v.viewingTask = false
		return v, nil
	}

	if v.commentInputFocused {
		switch {
		case key.Matches(msg, v.keys.Back):
			v.commentInputFocused = false
			v.commentInput.Blur()
			return v, nil
		case key.Matches(msg, v.keys.Save):
			return v, v.submitComment(task.ID)
		default:
			var cmd tea.Cmd
			v.commentInput, cmd = v.commentInput.Update(msg)
			return v, cmd
		}
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		v.viewingTask = false
		v.viewTaskComments = nil
		return v, nil
	case msg.String() == "e":
		v.viewingTask = false
		v.viewTaskComments = nil
		v.startEditTask(task)
		return v, textinput.Blink
	case key.Matches(msg, v.keys.Status):
		next := task.Status.Next()
		return v, v.updateTask(task.ID, client.TaskChanges{Status: &next})
	case key.Matches(msg, v.keys.Delete):
		v.confirmDelete(task)
		return v, nil
	case key.Matches(msg, v.keys.Tags):
		v.viewingTask = false
		v.viewTaskComments = nil
		v.assigningTags = true
		v.assignTagCursor = 0
		v.assigningTaskID = task.ID
		return v, nil
	case key.Matches(msg, v.keys.Comment), msg.String() == "a":
		v.commentInputFocused = true
		v.commentInput.Focus()
		return v, textarea.Blink
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	}
	return v, nil
}

// toggleTag adds or removes tagID from the task's tag list
func toggleTag(ids models.IDList, tagID int64) models.IDList {
	if ids.Contains(tagID) {
		return ids.Without(tagID)
	}
	return append(append(models.IDList{}, ids...), tagID)
}

func (v *TaskListView) updateAssigningTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.assigningTags = false
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.assignTagCursor > 0 {
			v.assignTagCursor--
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.assignTagCursor < len(v.tags)-1 {
			v.assignTagCursor++
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter), msg.String() == " ":
		task, ok := v.taskByID(v.assigningTaskID)
		if !ok || v.assignTagCursor >= len(v.tags) {
			return v, nil
		}
		ids := toggleTag(task.TagIDs, v.tags[v.assignTagCursor].ID)
		return v, v.updateTask(task.ID, client.TaskChanges{TagIDs: &ids})
	}

	return v, nil
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		v.editFocusIdx = (v.editFocusIdx + 1) % editFieldCount
		v.updateEditFocus()
		return v, nil

	case msg.String() == "shift+tab":
		v.editFocusIdx = (v.editFocusIdx + editFieldCount - 1) % editFieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.editFocusIdx {
		case editFieldName:
			v.editFocusIdx++
			v.updateEditFocus()
			return v, nil
		case editFieldTags:
			v.toggleEditTag()
			return v, nil
		case editFieldSave:
			return v, v.saveTask()
		}
		// enter inserts a newline in the description

	case msg.String() == " ":
		if v.editFocusIdx == editFieldTags {
			v.toggleEditTag()
			return v, nil
		}

	case msg.String() == "up":
		if v.editFocusIdx == editFieldTags && v.editTagCursor > 0 {
			v.editTagCursor--
			return v, nil
		}

	case msg.String() == "down":
		if v.editFocusIdx == editFieldTags && v.editTagCursor < len(v.tags)-1 {
			v.editTagCursor++
			return v, nil
		}
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case editFieldName:
		v.editName, cmd = v.editName.Update(msg)
	case editFieldDesc:
		v.editDesc, cmd = v.editDesc.Update(msg)
	}
	return v, cmd
}

func (v *TaskListView) toggleEditTag() {
	if v.editTagCursor >= len(v.tags) {
		return
	}
	v.editTags = toggleTag(v.editTags, v.tags[v.editTagCursor].ID)
}

func (v *TaskListView) cycleFocus(dir int) {
	v.searchInput.Blur()
	v.focus = FocusArea((int(v.focus) + dir + 4) % 4)
	if v.focus == FocusSearchInput {
		v.searchInput.Focus()
	}
}

// visibleItems is how many two-line task rows fit on screen
func (v *TaskListView) visibleItems() int {
	return max((v.height-12)/3, 1)
}

func (v *TaskListView) ensureVisible() {
	n := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+n {
		v.scrollY = v.cursor - n + 1
	}
}

func (v *TaskListView) startNewTask() {
	v.editing = true
	v.editingID = 0
	v.editFocusIdx = editFieldName
	v.editTagCursor = 0
	v.editTags = models.IDList{}
	if v.selectedTag != nil {
		v.editTags = models.IDList{*v.selectedTag}
	}
	v.editName.Reset()
	v.editDesc.Reset()
	v.updateEditFocus()
}

func (v *TaskListView) startEditTask(task models.Task) {
	v.editing = true
	v.editingID = task.ID
	v.editFocusIdx = editFieldName
	v.editTagCursor = 0
	v.editTags = append(models.IDList{}, task.TagIDs...)
	v.editName.SetValue(task.TaskName)
	v.editName.CursorEnd()
	v.editDesc.SetValue(task.Description)
	v.updateEditFocus()
}

func (v *TaskListView) updateEditFocus() {
	v.editName.Blur()
	v.editDesc.Blur()
	switch v.editFocusIdx {
	case editFieldName:
		v.editName.Focus()
	case editFieldDesc:
		v.editDesc.Focus()
	}
}

func (v *TaskListView) saveTask() tea.Cmd {
	name := strings.TrimSpace(v.editName.Value())
	if name == "" {
		v.editing = false
		return nil
	}
	desc := strings.TrimSpace(v.editDesc.Value())
	tags := append(models.IDList{}, v.editTags...)
	v.editing = false

	if v.editingID != 0 {
		return v.updateTask(v.editingID, client.TaskChanges{
			TaskName:    &name,
			Description: &desc,
			TagIDs:      &tags,
		})
	}

	sectionID := v.section.ID
	return call(func(ctx context.Context) tea.Msg {
		task, err := v.api.CreateTask(ctx, client.NewTask{
			TaskName:    name,
			Description: desc,
			SectionID:   sectionID,
			TagIDs:      tags,
		})
		if err != nil {
			return failed(err)
		}
		return taskSavedMsg{task: *task}
	})
}

func (v *TaskListView) submitComment(taskID int64) tea.Cmd {
	text := strings.TrimSpace(v.commentInput.Value())
	if text == "" {
		return nil
	}
	v.commentInput.Reset()
	v.commentInputFocused = false
	v.commentInput.Blur()

	return call(func(ctx context.Context) tea.Msg {
		if _, err := v.api.AddComment(ctx, taskID, text); err != nil {
			return failed(err)
		}
		comments, err := v.api.TaskComments(ctx, taskID)
		if err != nil {
			return failed(err)
		}
		return commentsLoadedMsg{taskID: taskID, comments: comments}
	})
}

func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.editing {
		return v.renderEditForm()
	}

	if v.viewingTask {
		return v.renderTaskView()
	}

	if v.assigningTags {
		return v.renderTagAssignment()
	}

	var b strings.Builder

	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	b.WriteString("\n")
	if v.err != "" {
		b.WriteString(v.styles.Error.Render(v.err))
		b.WriteString("\n")
	}
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	isNarrow := contentWidth < 60

	searchStyle := s.Input
	if v.focus == FocusSearchInput {
		searchStyle = s.InputFocused
	}
	searchWidth := clamp(contentWidth-8, 10, 30)
	searchBox := searchStyle.Width(searchWidth).Render(v.searchInput.View())

	tagStyle := s.Button
	if v.focus == FocusTagDropdown {
		tagStyle = s.ButtonFocused
	}
	tagLabel := "All"
	if v.selectedTag != nil {
		tagLabel = v.tagName(*v.selectedTag)
	}
	if !isNarrow {
		tagLabel = "Tags: " + tagLabel
	}
	tagBtn := tagStyle.Render(tagLabel + " ▼")

	title := s.Title.Render(v.section.SectionName)

	var header string
	if isNarrow {
		header = lipgloss.JoinVertical(lipgloss.Left, searchBox, tagBtn)
	} else {
		backStyle := s.Button
		if v.focus == FocusBackButton {
			backStyle = s.ButtonFocused
		}
		backBtn := backStyle.Render("← Sections")

		header = lipgloss.JoinHorizontal(lipgloss.Center,
			backBtn, "  ", searchBox, "  ", tagBtn,
		)
	}

	dropdown := ""
	if v.tagDropdownOpen {
		dropdown = "\n" + v.renderTagDropdown()
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, header+dropdown)
}

func (v *TaskListView) renderTagDropdown() string {
	s := v.styles
	var items []string

	allStyle := s.ListItem
	if v.tagCursor == 0 {
		allStyle = s.ListSelected
	}
	items = append(items, allStyle.Render("All"))

	for i, tag := range v.tags {
		itemStyle := s.ListItem
		if v.tagCursor == i+1 {
			itemStyle = s.ListSelected
		}
		dot := lipgloss.NewStyle().Foreground(styles.TagColor(tag.ID)).Render("●")
		items = append(items, itemStyle.Render(dot+" "+tag.TagName))
	}

	return s.FilterBar.Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles

	if !v.loaded {
		return s.TitleMuted.Render("Loading...")
	}
	if len(v.visible) == 0 {
		if len(v.tasks) > 0 {
			return s.TitleMuted.Render("No tasks match.")
		}
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	var items []string
	endIdx := min(v.scrollY+v.visibleItems(), len(v.visible))
	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(v.visible[i], i == v.cursor && v.focus == FocusTaskList))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTags(ids models.IDList) string {
	if len(ids) == 0 {
		return v.styles.TitleMuted.Render("no tags")
	}
	var out []string
	for _, id := range ids {
		out = append(out, lipgloss.NewStyle().Foreground(styles.TagColor(id)).Render(v.tagName(id)))
	}
	return strings.Join(out, " ")
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	status := s.TaskStatus.Foreground(styles.StatusColor(task.Status)).Render(string(task.Status))
	titleLine := s.TaskID.Render(task.IDWithPrefix) + " " + task.TaskName + "  " + status
	tagsLine := v.renderTags(task.TagIDs)
	if task.DueDate != nil {
		tagsLine += s.TitleMuted.Render("  due " + task.DueDate.Local().Format("Jan 2"))
	}

	lineStyle := s.ListItem.Width(width)
	if selected {
		lineStyle = s.ListSelected.Width(width)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lineStyle.Render(titleLine), lineStyle.Render(tagsLine)) + "\n"
}

func (v *TaskListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	if v.editingID != 0 {
		formTitle = "Edit Task"
	}

	nameStyle := s.Input
	descStyle := s.Input
	tagsStyle := s.Input
	btnStyle := s.Button

	switch v.editFocusIdx {
	case editFieldName:
		nameStyle = s.InputFocused
	case editFieldDesc:
		descStyle = s.InputFocused
	case editFieldTags:
		tagsStyle = s.InputFocused
	case editFieldSave:
		btnStyle = s.ButtonFocused
	}

	inputWidth := clamp(contentWidth-6, 20, 50)

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(formTitle),
		"",
		"Name:",
		nameStyle.Width(inputWidth).Render(v.editName.View()),
		"",
		"Description:",
		descStyle.Render(v.editDesc.View()),
		"",
		"Tags:",
		v.renderTagChecklist(v.editTags, v.editFocusIdx == editFieldTags, v.editTagCursor, tagsStyle.Width(inputWidth)),
		"",
		btnStyle.Render(" Save "),
		"",
		s.TitleMuted.Render("Tab: next • ↑↓: select tag • Space/↵: toggle • Ctrl+S: save • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

// renderTagChecklist draws every tag with a checkbox, highlighting the cursor when active
func (v *TaskListView) renderTagChecklist(checked models.IDList, active bool, cursor int, box lipgloss.Style) string {
	s := v.styles
	if len(v.tags) == 0 {
		return box.Render(s.TitleMuted.Render("No tags available"))
	}

	var items []string
	for i, tag := range v.tags {
		checkbox := "[ ]"
		if checked.Contains(tag.ID) {
			checkbox = "[x]"
		}
		dot := lipgloss.NewStyle().Foreground(styles.TagColor(tag.ID)).Render("●")
		itemStyle := s.ListItem
		if active && i == cursor {
			itemStyle = s.ListSelected
		}
		items = append(items, itemStyle.Render(checkbox+" "+dot+" "+tag.TagName))
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (v *TaskListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	return v.styles.Help.Render(
		fmt.Sprintf("%s view • %s edit • %s new • %s status • %s del • %s search • %s filter • %s tags • %s back • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("s"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("f"),
			v.styles.HelpKey.Render("t"),
			v.styles.HelpKey.Render("esc"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      view task",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("s") + "      next status",
		s.HelpKey.Render("d") + "      move to trash",
		s.HelpKey.Render("/") + "      search",
		s.HelpKey.Render("f") + "      filter by tag",
		s.HelpKey.Render("t") + "      assign tags",
		s.HelpKey.Render("r") + "      refresh",
		s.HelpKey.Render("esc") + "    back",
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

func (v *TaskListView) renderTagAssignment() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	task, ok := v.taskByID(v.assigningTaskID)
	if !ok {
		return ""
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Assign Tags to: "+task.TaskName),
		"",
		v.renderTagChecklist(task.TagIDs, true, v.assignTagCursor, lipgloss.NewStyle()),
		"",
		s.TitleMuted.Render("Enter/Space: toggle • Esc: done"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.FilterBar.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Move Task to Trash?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("%q can be restored until it is purged.", v.deleteTargetName)),
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

func (v *TaskListView) renderComment(c models.Comment, width int) string {
	s := v.styles
	lines := []string{s.TitleMuted.Render(c.CreatedAt.Local().Format("Jan 2, 2006 3:04 PM"))}
	if c.TextCommentForViewTask != "" {
		lines = append(lines, lipgloss.NewStyle().Width(width).Render(c.TextCommentForViewTask))
	}
	for _, link := range c.CommentText {
		lines = append(lines, s.Link.Render(link))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *TaskListView) renderTaskView() string {
	task, ok := v.taskByID(v.viewingTaskID)
	if !ok {
		return ""
	}

	s := v.styles
	textWidth := clamp(styles.ContentWidth(v.width)-10, 20, 70)
	labelStyle := s.TitleMuted

	descText := task.Description
	if descText == "" {
		descText = s.TitleMuted.Render("No description")
	}
	dueText := s.TitleMuted.Render("None")
	if task.DueDate != nil {
		dueText = task.DueDate.Local().Format("Mon Jan 2, 2006")
	}

	var commentsContent string
	if len(v.viewTaskComments) == 0 {
		commentsContent = s.TitleMuted.Render("No comments yet")
	} else {
		var commentLines []string
		for _, c := range v.viewTaskComments {
			commentLines = append(commentLines, v.renderComment(c, textWidth))
		}
		commentsContent = lipgloss.JoinVertical(lipgloss.Left, commentLines...)
	}

	commentInputStyle := s.Input
	if v.commentInputFocused {
		commentInputStyle = s.InputFocused
	}

	var helpText string
	if v.commentInputFocused {
		helpText = s.Help.Render(
			fmt.Sprintf("%s submit • %s cancel",
				s.HelpKey.Render("ctrl+s"),
				s.HelpKey.Render("esc"),
			),
		)
	} else {
		helpText = s.Help.Render(
			fmt.Sprintf("%s edit • %s status • %s tags • %s trash • %s comment • %s back",
				s.HelpKey.Render("e"),
				s.HelpKey.Render("s"),
				s.HelpKey.Render("t"),
				s.HelpKey.Render("d"),
				s.HelpKey.Render("c"),
				s.HelpKey.Render("esc"),
			),
		)
	}

	sections := []string{
		s.TaskID.Render(task.IDWithPrefix) + " " + s.Title.Render(task.TaskName),
		"",
		labelStyle.Render("Status"),
		s.TaskStatus.Foreground(styles.StatusColor(task.Status)).Render(string(task.Status)),
		"",
		labelStyle.Render("Platform"),
		string(task.PlatformType),
		"",
		labelStyle.Render("Due"),
		dueText,
		"",
		labelStyle.Render("Tags"),
		v.renderTags(task.TagIDs),
		"",
		labelStyle.Render("Description"),
		lipgloss.NewStyle().Width(textWidth).Render(descText),
	}
	if task.SubTask != "" {
		sections = append(sections, "",
			labelStyle.Render("Subtasks"),
			lipgloss.NewStyle().Width(textWidth).Render(task.SubTask),
		)
	}
	sections = append(sections, "",
		labelStyle.Render("Comments"),
		commentsContent,
		"",
		commentInputStyle.Render(v.commentInput.View()),
	)
	if v.err != "" {
		sections = append(sections, s.Error.Render(v.err))
	}
	sections = append(sections, "", helpText)

	padded := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return styles.CenterView(padded, v.width, v.height)
}
