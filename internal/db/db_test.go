package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/planx/internal/config"
	"github.com/tgienger/planx/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(context.Background(), config.DatabaseConfig{
		Driver:  "sqlite3",
		DSN:     filepath.Join(t.TempDir(), "planx.db"),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func seedSection(t *testing.T, d *DB) *models.Section {
	t.Helper()
	s, err := d.CreateSection(context.Background(), "Backend")
	require.NoError(t, err)
	return s
}

func seedUser(t *testing.T, d *DB, email string) *models.User {
	t.Helper()
	u, err := d.CreateUser(context.Background(), &models.User{
		UserName:     "user " + email,
		Email:        email,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_foreign_keys=on&_busy_timeout=5000", sqliteDSN("a.db"))
	assert.Equal(t, "a.db?mode=rwc&_foreign_keys=on&_busy_timeout=5000", sqliteDSN("a.db?mode=rwc"))
}

func TestOpenIsIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "planx.db")
	cfg := config.DatabaseConfig{Driver: "sqlite3", DSN: dsn}

	first, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	_, err = first.CreateSection(context.Background(), "kept")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer second.Close()
	sections, err := second.ListSections(context.Background())
	require.NoError(t, err)
	assert.Len(t, sections, 1)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	section := seedSection(t, d)

	u := seedUser(t, d, "Ada@Example.com")
	assert.Equal(t, models.DefaultUserType, u.UserType)
	assert.NotZero(t, u.CreatedAt)

	got, err := d.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = d.CreateUser(ctx, &models.User{UserName: "dup", Email: "Ada@Example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrConflict)

	bio := "likes tests"
	updated, err := d.UpdateUser(ctx, u.ID, UserUpdate{Bio: &bio, SectionID: &section.ID})
	require.NoError(t, err)
	assert.Equal(t, bio, updated.Bio)
	require.NotNil(t, updated.SectionID)
	assert.Equal(t, section.ID, *updated.SectionID)
	assert.Equal(t, u.UserName, updated.UserName)

	exp := time.Now().Add(10 * time.Minute)
	require.NoError(t, d.SetOTP(ctx, u.ID, "123456", exp))
	got, err = d.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "123456", got.OTP)
	require.NotNil(t, got.OTPExpiresAt)
	assert.WithinDuration(t, exp, *got.OTPExpiresAt, time.Second)

	for i := 1; i < MaxOTPAttempts; i++ {
		require.NoError(t, d.RecordOTPFailure(ctx, u.ID))
	}
	got, err = d.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, MaxOTPAttempts-1, got.OTPAttempts)
	assert.Equal(t, "123456", got.OTP)
	require.NoError(t, d.RecordOTPFailure(ctx, u.ID))
	got, err = d.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.OTP, "the last allowed miss clears the code")
	assert.Nil(t, got.OTPExpiresAt)
	assert.ErrorIs(t, d.RecordOTPFailure(ctx, 999), ErrNotFound)

	require.NoError(t, d.SetOTP(ctx, u.ID, "123456", exp))
	require.NoError(t, d.UpdatePassword(ctx, u.ID, "newhash"))
	got, err = d.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.PasswordHash)
	assert.Empty(t, got.OTP)
	assert.Nil(t, got.OTPExpiresAt)

	users, err := d.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, d.DeleteUser(ctx, u.ID))
	_, err = d.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, d.DeleteUser(ctx, u.ID), ErrNotFound)

	ok, err := d.UserExists(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSectionsAndTags(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	s := seedSection(t, d)
	renamed, err := d.UpdateSection(ctx, s.ID, "Frontend")
	require.NoError(t, err)
	assert.Equal(t, "Frontend", renamed.SectionName)

	_, err = d.UpdateSection(ctx, 999, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.CreateTask(ctx, &models.Task{TaskName: "t", SectionID: s.ID})
	require.NoError(t, err)
	assert.ErrorIs(t, d.DeleteSection(ctx, s.ID), ErrConflict)

	empty, err := d.CreateSection(ctx, "Empty")
	require.NoError(t, err)
	require.NoError(t, d.DeleteSection(ctx, empty.ID))

	bug, err := d.CreateTag(ctx, "bug")
	require.NoError(t, err)
	ui, err := d.CreateTag(ctx, "ui")
	require.NoError(t, err)
	_, err = d.CreateTag(ctx, "api")
	require.NoError(t, err)

	all, err := d.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "api", all[0].TagName)

	some, err := d.ListTags(ctx, bug.ID, ui.ID)
	require.NoError(t, err)
	assert.Len(t, some, 2)

	none, err := d.ListTags(ctx, []int64{}...)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, d.DeleteTag(ctx, bug.ID))
	assert.ErrorIs(t, d.DeleteTag(ctx, bug.ID), ErrNotFound)
}

func TestCreateTaskAssignsDisplayID(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	s := seedSection(t, d)

	first, err := d.CreateTask(ctx, &models.Task{TaskName: "one", SectionID: s.ID})
	require.NoError(t, err)
	second, err := d.CreateTask(ctx, &models.Task{TaskName: "two", SectionID: s.ID})
	require.NoError(t, err)

	assert.Equal(t, models.DisplayID(first.ID), first.IDWithPrefix)
	assert.Equal(t, models.DisplayID(second.ID), second.IDWithPrefix)
	assert.NotEqual(t, first.IDWithPrefix, second.IDWithPrefix)
	assert.Equal(t, models.StatusNotStarted, first.Status)
	assert.Equal(t, models.PlatformIndependent, first.PlatformType)
	assert.Equal(t, models.IDList{}, first.TagIDs)
}

func TestCreateTaskRejectsMissingSection(t *testing.T) {
	d := openTestDB(t)
	_, err := d.CreateTask(context.Background(), &models.Task{TaskName: "orphan", SectionID: 42})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListTasksFilters(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	s := seedSection(t, d)
	other, err := d.CreateSection(ctx, "Other")
	require.NoError(t, err)
	u := seedUser(t, d, "a@example.com")

	due := time.Now().Add(48 * time.Hour)
	_, err = d.CreateTask(ctx, &models.Task{TaskName: "assigned", SectionID: s.ID, TaskAssignedToID: &u.ID, DueDate: &due})
	require.NoError(t, err)
	_, err = d.CreateTask(ctx, &models.Task{TaskName: "progress", SectionID: s.ID, Status: models.StatusInProgress})
	require.NoError(t, err)
	_, err = d.CreateTask(ctx, &models.Task{TaskName: "elsewhere", SectionID: other.ID})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter TaskFilter
		want   []string
	}{
		{name: "all", filter: TaskFilter{}, want: []string{"assigned", "elsewhere", "progress"}},
		{name: "section", filter: TaskFilter{SectionID: &s.ID}, want: []string{"assigned", "progress"}},
		{name: "assignee", filter: TaskFilter{AssignedTo: &u.ID}, want: []string{"assigned"}},
		{name: "status", filter: TaskFilter{Status: models.StatusInProgress}, want: []string{"progress"}},
		{name: "deleted", filter: TaskFilter{Deleted: true}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := d.ListTasks(ctx, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, task := range tasks {
				names = append(names, task.TaskName)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}

	tasks, err := d.ListTasks(ctx, TaskFilter{SectionID: &s.ID})
	require.NoError(t, err)
	assert.Equal(t, "assigned", tasks[0].TaskName, "tasks with a due date come first")
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	s := seedSection(t, d)
	u := seedUser(t, d, "a@example.com")
	due := time.Now().Add(time.Hour)

	task, err := d.CreateTask(ctx, &models.Task{TaskName: "t", SectionID: s.ID, TaskAssignedToID: &u.ID, DueDate: &due})
	require.NoError(t, err)

	name := "renamed"
	status := models.StatusCompleted
	tags := models.IDList{3, 4}
	updated, err := d.UpdateTask(ctx, task.ID, TaskUpdate{
		TaskName:      &name,
		Status:        &status,
		TagIDs:        &tags,
		ClearDueDate:  true,
		ClearAssignee: true,
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.TaskName)
	assert.Equal(t, status, updated.Status)
	assert.Equal(t, tags, updated.TagIDs)
	assert.Nil(t, updated.DueDate)
	assert.Nil(t, updated.TaskAssignedToID)
	assert.Equal(t, task.IDWithPrefix, updated.IDWithPrefix)

	_, err = d.UpdateTask(ctx, 999, TaskUpdate{TaskName: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSoftDeleteRestoreAndPurge(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	s := seedSection(t, d)

	task, err := d.CreateTask(ctx, &models.Task{TaskName: "t", SectionID: s.ID})
	require.NoError(t, err)

	require.NoError(t, d.SoftDeleteTask(ctx, task.ID))
	assert.ErrorIs(t, d.SoftDeleteTask(ctx, task.ID), ErrNotFound)

	ok, err := d.TaskExists(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := d.ListTasks(ctx, TaskFilter{Deleted: true})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.True(t, deleted[0].IsDelete)
	assert.NotNil(t, deleted[0].DeletedAt)

	restored, err := d.RestoreTask(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDelete)
	assert.Nil(t, restored.DeletedAt)
	_, err = d.RestoreTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, d.SoftDeleteTask(ctx, task.ID))

	n, links, err := d.PurgeDeletedTasks(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "recently deleted tasks survive")
	assert.Empty(t, links)

	n, _, err = d.PurgeDeletedTasks(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = d.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendToQAAndRemoveTag(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	s := seedSection(t, d)

	task, err := d.CreateTask(ctx, &models.Task{TaskName: "t", SectionID: s.ID, TagIDs: models.IDList{1, 2, 1}})
	require.NoError(t, err)

	qa, err := d.SendTaskToQA(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, qa.SentToQA)

	updated, err := d.RemoveTagFromTask(ctx, task.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.IDList{2}, updated.TagIDs)

	_, err = d.RemoveTagFromTask(ctx, task.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = d.RemoveTagFromTask(ctx, 999, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTaskCascades(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	s := seedSection(t, d)
	u := seedUser(t, d, "a@example.com")

	task, err := d.CreateTask(ctx, &models.Task{TaskName: "t", SectionID: s.ID})
	require.NoError(t, err)
	c, err := d.CreateComment(ctx, &models.Comment{TextCommentForViewTask: "hi", TaskID: &task.ID, CreatedByUserID: &u.ID})
	require.NoError(t, err)
	_, err = d.CreateComment(ctx, &models.Comment{CommentText: models.Links{"/files/a.png", "/files/b.mp4"}, TaskID: &task.ID})
	require.NoError(t, err)
	_, err = d.CreateNotifications(ctx, "assigned", &task.ID, []int64{u.ID})
	require.NoError(t, err)
	m, err := d.CreateMedia(ctx, []models.Media{
		{MediaLink: "/files/c.png", Type: models.OwnerTask, TaskOrBuildID: task.ID, MediaType: models.MediaImage},
	})
	require.NoError(t, err)

	links, err := d.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/files/a.png", "/files/b.mp4", "/files/c.png"}, links)

	_, err = d.GetComment(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = d.GetMedia(ctx, m[0].ID)
	assert.ErrorIs(t, err, ErrNotFound, "media records go with their task")
	_, err = d.DeleteTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	count, err := d.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	s := seedSection(t, d)
	u := seedUser(t, d, "a@example.com")
	task, err := d.CreateTask(ctx, &models.Task{TaskName: "t", SectionID: s.ID})
	require.NoError(t, err)

	text, err := d.CreateComment(ctx, &models.Comment{TextCommentForViewTask: "looks good", TaskID: &task.ID, CreatedByUserID: &u.ID})
	require.NoError(t, err)
	assert.Equal(t, models.Links{}, text.CommentText)

	links := models.Links{"https://cdn/a.png", "https://cdn/b.mp4"}
	withMedia, err := d.CreateComment(ctx, &models.Comment{CommentText: links, TaskID: &task.ID, CreatedByUserID: &u.ID})
	require.NoError(t, err)
	assert.Equal(t, links, withMedia.CommentText)

	_, err = d.ExecContext(ctx, "UPDATE comments SET comment_text = ? WHERE id = ?", "legacy plain text", text.ID)
	require.NoError(t, err)
	legacy, err := d.GetComment(ctx, text.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Links{"legacy plain text"}, legacy.CommentText)

	forTask, err := d.GetTaskComments(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, forTask, 2)

	edited := "edited"
	updated, err := d.UpdateComment(ctx, withMedia.ID, CommentUpdate{TextCommentForViewTask: &edited})
	require.NoError(t, err)
	assert.Equal(t, edited, updated.TextCommentForViewTask)
	assert.Equal(t, links, updated.CommentText)

	require.NoError(t, d.DeleteComment(ctx, text.ID))
	all, err := d.ListComments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMedia(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	created, err := d.CreateMedia(ctx, []models.Media{
		{MediaLink: "https://cdn/a.png", Type: models.OwnerTask, TaskOrBuildID: 1, MediaType: models.MediaImage},
		{MediaLink: "https://cdn/b.mp4", Type: models.OwnerBuild, TaskOrBuildID: 7, MediaType: models.MediaVideo},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	builds, err := d.ListMedia(ctx, MediaFilter{Type: models.OwnerBuild})
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, models.MediaVideo, builds[0].MediaType)

	id := int64(1)
	forTask, err := d.ListMedia(ctx, MediaFilter{TaskOrBuildID: &id})
	require.NoError(t, err)
	assert.Len(t, forTask, 1)

	require.NoError(t, d.DeleteMedia(ctx, created[0].ID))
	_, err = d.GetMedia(ctx, created[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	a := seedUser(t, d, "a@example.com")
	b := seedUser(t, d, "b@example.com")

	created, err := d.CreateNotifications(ctx, "standup in 5", nil, []int64{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, created, 2)
	_, err = d.CreateNotifications(ctx, "second", nil, []int64{a.ID})
	require.NoError(t, err)

	_, err = d.CreateNotifications(ctx, "ghost", nil, []int64{a.ID, 999})
	assert.ErrorIs(t, err, ErrConflict)

	count, err := d.UnreadCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "failed batch leaves no rows behind")

	read, err := d.MarkNotificationRead(ctx, created[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	n, err := d.MarkAllRead(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err := d.ListUserNotifications(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, item := range list {
		assert.True(t, item.IsRead)
	}

	require.NoError(t, d.DeleteNotification(ctx, created[1].ID))
	count, err = d.UnreadCount(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTaskChecks(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	qa := seedUser(t, d, "qa@example.com")
	build, err := d.CreateBuild(ctx, &models.Build{BuildName: "Sprint 12"})
	require.NoError(t, err)

	_, err = d.UpsertTaskCheck(ctx, models.TaskCheck{TaskName: "login", CheckedByUserID: qa.ID, BuildID: 999})
	assert.ErrorIs(t, err, ErrConflict, "checks belong to an existing build")

	first, err := d.UpsertTaskCheck(ctx, models.TaskCheck{TaskName: "login", CheckedByUserID: qa.ID, BuildID: build.ID, IsWorking: true})
	require.NoError(t, err)
	assert.True(t, first.IsWorking)

	second, err := d.UpsertTaskCheck(ctx, models.TaskCheck{TaskName: "login", CheckedByUserID: qa.ID, BuildID: build.ID, IsWorking: false})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.IsWorking)

	_, err = d.UpsertTaskCheck(ctx, models.TaskCheck{TaskName: "signup", CheckedByUserID: qa.ID, BuildID: build.ID, IsWorking: true})
	require.NoError(t, err)

	checks, err := d.ListBuildChecks(ctx, build.ID)
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, "login", checks[0].TaskName)

	require.NoError(t, d.DeleteTaskCheck(ctx, build.ID, "login"))
	_, err = d.GetTaskCheck(ctx, build.ID, "login")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, d.DeleteTaskCheck(ctx, build.ID, "login"), ErrNotFound)
}

func TestBuilds(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)
	u := seedUser(t, d, "qa@example.com")

	first, err := d.CreateBuild(ctx, &models.Build{BuildName: "Sprint 1", Version: "1.0.0", CreatedByUserID: &u.ID})
	require.NoError(t, err)
	assert.Equal(t, "Sprint 1", first.BuildName)
	assert.Empty(t, first.AndroidLink)
	second, err := d.CreateBuild(ctx, &models.Build{BuildName: "Sprint 2"})
	require.NoError(t, err)

	builds, err := d.ListBuilds(ctx)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, second.ID, builds[0].ID)

	updated, err := d.SetAndroidLink(ctx, first.ID, "https://example.com/app.apk")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/app.apk", updated.AndroidLink)
	_, err = d.SetAndroidLink(ctx, 999, "https://example.com/app.apk")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := d.BuildExists(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	text, err := d.CreateBuildComment(ctx, &models.BuildComment{BuildID: first.ID, TaskName: "A-1", UserID: &u.ID, Comment: "works"})
	require.NoError(t, err)
	assert.Empty(t, text.MediaLinks)
	_, err = d.CreateBuildComment(ctx, &models.BuildComment{BuildID: first.ID, TaskName: "A-2", MediaLinks: models.Links{"/files/a.png", "/files/b.png"}})
	require.NoError(t, err)
	_, err = d.CreateBuildComment(ctx, &models.BuildComment{BuildID: 999, TaskName: "A-1", Comment: "x"})
	assert.ErrorIs(t, err, ErrConflict)

	comments, err := d.ListBuildComments(ctx, first.ID, "A-1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "works", comments[0].Comment)
	comments, err = d.ListBuildComments(ctx, first.ID, "")
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	_, err = d.CreateMedia(ctx, []models.Media{
		{MediaLink: "/files/c.mp4", Type: models.OwnerBuild, TaskOrBuildID: first.ID, MediaType: models.MediaVideo},
		{MediaLink: "/files/d.mp4", Type: models.OwnerBuild, TaskOrBuildID: second.ID, MediaType: models.MediaVideo},
	})
	require.NoError(t, err)
	_, err = d.UpsertTaskCheck(ctx, models.TaskCheck{TaskName: "A-1", CheckedByUserID: u.ID, BuildID: first.ID, IsWorking: true})
	require.NoError(t, err)

	links, err := d.DeleteBuild(ctx, first.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/files/a.png", "/files/b.png", "/files/c.mp4"}, links)

	_, err = d.GetBuild(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	comments, err = d.ListBuildComments(ctx, first.ID, "")
	require.NoError(t, err)
	assert.Empty(t, comments)
	_, err = d.GetTaskCheck(ctx, first.ID, "A-1")
	assert.ErrorIs(t, err, ErrNotFound)
	left, err := d.ListMedia(ctx, MediaFilter{Type: models.OwnerBuild})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "/files/d.mp4", left[0].MediaLink)

	_, err = d.DeleteBuild(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
