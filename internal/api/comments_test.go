package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/planx/internal/models"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// storedFiles lists every object the disk store holds
func storedFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if !d.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func seedTask(t *testing.T, e *testEnv, token string) int64 {
	t.Helper()
	section := e.mustCreate("/sections", map[string]any{"sectionName": "Mobile"}, token)
	return e.mustCreate("/tasks", map[string]any{"taskName": "Fix login", "sectionID": section}, token)
}

func TestTextComments(t *testing.T) {
	e := newTestEnv(t)
	adaID, token := e.signup("Ada", "ada@example.com")
	task := seedTask(t, e, token)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/comment", map[string]any{"taskId": task}, token).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/comment", map[string]any{"commentText": "hi"}, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/comment", map[string]any{"commentText": "hi", "taskId": 999}, token).Code)

	rec := e.do(http.MethodPost, "/comment", map[string]any{"commentText": "looks good", "taskId": task}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c models.Comment
	decode(t, rec, &c)
	assert.Equal(t, "looks good", c.TextCommentForViewTask)
	assert.Empty(t, c.CommentText)
	require.NotNil(t, c.CreatedByUserID)
	assert.Equal(t, adaID, *c.CreatedByUserID)

	rec = e.do(http.MethodPut, "/comment/"+itoa(c.ID), map[string]any{"textCommentforViewtask": "edited"}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &c)
	assert.Equal(t, "edited", c.TextCommentForViewTask)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPut, "/comment/"+itoa(c.ID), map[string]any{"commentText": 42}, token).Code)

	var comments []models.Comment
	rec = e.do(http.MethodGet, "/comment/task/"+itoa(task), nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &comments)
	require.Len(t, comments, 1)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/comment/task/999", nil, token).Code)

	decode(t, e.do(http.MethodGet, "/comment", nil, token), &comments)
	assert.Len(t, comments, 1)

	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/comment/"+itoa(c.ID), nil, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/comment/"+itoa(c.ID), nil, token).Code)
}

func TestMediaComment(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.signup("Ada", "ada@example.com")
	task := seedTask(t, e, token)

	rec := e.upload("/comment/addMedia", map[string]string{"taskId": itoa(task)}, []part{
		{field: "mediaFiles", filename: "shot one.png", contentType: "image/png", data: testPNG(t, 200, 100)},
		{field: "mediaFiles[]", filename: "clip.mov", contentType: "video/quicktime", data: []byte("fake video")},
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Message            string
		NewCommentResponse models.Comment
	}
	decode(t, rec, &resp)
	assert.Equal(t, "New media added", resp.Message)
	links := resp.NewCommentResponse.CommentText
	require.Len(t, links, 2)
	assert.True(t, strings.HasPrefix(links[0], "/files/media/"), links[0])
	assert.True(t, strings.HasSuffix(links[0], "_shot_one.png"), links[0])
	assert.True(t, strings.HasSuffix(links[1], "_clip.mp4"), links[1])

	img := e.do(http.MethodGet, links[0], nil, "")
	require.Equal(t, http.StatusOK, img.Code)
	cfg, _, err := image.DecodeConfig(img.Body)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width, "images are scaled down to the configured width")
	assert.Equal(t, 32, cfg.Height)
	assert.Len(t, storedFiles(t, e.files), 2)

	rec = e.do(http.MethodDelete, "/comment/"+itoa(resp.NewCommentResponse.ID), nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, storedFiles(t, e.files), "deleting the comment removes its files")
}

func TestDeleteFilesOutlivesRequest(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.signup("Ada", "ada@example.com")
	task := seedTask(t, e, token)

	rec := e.upload("/comment/addMedia", map[string]string{"taskId": itoa(task)}, []part{
		{"mediaFiles", "a.png", "image/png", testPNG(t, 8, 8)},
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct{ NewCommentResponse models.Comment }
	decode(t, rec, &resp)
	require.Len(t, storedFiles(t, e.files), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.srv.deleteFiles(ctx, resp.NewCommentResponse.CommentText)
	assert.Empty(t, storedFiles(t, e.files), "a hung up client does not leave files behind")
}

func TestMediaCommentRejects(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.signup("Ada", "ada@example.com")
	task := seedTask(t, e, token)
	png := testPNG(t, 8, 8)

	tests := []struct {
		name   string
		fields map[string]string
		parts  []part
		status int
	}{
		{"no files", map[string]string{"taskId": itoa(task)}, nil, http.StatusBadRequest},
		{"no task", nil, []part{{"mediaFiles", "a.png", "image/png", png}}, http.StatusBadRequest},
		{"unknown task", map[string]string{"taskId": "999"}, []part{{"mediaFiles", "a.png", "image/png", png}}, http.StatusNotFound},
		{"unknown author", map[string]string{"taskId": itoa(task), "createdByUserId": "999"}, []part{{"mediaFiles", "a.png", "image/png", png}}, http.StatusNotFound},
		{"one unsupported file", map[string]string{"taskId": itoa(task)}, []part{
			{"mediaFiles", "a.png", "image/png", png},
			{"mediaFiles", "notes.txt", "text/plain", []byte("hello")},
		}, http.StatusBadRequest},
		{"script posing as image", map[string]string{"taskId": itoa(task)}, []part{
			{"mediaFiles", "evil.js", "image/x-anything", []byte("alert(document.domain)")},
		}, http.StatusBadRequest},
		{"svg", map[string]string{"taskId": itoa(task)}, []part{
			{"mediaFiles", "logo.svg", "image/svg+xml", []byte("<svg/>")},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.upload("/comment/addMedia", tt.fields, tt.parts, token)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	assert.Empty(t, storedFiles(t, e.files))
	var comments []models.Comment
	decode(t, e.do(http.MethodGet, "/comment", nil, token), &comments)
	assert.Empty(t, comments)

	rec := e.do(http.MethodPost, "/comment/addMedia", map[string]any{"taskId": task}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "json bodies are not uploads")
}

func TestMediaEndpoints(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.signup("Ada", "ada@example.com")
	task := seedTask(t, e, token)
	png := testPNG(t, 8, 8)

	rec := e.upload("/media", map[string]string{"type": "Task", "taskOrBuildId": itoa(task)}, []part{
		{"mediaFiles", "a.png", "image/png", png},
		{"mediaFiles", "b.png", "image/png", png},
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created []models.Media
	decode(t, rec, &created)
	require.Len(t, created, 2)
	assert.Equal(t, models.MediaImage, created[0].MediaType)
	assert.Equal(t, models.OwnerTask, created[0].Type)

	build := seedBuild(t, e, token, "1.2.0")
	assert.Equal(t, http.StatusNotFound, e.upload("/media", map[string]string{"type": "Build", "taskOrBuildId": "999"},
		[]part{{"mediaFiles", "c.mp4", "video/mp4", []byte("video")}}, token).Code)
	rec = e.upload("/media", map[string]string{"type": "Build", "taskOrBuildId": itoa(build)}, []part{
		{"mediaFiles", "c.mp4", "video/mp4", []byte("video")},
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, e.upload("/media", map[string]string{"type": "Album", "taskOrBuildId": "1"},
		[]part{{"mediaFiles", "a.png", "image/png", png}}, token).Code)
	assert.Equal(t, http.StatusNotFound, e.upload("/media", map[string]string{"type": "Task", "taskOrBuildId": "999"},
		[]part{{"mediaFiles", "a.png", "image/png", png}}, token).Code)

	var items []models.Media
	decode(t, e.do(http.MethodGet, "/media", nil, token), &items)
	assert.Len(t, items, 3)
	decode(t, e.do(http.MethodGet, "/media?type=Build&taskOrBuildId="+itoa(build), nil, token), &items)
	require.Len(t, items, 1)
	assert.Equal(t, models.MediaVideo, items[0].MediaType)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/media?type=Album", nil, token).Code)

	id := created[0].ID
	var one models.Media
	decode(t, e.do(http.MethodGet, "/media/"+itoa(id), nil, token), &one)
	assert.Equal(t, created[0].MediaLink, one.MediaLink)

	require.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/media/"+itoa(id), nil, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, one.MediaLink, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/media/"+itoa(id), nil, token).Code)
	assert.Len(t, storedFiles(t, e.files), 2)
}

func TestNotifications(t *testing.T) {
	e := newTestEnv(t)
	adaID, token := e.signup("Ada", "ada@example.com")
	bobID, _ := e.signup("Bob", "bob@example.com")
	task := seedTask(t, e, token)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/notifications", map[string]any{"notificationText": "hi"}, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/notifications", map[string]any{
		"notificationText": "hi", "userIds": []int64{adaID, 999},
	}, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/notifications", map[string]any{
		"notificationText": "hi", "userIds": []int64{adaID}, "taskId": 999,
	}, token).Code)

	rec := e.do(http.MethodPost, "/notifications", map[string]any{
		"notificationText": "Build 12 is out", "userIds": []int64{adaID, bobID}, "taskId": task,
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created []models.Notification
	decode(t, rec, &created)
	require.Len(t, created, 2)

	rec = e.do(http.MethodPost, "/notifications", map[string]any{"notificationText": "second", "userIds": []int64{adaID}}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var second []models.Notification
	decode(t, rec, &second)
	require.Len(t, second, 1)
	assert.Equal(t, adaID, second[0].UserID)

	unread := func(id int64) int {
		var out struct{ UnreadCount int }
		decode(t, e.do(http.MethodGet, "/notifications/user/"+itoa(id)+"/unreadCount", nil, token), &out)
		return out.UnreadCount
	}
	assert.Equal(t, 2, unread(adaID))
	assert.Equal(t, 1, unread(bobID))

	var n models.Notification
	rec = e.do(http.MethodPut, "/notifications/"+itoa(created[0].ID)+"/read", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &n)
	assert.True(t, n.IsRead)
	assert.Equal(t, 1, unread(adaID))

	rec = e.do(http.MethodPut, "/notifications/user/"+itoa(adaID)+"/readAll", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct{ Updated int64 }
	decode(t, rec, &all)
	assert.EqualValues(t, 1, all.Updated)
	assert.Equal(t, 0, unread(adaID))
	assert.Equal(t, 1, unread(bobID))

	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/notifications/"+itoa(created[1].ID), nil, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/notifications/"+itoa(created[1].ID), nil, token).Code)
	assert.Equal(t, 0, unread(bobID))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/notifications/user/999", nil, token).Code)
}

func TestTaskChecks(t *testing.T) {
	e := newTestEnv(t)
	adaID, token := e.signup("Ada", "ada@example.com")
	bobID, _ := e.signup("Bob", "bob@example.com")
	b3 := seedBuild(t, e, token, "3.0.0")
	b4 := seedBuild(t, e, token, "4.0.0")

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/tasksChecked/markWorking", map[string]any{"taskName": "A-1"}, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/tasksChecked/isWorking", map[string]any{"taskName": "A-1", "buildId": b3}, token).Code)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/tasksChecked/markWorking", map[string]any{"taskName": "A-1", "buildId": 999}, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/tasksChecked/build/999", nil, token).Code)

	var check models.TaskCheck
	rec := e.do(http.MethodPost, "/tasksChecked/markWorking", map[string]any{"taskName": "A-1", "buildId": b3}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &check)
	assert.True(t, check.IsWorking)
	assert.Equal(t, adaID, check.CheckedByUserID)

	rec = e.do(http.MethodPost, "/tasksChecked/markNotWorking", map[string]any{"taskName": "A-1", "buildId": b3, "checkedByUserId": bobID}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var second models.TaskCheck
	decode(t, rec, &second)
	assert.Equal(t, check.ID, second.ID, "a task has one verdict per build")
	assert.False(t, second.IsWorking)
	assert.Equal(t, bobID, second.CheckedByUserID)

	e.do(http.MethodPost, "/tasksChecked/markWorking", map[string]any{"taskName": "A-2", "buildId": b3}, token)
	e.do(http.MethodPost, "/tasksChecked/markWorking", map[string]any{"taskName": "A-1", "buildId": b4}, token)

	var verdict struct{ IsWorking bool }
	decode(t, e.do(http.MethodPost, "/tasksChecked/isWorking", map[string]any{"taskName": "A-1", "buildId": b3}, token), &verdict)
	assert.False(t, verdict.IsWorking)

	var checks []models.TaskCheck
	decode(t, e.do(http.MethodGet, "/tasksChecked/build/"+itoa(b3), nil, token), &checks)
	require.Len(t, checks, 2)
	assert.Equal(t, "A-1", checks[0].TaskName)

	assert.Equal(t, http.StatusOK, e.do(http.MethodPost, "/tasksChecked/uncheck", map[string]any{"taskName": "A-1", "buildId": b3}, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/tasksChecked/uncheck", map[string]any{"taskName": "A-1", "buildId": b3}, token).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/tasksChecked/markWorking", map[string]any{"taskName": "A-1", "buildId": b3, "checkedByUserId": 999}, token).Code)
}
