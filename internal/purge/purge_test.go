package purge

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/planx/internal/config"
	"github.com/tgienger/planx/internal/db"
	"github.com/tgienger/planx/internal/models"
)

type recordingPurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	links   []string
	err     error
}

func (p *recordingPurger) PurgeDeletedTasks(ctx context.Context, cutoff time.Time) (int64, []string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	if p.err != nil {
		return 0, nil, p.err
	}
	return 1, p.links, nil
}

type recordingRemover struct {
	deleted []string
	err     error
}

func (r *recordingRemover) DeleteURL(ctx context.Context, url string) error {
	r.deleted = append(r.deleted, url)
	return r.err
}

func (p *recordingPurger) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestRunOnceUsesRetention(t *testing.T) {
	p := &recordingPurger{}
	w := NewWorker(p, nil, config.PurgeConfig{Interval: time.Hour, Retention: 30 * 24 * time.Hour}, nil)
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	assert.EqualValues(t, 1, w.RunOnce(context.Background()))
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), p.cutoffs[0])

	p.err = errors.New("database is locked")
	assert.Zero(t, w.RunOnce(context.Background()))
}

func TestRunRepeatsUntilCancelled(t *testing.T) {
	p := &recordingPurger{}
	w := NewWorker(p, nil, config.PurgeConfig{Interval: 5 * time.Millisecond, Retention: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return p.calls() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunOnceDeletesLeftoverFiles(t *testing.T) {
	p := &recordingPurger{links: []string{"/files/media/a.png", "/files/media/b.mp4"}}
	files := &recordingRemover{err: errors.New("gone")}
	w := NewWorker(p, files, config.PurgeConfig{Interval: time.Hour, Retention: time.Hour}, nil)

	assert.EqualValues(t, 1, w.RunOnce(context.Background()))
	assert.Equal(t, p.links, files.deleted, "every file is attempted even when one fails")

	p.err = errors.New("database is locked")
	files.deleted = nil
	assert.Zero(t, w.RunOnce(context.Background()))
	assert.Empty(t, files.deleted)
}

func TestRunDisabled(t *testing.T) {
	p := &recordingPurger{}
	w := NewWorker(p, nil, config.PurgeConfig{}, nil)
	w.Run(context.Background())
	assert.Zero(t, p.calls())
}

func TestPurgesOnlyExpiredTrash(t *testing.T) {
	ctx := context.Background()
	d, err := db.Open(ctx, config.DatabaseConfig{Driver: "sqlite3", DSN: filepath.Join(t.TempDir(), "planx.db")})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	section, err := d.CreateSection(ctx, "Backend")
	require.NoError(t, err)
	create := func(name string) int64 {
		task, err := d.CreateTask(ctx, &models.Task{TaskName: name, SectionID: section.ID})
		require.NoError(t, err)
		return task.ID
	}
	trashed := create("trashed")
	kept := create("kept")
	_, err = d.CreateComment(ctx, &models.Comment{CommentText: models.Links{"/files/media/shot.png"}, TaskID: &trashed})
	require.NoError(t, err)
	_, err = d.CreateComment(ctx, &models.Comment{CommentText: models.Links{"/files/media/kept.png"}, TaskID: &kept})
	require.NoError(t, err)
	require.NoError(t, d.SoftDeleteTask(ctx, trashed))

	files := &recordingRemover{}
	w := NewWorker(d, files, config.PurgeConfig{Interval: time.Hour, Retention: 24 * time.Hour}, nil)
	assert.Zero(t, w.RunOnce(ctx), "fresh trash is kept")
	assert.Empty(t, files.deleted)

	w.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	assert.EqualValues(t, 1, w.RunOnce(ctx))
	assert.Equal(t, []string{"/files/media/shot.png"}, files.deleted)

	_, err = d.GetTask(ctx, trashed)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = d.GetTask(ctx, kept)
	assert.NoError(t, err)
}
