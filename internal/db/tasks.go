package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/tgienger/planx/internal/models"
)

var taskColumns = []string{
	"id", "task_name", "id_with_prefix", "description", "sub_task", "due_date", "status",
	"platform_type", "section_id", "assigned_to_id", "created_by_id", "tag_ids",
	"is_deleted", "sent_to_qa", "created_at", "updated_at", "deleted_at",
}

func scanTask(s scanner) (*models.Task, error) {
	t := &models.Task{}
	err := s.Scan(&t.ID, &t.TaskName, &t.IDWithPrefix, &t.Description, &t.SubTask, &t.DueDate, &t.Status,
		&t.PlatformType, &t.SectionID, &t.TaskAssignedToID, &t.TaskCreatedByID, &t.TagIDs,
		&t.IsDelete, &t.SentToQA, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

// CreateTask inserts a task and assigns its prefixed display id in the
// same transaction, so concurrent creates never share a display id.
func (db *DB) CreateTask(ctx context.Context, t *models.Task) (*models.Task, error) {
	now := db.now()
	if t.Status == "" {
		t.Status = models.StatusNotStarted
	}
	if t.PlatformType == "" {
		t.PlatformType = models.PlatformIndependent
	}
	if t.TagIDs == nil {
		t.TagIDs = models.IDList{}
	}

	var id int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = db.insert(ctx, tx, db.builder.
			Insert("tasks").
			Columns("task_name", "description", "sub_task", "due_date", "status", "platform_type",
				"section_id", "assigned_to_id", "created_by_id", "tag_ids", "created_at", "updated_at").
			Values(t.TaskName, t.Description, t.SubTask, utcPtr(t.DueDate), t.Status, t.PlatformType,
				t.SectionID, t.TaskAssignedToID, t.TaskCreatedByID, t.TagIDs, now, now))
		if err != nil {
			return err
		}
		return db.exec(ctx, tx, db.builder.
			Update("tasks").
			Set("id_with_prefix", models.DisplayID(id)).
			Where(squirrel.Eq{"id": id}))
	})
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, id)
}

// GetTask retrieves a task by ID, including soft-deleted tasks
func (db *DB) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	query, args, err := db.builder.
		Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanTask(db.QueryRowContext(ctx, query, args...))
}

// TaskExists reports whether a task that is not soft-deleted exists
func (db *DB) TaskExists(ctx context.Context, id int64) (bool, error) {
	t, err := db.GetTask(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !t.IsDelete, nil
}

// TaskFilter narrows ListTasks. Zero values mean no filter.
type TaskFilter struct {
	SectionID  *int64
	AssignedTo *int64
	CreatedBy  *int64
	Status     models.TaskStatus
	SentToQA   *bool
	Deleted    bool
}

// ListTasks returns tasks matching f, ordered by due date (unset last) then newest first
func (db *DB) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	b := db.builder.
		Select(taskColumns...).
		From("tasks").
		Where(squirrel.Eq{"is_deleted": f.Deleted})

	if f.SectionID != nil {
		b = b.Where(squirrel.Eq{"section_id": *f.SectionID})
	}
	if f.AssignedTo != nil {
		b = b.Where(squirrel.Eq{"assigned_to_id": *f.AssignedTo})
	}
	if f.CreatedBy != nil {
		b = b.Where(squirrel.Eq{"created_by_id": *f.CreatedBy})
	}
	if f.Status != "" {
		b = b.Where(squirrel.Eq{"status": f.Status})
	}
	if f.SentToQA != nil {
		b = b.Where(squirrel.Eq{"sent_to_qa": *f.SentToQA})
	}

	query, args, err := b.
		OrderBy("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END", "due_date", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// TaskUpdate holds the fields to change; nil fields are left alone.
// ClearDueDate and ClearAssignee null out their columns.
type TaskUpdate struct {
	TaskName      *string
	Description   *string
	SubTask       *string
	DueDate       *time.Time
	ClearDueDate  bool
	Status        *models.TaskStatus
	PlatformType  *models.PlatformType
	SectionID     *int64
	AssignedTo    *int64
	ClearAssignee bool
	TagIDs        *models.IDList
}

// UpdateTask applies a partial update
func (db *DB) UpdateTask(ctx context.Context, id int64, upd TaskUpdate) (*models.Task, error) {
	set := map[string]any{"updated_at": db.now()}
	if upd.TaskName != nil {
		set["task_name"] = *upd.TaskName
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.SubTask != nil {
		set["sub_task"] = *upd.SubTask
	}
	switch {
	case upd.ClearDueDate:
		set["due_date"] = nil
	case upd.DueDate != nil:
		set["due_date"] = upd.DueDate.UTC()
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.PlatformType != nil {
		set["platform_type"] = *upd.PlatformType
	}
	if upd.SectionID != nil {
		set["section_id"] = *upd.SectionID
	}
	switch {
	case upd.ClearAssignee:
		set["assigned_to_id"] = nil
	case upd.AssignedTo != nil:
		set["assigned_to_id"] = *upd.AssignedTo
	}
	if upd.TagIDs != nil {
		set["tag_ids"] = *upd.TagIDs
	}

	err := db.exec(ctx, db.DB, db.builder.
		Update("tasks").
		SetMap(set).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, id)
}

// SoftDeleteTask marks a task deleted without removing it
func (db *DB) SoftDeleteTask(ctx context.Context, id int64) error {
	now := db.now()
	return db.exec(ctx, db.DB, db.builder.
		Update("tasks").
		Set("is_deleted", true).
		Set("deleted_at", now).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": id, "is_deleted": false}))
}

// RestoreTask clears the soft-delete flag
func (db *DB) RestoreTask(ctx context.Context, id int64) (*models.Task, error) {
	err := db.exec(ctx, db.DB, db.builder.
		Update("tasks").
		Set("is_deleted", false).
		Set("deleted_at", nil).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"id": id, "is_deleted": true}))
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, id)
}

// DeleteTask removes a task and, through cascades, its comments and
// notifications. Media records of the task are removed too. It returns
// the links of stored files nothing refers to any more.
func (db *DB) DeleteTask(ctx context.Context, id int64) ([]string, error) {
	var links []string
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if links, err = db.releaseTaskFiles(ctx, tx, []int64{id}); err != nil {
			return err
		}
		return db.exec(ctx, tx, db.builder.
			Delete("tasks").
			Where(squirrel.Eq{"id": id}))
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

// PurgeDeletedTasks permanently removes tasks soft-deleted before cutoff.
// It returns how many went and the links of stored files they left behind.
func (db *DB) PurgeDeletedTasks(ctx context.Context, cutoff time.Time) (int64, []string, error) {
	var (
		n     int64
		links []string
	)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := db.builder.
			Select("id").
			From("tasks").
			Where(squirrel.Eq{"is_deleted": true}).
			Where(squirrel.Lt{"deleted_at": cutoff.UTC()}).
			ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if links, err = db.releaseTaskFiles(ctx, tx, ids); err != nil {
			return err
		}
		n, err = db.execAny(ctx, tx, db.builder.
			Delete("tasks").
			Where(squirrel.Eq{"id": ids}))
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return n, links, nil
}

// releaseTaskFiles collects the stored links of the tasks' comments and
// media, and drops the media records
func (db *DB) releaseTaskFiles(ctx context.Context, tx *sql.Tx, ids []int64) ([]string, error) {
	links, err := db.selectLinks(ctx, tx, db.builder.
		Select("comment_text").
		From("comments").
		Where(squirrel.Eq{"task_id": ids}))
	if err != nil {
		return nil, err
	}
	owned := squirrel.Eq{"owner_type": models.OwnerTask, "task_or_build_id": ids}
	media, err := db.selectLinks(ctx, tx, db.builder.
		Select("media_link").
		From("media").
		Where(owned))
	if err != nil {
		return nil, err
	}
	if _, err := db.execAny(ctx, tx, db.builder.Delete("media").Where(owned)); err != nil {
		return nil, err
	}
	return append(links, media...), nil
}

// SendTaskToQA flags a task as ready for QA
func (db *DB) SendTaskToQA(ctx context.Context, id int64) (*models.Task, error) {
	err := db.exec(ctx, db.DB, db.builder.
		Update("tasks").
		Set("sent_to_qa", true).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return db.GetTask(ctx, id)
}

// RemoveTagFromTask drops tagID from the task's tag list
func (db *DB) RemoveTagFromTask(ctx context.Context, taskID, tagID int64) (*models.Task, error) {
	var out *models.Task
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := db.builder.
			Select(taskColumns...).
			From("tasks").
			Where(squirrel.Eq{"id": taskID}).
			ToSql()
		if err != nil {
			return err
		}
		t, err := scanTask(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			return err
		}
		if !t.TagIDs.Contains(tagID) {
			return ErrNotFound
		}
		t.TagIDs = t.TagIDs.Without(tagID)
		t.UpdatedAt = db.now()
		if err := db.exec(ctx, tx, db.builder.
			Update("tasks").
			Set("tag_ids", t.TagIDs).
			Set("updated_at", t.UpdatedAt).
			Where(squirrel.Eq{"id": taskID})); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
