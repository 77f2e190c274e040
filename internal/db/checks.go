package db

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/tgienger/planx/internal/models"
)

var checkColumns = []string{
	"id", "task_name", "checked_by_user_id", "build_id", "is_working", "created_at", "updated_at",
}

func scanCheck(s scanner) (*models.TaskCheck, error) {
	c := &models.TaskCheck{}
	err := s.Scan(&c.ID, &c.TaskName, &c.CheckedByUserID, &c.BuildID, &c.IsWorking, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

// UpsertTaskCheck records a QA verdict for a task in a build. A second
// verdict for the same build and task replaces the first.
func (db *DB) UpsertTaskCheck(ctx context.Context, c models.TaskCheck) (*models.TaskCheck, error) {
	now := db.now()
	id, err := db.insert(ctx, db.DB, db.builder.
		Insert("tasks_checked").
		Columns("task_name", "checked_by_user_id", "build_id", "is_working", "created_at", "updated_at").
		Values(c.TaskName, c.CheckedByUserID, c.BuildID, c.IsWorking, now, now).
		Suffix("ON CONFLICT (build_id, task_name) DO UPDATE SET " +
			"is_working = excluded.is_working, " +
			"checked_by_user_id = excluded.checked_by_user_id, " +
			"updated_at = excluded.updated_at"))
	if err != nil {
		return nil, err
	}
	return db.getCheckWhere(ctx, squirrel.Eq{"id": id})
}

// GetTaskCheck returns the verdict for a task in a build
func (db *DB) GetTaskCheck(ctx context.Context, buildID int64, taskName string) (*models.TaskCheck, error) {
	return db.getCheckWhere(ctx, squirrel.Eq{"build_id": buildID, "task_name": taskName})
}

func (db *DB) getCheckWhere(ctx context.Context, pred squirrel.Sqlizer) (*models.TaskCheck, error) {
	query, args, err := db.builder.
		Select(checkColumns...).
		From("tasks_checked").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanCheck(db.QueryRowContext(ctx, query, args...))
}

// ListBuildChecks returns every verdict recorded for a build
func (db *DB) ListBuildChecks(ctx context.Context, buildID int64) ([]models.TaskCheck, error) {
	query, args, err := db.builder.
		Select(checkColumns...).
		From("tasks_checked").
		Where(squirrel.Eq{"build_id": buildID}).
		OrderBy("task_name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checks := []models.TaskCheck{}
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, *c)
	}
	return checks, rows.Err()
}

// DeleteTaskCheck removes the verdict for a task in a build
func (db *DB) DeleteTaskCheck(ctx context.Context, buildID int64, taskName string) error {
	return db.exec(ctx, db.DB, db.builder.
		Delete("tasks_checked").
		Where(squirrel.Eq{"build_id": buildID, "task_name": taskName}))
}
