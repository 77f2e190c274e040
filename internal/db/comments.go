package db

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/tgienger/planx/internal/models"
)

var commentColumns = []string{
	"id", "comment_text", "text_comment", "task_id", "created_by_user_id", "created_at", "updated_at",
}

func scanComment(s scanner) (*models.Comment, error) {
	c := &models.Comment{}
	err := s.Scan(&c.ID, &c.CommentText, &c.TextCommentForViewTask, &c.TaskID, &c.CreatedByUserID,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

// CreateComment creates a new comment. Either field of the text may be empty.
func (db *DB) CreateComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	now := db.now()
	id, err := db.insert(ctx, db.DB, db.builder.
		Insert("comments").
		Columns("comment_text", "text_comment", "task_id", "created_by_user_id", "created_at", "updated_at").
		Values(c.CommentText, c.TextCommentForViewTask, c.TaskID, c.CreatedByUserID, now, now))
	if err != nil {
		return nil, err
	}
	return db.GetComment(ctx, id)
}

// GetComment retrieves a comment by ID
func (db *DB) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	query, args, err := db.builder.
		Select(commentColumns...).
		From("comments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanComment(db.QueryRowContext(ctx, query, args...))
}

// ListComments returns every comment, oldest first
func (db *DB) ListComments(ctx context.Context) ([]models.Comment, error) {
	return db.listComments(ctx, nil)
}

// GetTaskComments retrieves all comments for a task, oldest first
func (db *DB) GetTaskComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	return db.listComments(ctx, squirrel.Eq{"task_id": taskID})
}

func (db *DB) listComments(ctx context.Context, pred squirrel.Sqlizer) ([]models.Comment, error) {
	b := db.builder.
		Select(commentColumns...).
		From("comments").
		OrderBy("created_at", "id")
	if pred != nil {
		b = b.Where(pred)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// CommentUpdate holds the fields to change; nil fields are left alone
type CommentUpdate struct {
	CommentText            *models.Links
	TextCommentForViewTask *string
}

// UpdateComment applies a partial update
func (db *DB) UpdateComment(ctx context.Context, id int64, upd CommentUpdate) (*models.Comment, error) {
	set := map[string]any{"updated_at": db.now()}
	if upd.CommentText != nil {
		set["comment_text"] = *upd.CommentText
	}
	if upd.TextCommentForViewTask != nil {
		set["text_comment"] = *upd.TextCommentForViewTask
	}

	err := db.exec(ctx, db.DB, db.builder.
		Update("comments").
		SetMap(set).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return db.GetComment(ctx, id)
}

// DeleteComment deletes a comment
func (db *DB) DeleteComment(ctx context.Context, id int64) error {
	return db.exec(ctx, db.DB, db.builder.
		Delete("comments").
		Where(squirrel.Eq{"id": id}))
}
