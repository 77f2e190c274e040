package db

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"github.com/tgienger/planx/internal/models"
)

var mediaColumns = []string{
	"id", "media_link", "owner_type", "task_or_build_id", "media_type", "created_at", "updated_at",
}

func scanMedia(s scanner) (*models.Media, error) {
	m := &models.Media{}
	err := s.Scan(&m.ID, &m.MediaLink, &m.Type, &m.TaskOrBuildID, &m.MediaType, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

// CreateMedia records uploaded files in one transaction
func (db *DB) CreateMedia(ctx context.Context, items []models.Media) ([]models.Media, error) {
	now := db.now()
	ids := make([]int64, 0, len(items))
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range items {
			id, err := db.insert(ctx, tx, db.builder.
				Insert("media").
				Columns("media_link", "owner_type", "task_or_build_id", "media_type", "created_at", "updated_at").
				Values(m.MediaLink, m.Type, m.TaskOrBuildID, m.MediaType, now, now))
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Media, 0, len(ids))
	for _, id := range ids {
		m, err := db.GetMedia(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// GetMedia retrieves a media record by ID
func (db *DB) GetMedia(ctx context.Context, id int64) (*models.Media, error) {
	query, args, err := db.builder.
		Select(mediaColumns...).
		From("media").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanMedia(db.QueryRowContext(ctx, query, args...))
}

// MediaFilter narrows ListMedia. Zero values mean no filter.
type MediaFilter struct {
	Type          models.MediaOwner
	TaskOrBuildID *int64
}

// ListMedia returns media records matching f, newest first
func (db *DB) ListMedia(ctx context.Context, f MediaFilter) ([]models.Media, error) {
	b := db.builder.
		Select(mediaColumns...).
		From("media").
		OrderBy("id DESC")
	if f.Type != "" {
		b = b.Where(squirrel.Eq{"owner_type": f.Type})
	}
	if f.TaskOrBuildID != nil {
		b = b.Where(squirrel.Eq{"task_or_build_id": *f.TaskOrBuildID})
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

	items := []models.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// DeleteMedia deletes a media record. The stored object is the caller's concern.
func (db *DB) DeleteMedia(ctx context.Context, id int64) error {
	return db.exec(ctx, db.DB, db.builder.
		Delete("media").
		Where(squirrel.Eq{"id": id}))
}
