package db

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/tgienger/planx/internal/models"
)

// CreateTag creates a new tag
func (db *DB) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	now := db.now()
	id, err := db.insert(ctx, db.DB, db.builder.
		Insert("tags").
		Columns("tag_name", "created_at", "updated_at").
		Values(name, now, now))
	if err != nil {
		return nil, err
	}
	return db.GetTag(ctx, id)
}

// GetTag retrieves a tag by ID
func (db *DB) GetTag(ctx context.Context, id int64) (*models.Tag, error) {
	query, args, err := db.builder.
		Select("id", "tag_name", "created_at", "updated_at").
		From("tags").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	t := &models.Tag{}
	err = db.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.TagName, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

// ListTags returns all tags ordered by name, or only those in ids when given
func (db *DB) ListTags(ctx context.Context, ids ...int64) ([]models.Tag, error) {
	b := db.builder.
		Select("id", "tag_name", "created_at", "updated_at").
		From("tags").
		OrderBy("tag_name", "id")
	if ids != nil {
		b = b.Where(squirrel.Eq{"id": ids})
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

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.TagName, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// UpdateTag renames a tag
func (db *DB) UpdateTag(ctx context.Context, id int64, name string) (*models.Tag, error) {
	err := db.exec(ctx, db.DB, db.builder.
		Update("tags").
		Set("tag_name", name).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return db.GetTag(ctx, id)
}

// DeleteTag deletes a tag. Tasks keep the id in their tag list.
func (db *DB) DeleteTag(ctx context.Context, id int64) error {
	return db.exec(ctx, db.DB, db.builder.
		Delete("tags").
		Where(squirrel.Eq{"id": id}))
}
