package db

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/tgienger/planx/internal/models"
)

// CreateSection creates a new section
func (db *DB) CreateSection(ctx context.Context, name string) (*models.Section, error) {
	now := db.now()
	id, err := db.insert(ctx, db.DB, db.builder.
		Insert("sections").
		Columns("section_name", "created_at", "updated_at").
		Values(name, now, now))
	if err != nil {
		return nil, err
	}
	return db.GetSection(ctx, id)
}

// GetSection retrieves a section by ID
func (db *DB) GetSection(ctx context.Context, id int64) (*models.Section, error) {
	query, args, err := db.builder.
		Select("id", "section_name", "created_at", "updated_at").
		From("sections").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	s := &models.Section{}
	err = db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.SectionName, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

// ListSections returns all sections, oldest first
func (db *DB) ListSections(ctx context.Context) ([]models.Section, error) {
	query, args, err := db.builder.
		Select("id", "section_name", "created_at", "updated_at").
		From("sections").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := []models.Section{}
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.SectionName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// UpdateSection renames a section
func (db *DB) UpdateSection(ctx context.Context, id int64, name string) (*models.Section, error) {
	err := db.exec(ctx, db.DB, db.builder.
		Update("sections").
		Set("section_name", name).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return db.GetSection(ctx, id)
}

// DeleteSection deletes a section. Sections that still hold tasks,
// including soft-deleted ones, cannot be deleted.
func (db *DB) DeleteSection(ctx context.Context, id int64) error {
	query, args, err := db.builder.
		Select("COUNT(*)").
		From("tasks").
		Where(squirrel.Eq{"section_id": id}).
		ToSql()
	if err != nil {
		return err
	}
	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: section has %d tasks", ErrConflict, count)
	}

	return db.exec(ctx, db.DB, db.builder.
		Delete("sections").
		Where(squirrel.Eq{"id": id}))
}

// SectionExists reports whether a section with id exists
func (db *DB) SectionExists(ctx context.Context, id int64) (bool, error) {
	return db.exists(ctx, "sections", id)
}
