package db

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"github.com/tgienger/planx/internal/models"
)

var buildColumns = []string{
	"id", "build_name", "version", "android_link", "created_by_user_id", "created_at", "updated_at",
}

func scanBuild(s scanner) (*models.Build, error) {
	b := &models.Build{}
	err := s.Scan(&b.ID, &b.BuildName, &b.Version, &b.AndroidLink, &b.CreatedByUserID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

// CreateBuild inserts a build
func (db *DB) CreateBuild(ctx context.Context, b *models.Build) (*models.Build, error) {
	now := db.now()
	id, err := db.insert(ctx, db.DB, db.builder.
		Insert("builds").
		Columns("build_name", "version", "android_link", "created_by_user_id", "created_at", "updated_at").
		Values(b.BuildName, b.Version, b.AndroidLink, b.CreatedByUserID, now, now))
	if err != nil {
		return nil, err
	}
	return db.GetBuild(ctx, id)
}

// GetBuild retrieves a build by ID
func (db *DB) GetBuild(ctx context.Context, id int64) (*models.Build, error) {
	query, args, err := db.builder.
		Select(buildColumns...).
		From("builds").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanBuild(db.QueryRowContext(ctx, query, args...))
}

// ListBuilds returns every build, newest first
func (db *DB) ListBuilds(ctx context.Context) ([]models.Build, error) {
	query, args, err := db.builder.
		Select(buildColumns...).
		From("builds").
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	builds := []models.Build{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, *b)
	}
	return builds, rows.Err()
}

func (db *DB) BuildExists(ctx context.Context, id int64) (bool, error) {
	return db.exists(ctx, "builds", id)
}

// SetAndroidLink replaces the download link of the Android artifact
func (db *DB) SetAndroidLink(ctx context.Context, id int64, link string) (*models.Build, error) {
	err := db.exec(ctx, db.DB, db.builder.
		Update("builds").
		Set("android_link", link).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return db.GetBuild(ctx, id)
}

// DeleteBuild removes a build with its checks, comments and media records.
// It returns the links of stored files nothing refers to any more.
func (db *DB) DeleteBuild(ctx context.Context, id int64) ([]string, error) {
	var links []string
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		links, err = db.selectLinks(ctx, tx, db.builder.
			Select("media_links").
			From("build_comments").
			Where(squirrel.Eq{"build_id": id}))
		if err != nil {
			return err
		}
		owned, err := db.selectLinks(ctx, tx, db.builder.
			Select("media_link").
			From("media").
			Where(squirrel.Eq{"owner_type": models.OwnerBuild, "task_or_build_id": id}))
		if err != nil {
			return err
		}
		links = append(links, owned...)

		if _, err := db.execAny(ctx, tx, db.builder.
			Delete("media").
			Where(squirrel.Eq{"owner_type": models.OwnerBuild, "task_or_build_id": id})); err != nil {
			return err
		}
		return db.exec(ctx, tx, db.builder.
			Delete("builds").
			Where(squirrel.Eq{"id": id}))
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

var buildCommentColumns = []string{
	"id", "build_id", "task_name", "user_id", "comment", "media_links", "created_at",
}

func scanBuildComment(s scanner) (*models.BuildComment, error) {
	c := &models.BuildComment{}
	err := s.Scan(&c.ID, &c.BuildID, &c.TaskName, &c.UserID, &c.Comment, &c.MediaLinks, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

// CreateBuildComment records a comment on a task within a build
func (db *DB) CreateBuildComment(ctx context.Context, c *models.BuildComment) (*models.BuildComment, error) {
	id, err := db.insert(ctx, db.DB, db.builder.
		Insert("build_comments").
		Columns("build_id", "task_name", "user_id", "comment", "media_links", "created_at").
		Values(c.BuildID, c.TaskName, c.UserID, c.Comment, c.MediaLinks, db.now()))
	if err != nil {
		return nil, err
	}

	query, args, err := db.builder.
		Select(buildCommentColumns...).
		From("build_comments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanBuildComment(db.QueryRowContext(ctx, query, args...))
}

// ListBuildComments returns the comments of a build, oldest first. An
// empty taskName lists the comments of every task.
func (db *DB) ListBuildComments(ctx context.Context, buildID int64, taskName string) ([]models.BuildComment, error) {
	pred := squirrel.Eq{"build_id": buildID}
	if taskName != "" {
		pred["task_name"] = taskName
	}
	query, args, err := db.builder.
		Select(buildCommentColumns...).
		From("build_comments").
		Where(pred).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.BuildComment{}
	for rows.Next() {
		c, err := scanBuildComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}
