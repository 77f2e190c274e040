package db

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/tgienger/planx/internal/models"
)

var userColumns = []string{
	"id", "user_name", "email", "password_hash", "phone_number", "bio", "user_type",
	"section_id", "otp", "otp_expires_at", "otp_attempts", "created_at", "updated_at",
}

func scanUser(s scanner) (*models.User, error) {
	u := &models.User{}
	err := s.Scan(&u.ID, &u.UserName, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.Bio, &u.UserType,
		&u.SectionID, &u.OTP, &u.OTPExpiresAt, &u.OTPAttempts, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// CreateUser inserts a user. The email must be unique.
func (db *DB) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	now := db.now()
	if u.UserType == "" {
		u.UserType = models.DefaultUserType
	}
	id, err := db.insert(ctx, db.DB, db.builder.
		Insert("users").
		Columns("user_name", "email", "password_hash", "phone_number", "bio", "user_type",
			"section_id", "created_at", "updated_at").
		Values(u.UserName, u.Email, u.PasswordHash, u.PhoneNumber, u.Bio, u.UserType,
			u.SectionID, now, now))
	if err != nil {
		return nil, err
	}
	return db.GetUser(ctx, id)
}

// GetUser retrieves a user by ID
func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return db.getUserWhere(ctx, squirrel.Eq{"id": id})
}

// GetUserByEmail retrieves a user by email (case-insensitive)
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUserWhere(ctx, squirrel.Expr("LOWER(email) = LOWER(?)", email))
}

func (db *DB) getUserWhere(ctx context.Context, pred squirrel.Sqlizer) (*models.User, error) {
	query, args, err := db.builder.
		Select(userColumns...).
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanUser(db.QueryRowContext(ctx, query, args...))
}

// ListUsers returns all users ordered by name
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	query, args, err := db.builder.
		Select(userColumns...).
		From("users").
		OrderBy("user_name", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UserUpdate holds the profile fields to change; nil fields are left alone
type UserUpdate struct {
	UserName    *string
	PhoneNumber *string
	Bio         *string
	UserType    *string
	SectionID   *int64
}

// UpdateUser applies a partial profile update
func (db *DB) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*models.User, error) {
	set := map[string]any{"updated_at": db.now()}
	if upd.UserName != nil {
		set["user_name"] = *upd.UserName
	}
	if upd.PhoneNumber != nil {
		set["phone_number"] = *upd.PhoneNumber
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.UserType != nil {
		set["user_type"] = *upd.UserType
	}
	if upd.SectionID != nil {
		set["section_id"] = *upd.SectionID
	}

	err := db.exec(ctx, db.DB, db.builder.
		Update("users").
		SetMap(set).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return db.GetUser(ctx, id)
}

// UpdatePassword replaces the password hash and clears any pending OTP
func (db *DB) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return db.exec(ctx, db.DB, db.builder.
		Update("users").
		Set("password_hash", hash).
		Set("otp", "").
		Set("otp_expires_at", nil).
		Set("otp_attempts", 0).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"id": id}))
}

// SetOTP stores a one-time password, overwriting any previous one
func (db *DB) SetOTP(ctx context.Context, id int64, otp string, expiresAt time.Time) error {
	return db.exec(ctx, db.DB, db.builder.
		Update("users").
		Set("otp", otp).
		Set("otp_expires_at", expiresAt.UTC()).
		Set("otp_attempts", 0).
		Set("updated_at", db.now()).
		Where(squirrel.Eq{"id": id}))
}

// MaxOTPAttempts is how many wrong guesses a pending OTP survives
const MaxOTPAttempts = 5

// RecordOTPFailure counts a wrong OTP guess. The pending OTP is cleared
// once MaxOTPAttempts is reached.
func (db *DB) RecordOTPFailure(ctx context.Context, id int64) error {
	return db.exec(ctx, db.DB, db.builder.
		Update("users").
		Set("otp_attempts", squirrel.Expr("otp_attempts + 1")).
		Set("otp", squirrel.Expr("CASE WHEN otp_attempts + 1 >= ? THEN '' ELSE otp END", MaxOTPAttempts)).
		Set("otp_expires_at", squirrel.Expr("CASE WHEN otp_attempts + 1 >= ? THEN NULL ELSE otp_expires_at END", MaxOTPAttempts)).
		Where(squirrel.Eq{"id": id}))
}

// DeleteUser deletes a user
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	return db.exec(ctx, db.DB, db.builder.
		Delete("users").
		Where(squirrel.Eq{"id": id}))
}

// UserExists reports whether a user with id exists
func (db *DB) UserExists(ctx context.Context, id int64) (bool, error) {
	return db.exists(ctx, "users", id)
}
