package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tgienger/planx/internal/config"
	"github.com/tgienger/planx/internal/models"
)

//go:embed schema_sqlite.sql schema_postgres.sql
var schemas embed.FS

var (
	ErrNotFound = errors.New("not found in database")
	ErrConflict = errors.New("conflicts with existing data")
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	driver  string
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// Open connects to the configured database and applies the schema
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dsn := cfg.DSN
	schemaFile := "schema_postgres.sql"
	var placeholder squirrel.PlaceholderFormat = squirrel.Dollar

	switch cfg.Driver {
	case "sqlite3":
		dsn = sqliteDSN(dsn)
		schemaFile = "schema_sqlite.sql"
		placeholder = squirrel.Question
	case "pgx":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	conn, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	schema, err := schemas.ReadFile(schemaFile)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, string(schema)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{
		DB:      conn,
		driver:  cfg.Driver,
		builder: squirrel.StatementBuilder.PlaceholderFormat(placeholder),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// sqliteDSN turns on foreign keys and a busy timeout
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// Driver returns the database/sql driver name in use
func (db *DB) Driver() string {
	return db.driver
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// insert runs an INSERT ... RETURNING id and returns the new id
func (db *DB) insert(ctx context.Context, q queryer, b squirrel.InsertBuilder) (int64, error) {
	query, args, err := b.Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// exec runs a statement and reports ErrNotFound when no row was affected
func (db *DB) exec(ctx context.Context, q queryer, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// exists reports whether table has a row with the given id
func (db *DB) exists(ctx context.Context, table string, id int64) (bool, error) {
	query, args, err := db.builder.
		Select("1").
		From(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// withTx runs fn in a transaction, committing when it returns nil
// execAny runs a statement and returns the number of rows it affected
func (db *DB) execAny(ctx context.Context, q queryer, b squirrel.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return res.RowsAffected()
}

// selectLinks runs a query over one column of stored links and flattens
// the result
func (db *DB) selectLinks(ctx context.Context, q queryer, b squirrel.SelectBuilder) ([]string, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var l models.Links
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		links = append(links, l...)
	}
	return links, rows.Err()
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "foreign key constraint"),
		strings.Contains(msg, "violates foreign key"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
