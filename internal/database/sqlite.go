package database

import (
	"context"
	"database/sql"

	"emperror.dev/errors"

	"assetrepo/internal/database/migrations"
	"assetrepo/internal/repository"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements History using SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock repository.Clock
}

var _ History = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens the database at path, which can be a file path
// or ":memory:", and migrates it to the latest schema. A nil clock uses
// the wall clock.
func NewSQLiteDatabase(path string, clock repository.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	if clock == nil {
		clock = repository.RealClock{}
	}
	return &SQLiteDatabase{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection. The pool holds a
// single connection, so an in-memory database is shared by every query.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "opening database", "path", path)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.WrapWithDetails(err, "configuring database", "path", path)
	}
	return db, nil
}

func (s *SQLiteDatabase) CreateOperation(ctx context.Context, operation, parameters, repo string) (*Operation, error) {
	started := s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (operation, parameters, repository, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		operation, parameters, repo, StatusRunning, started)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "creating operation", "operation", operation)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "reading operation id")
	}
	return &Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		Repository: repo,
		Status:     StatusRunning,
		StartedAt:  started,
	}, nil
}

func (s *SQLiteDatabase) FinishOperation(ctx context.Context, id int64, status, assetID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE operations SET status = ?, asset_id = ?, finished_at = ? WHERE id = ?`,
		status, assetID, s.clock.Now().UTC(), id)
	if err != nil {
		return errors.WrapWithDetails(err, "finishing operation", "id", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewWithDetails("no such operation", "id", id)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(ctx context.Context, limit int) ([]*Operation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, operation, parameters, repository, asset_id, status, started_at, finished_at
		 FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing operations")
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op := &Operation{}
		var finished sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Repository, &op.AssetID, &op.Status, &op.StartedAt, &finished); err != nil {
			return nil, errors.Wrap(err, "scanning operation")
		}
		if finished.Valid {
			t := finished.Time.UTC()
			op.FinishedAt = &t
		}
		op.StartedAt = op.StartedAt.UTC()
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "listing operations")
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
