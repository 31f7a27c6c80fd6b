// Package store is the SQLite persistence layer for samples and cell counts.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

var (
	// ErrStoreNotFound is returned when the store file does not exist.
	ErrStoreNotFound = errors.New("store not found")
	// ErrReadOnly is returned when a write is attempted on a handle from Open.
	ErrReadOnly = errors.New("store opened read-only")
)

// MissingRelationError indicates a store without one of RequiredRelations.
type MissingRelationError struct {
	Path     string
	Relation string
}

func (e *MissingRelationError) Error() string {
	return fmt.Sprintf("store %s is missing required relation %q", e.Path, e.Relation)
}

// DB is a handle on a cell-count store.
type DB struct {
	db       *sqlx.DB
	path     string
	readOnly bool
}

// Open opens an existing store read-only and checks that the required
// relations are present.
func Open(ctx context.Context, path string) (*DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		}
		return nil, fmt.Errorf("stat store: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("store path %s is a directory", path)
	}
	db, err := sqlx.ConnectContext(ctx, driverName, dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	d := &DB{db: db, path: path, readOnly: true}
	for _, rel := range RequiredRelations {
		ok, err := d.hasTable(ctx, rel)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("inspect store %s: %w", path, err)
		}
		if !ok {
			_ = db.Close()
			return nil, &MissingRelationError{Path: path, Relation: rel}
		}
	}
	slog.Debug("opened store", "path", path, "mode", "ro")
	return d, nil
}

// Create creates a new read-write store at path and applies Schema.
func Create(ctx context.Context, path string) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn(path, false))
	if err != nil {
		return nil, fmt.Errorf("create store %s: %w", path, err)
	}
	// one connection keeps the foreign_keys pragma and the transaction together
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	slog.Debug("created store", "path", path)
	return &DB{db: db, path: path}, nil
}

// With opens the store at path, runs fn, and closes the store on every exit
// path. A close failure is joined with fn's error.
func With(ctx context.Context, path string, fn func(*DB) error) (err error) {
	d, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
		}
	}()
	return fn(d)
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	slog.Debug("closing store", "path", d.path)
	return d.db.Close()
}

func (d *DB) hasTable(ctx context.Context, name string) (bool, error) {
	var n int
	err := d.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// dsn builds a SQLite URI. URI filenames have to begin with "file:" for the
// mode parameter to be honored.
func dsn(path string, readOnly bool) string {
	q := "_pragma=foreign_keys(1)"
	if readOnly {
		q = "mode=ro&" + q
	}
	return "file:" + path + "?" + q
}
