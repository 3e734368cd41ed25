// Package engine owns the live relational engine: a private in-memory SQLite
// database that can be materialized from, and serialized back to, a binary
// image.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"modernc.org/sqlite"
)

// ErrUnsupportedDriver is returned when the underlying driver connection
// cannot serialize or deserialize database images.
var ErrUnsupportedDriver = errors.New("sqlite driver does not support images")

type serializer interface {
	Serialize() ([]byte, error)
}

// restorer copies a database file into the connection's main schema through
// the online backup API. Deserialize must not be used: SQLite frees its
// buffer on close with an allocator that did not produce it.
type restorer interface {
	NewRestore(srcURI string) (*sqlite.Backup, error)
}

// Engine is a single-connection in-memory database. The connection is kept
// alive for the lifetime of the Engine, so every query sees the same copy.
type Engine struct {
	db *sql.DB
}

// Open creates an engine. A nil or empty image yields an empty database;
// otherwise the image is loaded and checked to be a readable database.
func Open(ctx context.Context, image []byte) (*Engine, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	e := &Engine{db: db}

	if len(image) > 0 {
		if err := e.load(ctx, image); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping engine: %w", err)
	}

	return e, nil
}

func (e *Engine) load(ctx context.Context, image []byte) error {
	path, err := spill(image)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	defer os.Remove(path)

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire engine connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		r, ok := driverConn.(restorer)
		if !ok {
			return ErrUnsupportedDriver
		}
		return restore(r, path)
	})
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master`).Scan(&n); err != nil {
		return fmt.Errorf("image is not a database: %w", err)
	}
	return nil
}

// spill writes image to a temporary file and returns its path.
func spill(image []byte) (string, error) {
	f, err := os.CreateTemp("", "sitestore-image-*.db")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func restore(r restorer, path string) error {
	b, err := r.NewRestore(path)
	if err != nil {
		return err
	}
	_, stepErr := b.Step(-1)
	return errors.Join(stepErr, b.Finish())
}

// DB returns the handle used by schema and repository code.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Serialize returns the full current database image.
func (e *Engine) Serialize(ctx context.Context) ([]byte, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire engine connection: %w", err)
	}
	defer conn.Close()

	var image []byte
	err = conn.Raw(func(driverConn any) error {
		s, ok := driverConn.(serializer)
		if !ok {
			return ErrUnsupportedDriver
		}
		b, err := s.Serialize()
		if err != nil {
			return err
		}
		image = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("serialize engine: %w", err)
	}
	return image, nil
}

// Close releases the engine. The in-memory database is gone afterwards.
func (e *Engine) Close() error {
	return e.db.Close()
}
