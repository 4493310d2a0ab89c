// Package store keeps scenes in a SQLite database, one index-file text per
// class and per annotated package, so annotations survive between runs and
// can be inserted into rebuilt classes later.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/funvibe/annoscene/internal/ctxlog"
	"github.com/funvibe/annoscene/internal/parser"
	"github.com/funvibe/annoscene/internal/prettyprinter"
	"github.com/funvibe/annoscene/internal/scene"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	index_text TEXT NOT NULL,
	session    TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (kind, name)
)`

const (
	kindClass   = "class"
	kindPackage = "package"
)

// ErrNotFound is returned by Load for a class the store does not hold.
var ErrNotFound = errors.New("not in store")

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (st *Store) Close() error {
	return st.db.Close()
}

// Save writes every non-empty class and annotated package of s, replacing
// what the store held for them. It returns the number of entries written.
func (st *Store) Save(ctx context.Context, s *scene.Scene) (int, error) {
	session := uuid.New()
	log := ctxlog.FromContext(ctx).With("session", session.String())

	type entry struct{ kind, name, text string }
	var entries []entry
	for name, e := range s.Packages.All() {
		if e.IsEmpty() {
			continue
		}
		sub := scene.New()
		sub.Packages.Put(name, e)
		text, err := prettyprinter.Print(sub)
		if err != nil {
			return 0, fmt.Errorf("package %s: %w", name, err)
		}
		entries = append(entries, entry{kindPackage, name, text})
	}
	for name, c := range s.Classes.All() {
		if c.IsEmpty() {
			continue
		}
		sub := scene.New()
		sub.Classes.Put(name, c)
		text, err := prettyprinter.Print(sub)
		if err != nil {
			return 0, fmt.Errorf("class %s: %w", name, err)
		}
		entries = append(entries, entry{kindClass, name, text})
	}

	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	now := time.Now().Unix()
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
INSERT INTO entries (kind, name, index_text, session, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (kind, name) DO UPDATE SET
	index_text = excluded.index_text, session = excluded.session, updated_at = excluded.updated_at`,
			e.kind, e.name, e.text, session.String(), now)
		if err != nil {
			return 0, fmt.Errorf("saving %s %s: %w", e.kind, e.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	log.Debug("saved scene", "entries", len(entries))
	return len(entries), nil
}

// Load adds the named classes to s, together with the annotations of their
// packages. With no names every stored entry is loaded.
func (st *Store) Load(ctx context.Context, s *scene.Scene, classes ...string) error {
	if len(classes) == 0 {
		rows, err := st.db.QueryContext(ctx, `SELECT kind, name, index_text FROM entries ORDER BY kind DESC, name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var kind, name, text string
			if err := rows.Scan(&kind, &name, &text); err != nil {
				return err
			}
			if err := parser.ParseInto(ctx, s, kind+" "+name, strings.NewReader(text)); err != nil {
				return err
			}
		}
		return rows.Err()
	}

	for _, name := range classes {
		if text, ok, err := st.text(ctx, kindPackage, prettyprinter.PackageOf(name)); err != nil {
			return err
		} else if ok {
			if err := parser.ParseInto(ctx, s, "package "+prettyprinter.PackageOf(name), strings.NewReader(text)); err != nil {
				return err
			}
		}
		text, ok, err := st.text(ctx, kindClass, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("class %s: %w", name, ErrNotFound)
		}
		if err := parser.ParseInto(ctx, s, "class "+name, strings.NewReader(text)); err != nil {
			return err
		}
	}
	return nil
}

func (st *Store) text(ctx context.Context, kind, name string) (string, bool, error) {
	var text string
	err := st.db.QueryRowContext(ctx, `SELECT index_text FROM entries WHERE kind = ? AND name = ?`, kind, name).Scan(&text)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("reading %s %s: %w", kind, name, err)
	}
	return text, true, nil
}

// Classes lists the stored class names in order.
func (st *Store) Classes(ctx context.Context) ([]string, error) {
	rows, err := st.db.QueryContext(ctx, `SELECT name FROM entries WHERE kind = ? ORDER BY name`, kindClass)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
