// Package sqlite is a reference storage.LocalStore backed by pure-Go
// SQLite (github.com/ncruces/go-sqlite3, a wazero-hosted driver that needs
// no cgo), grounded on the teacher's own internal/storage/sqlite package:
// database/sql on top of a registered driver, a baseline schema plus a
// sequential, numbered migration list run at Open.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/utags/sync-core/internal/bookmark"
	"github.com/utags/sync-core/internal/corelog"
	"github.com/utags/sync-core/internal/storage"
)

// Store is a storage.LocalStore implementation backed by a single SQLite
// database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and migrates it
// to CurrentVersion.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	corelog.Debugf("sqlite: opened %s at version %d", path, CurrentVersion)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

type row struct {
	Tags        string
	Meta        string
	DeletedMeta *string
	Highlights  *string
	ImportFrom  *string
}

func (s *Store) GetData(ctx context.Context) (map[bookmark.Key]*bookmark.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, tags, meta, deleted_meta, highlights, import_from FROM bookmarks`)
	if err != nil {
		return nil, fmt.Errorf("querying bookmarks: %w", err)
	}
	defer rows.Close()

	out := make(map[bookmark.Key]*bookmark.Record)
	for rows.Next() {
		var key string
		var r row
		if err := rows.Scan(&key, &r.Tags, &r.Meta, &r.DeletedMeta, &r.Highlights, &r.ImportFrom); err != nil {
			return nil, fmt.Errorf("scanning bookmark row: %w", err)
		}
		rec, err := decodeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("decoding bookmark %q: %w", key, err)
		}
		out[key] = rec
	}
	return out, rows.Err()
}

func decodeRecord(r row) (*bookmark.Record, error) {
	rec := &bookmark.Record{}
	if err := json.Unmarshal([]byte(r.Tags), &rec.Tags); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(r.Meta), &rec.Meta); err != nil {
		return nil, err
	}
	if r.DeletedMeta != nil {
		var dm bookmark.DeletedMeta
		if err := json.Unmarshal([]byte(*r.DeletedMeta), &dm); err != nil {
			return nil, err
		}
		rec.DeletedMeta = &dm
	}
	if r.Highlights != nil {
		if err := json.Unmarshal([]byte(*r.Highlights), &rec.Highlights); err != nil {
			return nil, err
		}
	}
	if r.ImportFrom != nil {
		var ip bookmark.ImportProvenance
		if err := json.Unmarshal([]byte(*r.ImportFrom), &ip); err != nil {
			return nil, err
		}
		rec.ImportFrom = &ip
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, records map[bookmark.Key]*bookmark.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bookmarks (key, tags, meta, deleted_meta, highlights, import_from)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			tags = excluded.tags, meta = excluded.meta, deleted_meta = excluded.deleted_meta,
			highlights = excluded.highlights, import_from = excluded.import_from
	`)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck

	for key, rec := range records {
		tags, err := json.Marshal(rec.Tags)
		if err != nil {
			return err
		}
		meta, err := json.Marshal(rec.Meta)
		if err != nil {
			return err
		}
		deletedMeta, err := marshalOptional(rec.DeletedMeta)
		if err != nil {
			return err
		}
		highlights, err := marshalOptionalSlice(rec.Highlights)
		if err != nil {
			return err
		}
		importFrom, err := marshalOptional(rec.ImportFrom)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, key, string(tags), string(meta), deletedMeta, highlights, importFrom); err != nil {
			return fmt.Errorf("upserting %q: %w", key, err)
		}
	}

	return tx.Commit()
}

// marshalOptional marshals a nullable pointer field to a *string suitable
// for a nullable SQL column. It is generic over the pointee type so that a
// nil *T stays nil all the way to the database driver: a nil *T boxed into
// an any parameter would no longer compare equal to nil (the interface
// carries a type), which previously caused NULL columns to be written as
// the literal JSON string "null" instead of staying SQL NULL.
func marshalOptional[T any](v *T) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func marshalOptionalSlice(v []bookmark.Highlight) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func (s *Store) Delete(ctx context.Context, keys []bookmark.Key) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM bookmarks WHERE key = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close() //nolint:errcheck

	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key); err != nil {
			return fmt.Errorf("deleting %q: %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetStoreMetadata(ctx context.Context) (storage.Metadata, error) {
	var meta storage.Metadata
	err := s.db.QueryRowContext(ctx, `SELECT database_version, created, updated FROM store_meta WHERE id = 1`).
		Scan(&meta.DatabaseVersion, &meta.Created, &meta.Updated)
	if err == sql.ErrNoRows {
		return storage.Metadata{DatabaseVersion: CurrentVersion}, nil
	}
	return meta, err
}

var _ storage.LocalStore = (*Store)(nil)
