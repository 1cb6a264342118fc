package sqlite

import (
	"database/sql"
	"fmt"
)

// CurrentVersion is the database version this implementation understands
// (spec.md I3). A store at a newer version fails loudly; a store at an
// older version is migrated in-place, sequentially, before use.
const CurrentVersion = 1

// migration is one sequential, numbered schema change, mirroring the
// teacher's internal/storage/sqlite.Migration{Name, Func} shape.
type migration struct {
	Version int
	Name    string
	Func    func(*sql.DB) error
}

// migrationsList is the ordered list of migrations applied on top of the
// version-0 baseline schema to reach CurrentVersion.
var migrationsList = []migration{
	{1, "exported_column", migrateExportedColumn},
}

func migrateExportedColumn(db *sql.DB) error {
	_, err := db.Exec(`ALTER TABLE store_meta ADD COLUMN exported INTEGER`)
	if err != nil && !isDuplicateColumn(err) {
		return fmt.Errorf("exported_column: %w", err)
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	return err != nil && (containsFold(err.Error(), "duplicate column") || containsFold(err.Error(), "already exists"))
}

func containsFold(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		match := true
		for j := 0; j < len(substr); j++ {
			a, b := s[i+j], substr[j]
			if 'A' <= a && a <= 'Z' {
				a += 'a' - 'A'
			}
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// migrate brings db from whatever version it is currently at up to
// CurrentVersion, applying migrationsList entries in order. A database at
// a version newer than CurrentVersion is rejected (spec.md I3).
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("applying baseline schema: %w", err)
	}

	current, err := readVersion(db)
	if err != nil {
		return err
	}
	if current > CurrentVersion {
		return fmt.Errorf("database version %d is newer than supported version %d", current, CurrentVersion)
	}

	for _, m := range migrationsList {
		if m.Version <= current {
			continue
		}
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %q: %w", m.Name, err)
		}
		if err := writeVersion(db, m.Version); err != nil {
			return err
		}
	}
	return nil
}

func readVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(`SELECT database_version FROM store_meta WHERE id = 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

func writeVersion(db *sql.DB, version int) error {
	_, err := db.Exec(`
		INSERT INTO store_meta (id, database_version, created, updated) VALUES (1, ?, strftime('%s','now')*1000, strftime('%s','now')*1000)
		ON CONFLICT(id) DO UPDATE SET database_version = excluded.database_version
	`, version)
	return err
}
