package sqlite

// schema is the version-0 baseline, applied once against a fresh database
// before any numbered migration runs. Shaped like the teacher's
// internal/storage/sqlite/schema.go baseline table: one row per bookmark
// key, free-form fields serialized as JSON so the open schema in
// bookmark.Meta.Extra round-trips without a column per field.
const schema = `
CREATE TABLE IF NOT EXISTS bookmarks (
	key          TEXT PRIMARY KEY,
	tags         TEXT NOT NULL DEFAULT '[]',
	meta         TEXT NOT NULL DEFAULT '{}',
	deleted_meta TEXT,
	highlights   TEXT,
	import_from  TEXT
);

CREATE INDEX IF NOT EXISTS idx_bookmarks_key ON bookmarks(key);

CREATE TABLE IF NOT EXISTS store_meta (
	id               INTEGER PRIMARY KEY CHECK (id = 1),
	database_version INTEGER NOT NULL DEFAULT 0,
	created          INTEGER NOT NULL,
	updated          INTEGER NOT NULL
);
`
