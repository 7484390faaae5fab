package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subscribers (
	user_id        TEXT PRIMARY KEY,
	tracks         TEXT NOT NULL CHECK (tracks <> ''),
	contact_method TEXT NOT NULL CHECK (contact_method IN ('direct_message', 'email')),
	email          TEXT,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS announcements (
	id           TEXT PRIMARY KEY,
	origin       TEXT NOT NULL,
	channel      TEXT NOT NULL DEFAULT '',
	track        TEXT NOT NULL DEFAULT '',
	deadline     TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	recipients   INTEGER NOT NULL DEFAULT 0,
	failures     INTEGER NOT NULL DEFAULT 0,
	received_at  DATETIME NOT NULL,
	processed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_announcements_received ON announcements(received_at);

CREATE TABLE IF NOT EXISTS deliveries (
	id              TEXT PRIMARY KEY,
	announcement_id TEXT NOT NULL REFERENCES announcements(id) ON DELETE CASCADE,
	user_id         TEXT NOT NULL,
	channel         TEXT NOT NULL,
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deliveries_announcement ON deliveries(announcement_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
