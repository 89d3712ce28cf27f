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

CREATE TABLE IF NOT EXISTS task_snapshots (
	owner       TEXT NOT NULL,
	position    INTEGER NOT NULL,
	id          TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	deadline    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL CHECK(status IN ('in-progress', 'completed')),
	priority    TEXT NOT NULL CHECK(priority IN ('low', 'medium', 'high')),
	fetched_at  TEXT NOT NULL,
	PRIMARY KEY (owner, position)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_task_snapshots_owner_id
	ON task_snapshots(owner, id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
