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

CREATE TABLE IF NOT EXISTS scanned_ids (
	id       TEXT PRIMARY KEY,
	added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scan_runs (
	id          TEXT PRIMARY KEY,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	processed   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	completed   INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1))
);

CREATE TABLE IF NOT EXISTS outcomes (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	domain       TEXT NOT NULL,
	token        TEXT NOT NULL,
	attempted_at DATETIME NOT NULL,
	result       TEXT NOT NULL CHECK(result IN ('Success', 'Failed', 'ManualRequired')),
	detail       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_outcomes_domain ON outcomes(domain);
CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
