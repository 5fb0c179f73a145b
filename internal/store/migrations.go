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

CREATE TABLE IF NOT EXISTS journal (
	id         TEXT PRIMARY KEY,
	action     TEXT NOT NULL,
	target     TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE journal ADD COLUMN host TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS idx_journal_target ON journal(target);
CREATE INDEX IF NOT EXISTS idx_journal_created_at ON journal(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
