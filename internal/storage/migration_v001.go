package storage

import "database/sql"

// migrateV001 creates the history table, its indexes and the extraction
// run log. Every statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			browser      TEXT NOT NULL,
			url          TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			visited_at   TEXT NOT NULL,
			extracted_at TEXT NOT NULL,
			UNIQUE(browser, url, visited_at)
		)`,

		`CREATE TABLE IF NOT EXISTS extraction_runs (
			id           TEXT PRIMARY KEY,
			started_at   TEXT NOT NULL,
			finished_at  TEXT NOT NULL,
			total_merged INTEGER NOT NULL DEFAULT 0,
			detail       TEXT NOT NULL DEFAULT ''
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_history_browser    ON history(browser)`,
		`CREATE INDEX IF NOT EXISTS idx_history_visited_at ON history(visited_at)`,
		`CREATE INDEX IF NOT EXISTS idx_history_url        ON history(url)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at    ON extraction_runs(started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
