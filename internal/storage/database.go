package storage

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/justyntemme/booklist/internal/models"
)

// DefaultHistoryLimit caps ListHistory when no limit is given
const DefaultHistoryLimit = 20

// Database stores the search history log
type Database struct {
	db *sql.DB
}

// NewDatabase creates and initializes the SQLite database
func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		term TEXT NOT NULL,
		mode TEXT NOT NULL,
		result_count INTEGER DEFAULT 0,
		outcome TEXT NOT NULL,
		searched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_search_history_user ON search_history(user_id, searched_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// RecordSearch inserts a history entry
func (d *Database) RecordSearch(entry *models.HistoryEntry) error {
	_, err := d.db.Exec(`
		INSERT INTO search_history (id, user_id, term, mode, result_count, outcome, searched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Term, entry.Mode, entry.ResultCount, entry.Outcome, entry.SearchedAt,
	)
	return err
}

// ListHistory returns a user's most recent searches, newest first
func (d *Database) ListHistory(userID string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := d.db.Query(`
		SELECT id, user_id, term, mode, result_count, outcome, searched_at
		FROM search_history WHERE user_id = ?
		ORDER BY searched_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Term, &e.Mode, &e.ResultCount, &e.Outcome, &e.SearchedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ClearHistory deletes a user's history and returns the number of rows removed
func (d *Database) ClearHistory(userID string) (int64, error) {
	result, err := d.db.Exec("DELETE FROM search_history WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
