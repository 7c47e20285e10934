package output

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zyniel/westie/internal/event"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS events (
	name TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	city TEXT,
	country TEXT,
	full_location TEXT,
	kind TEXT NOT NULL,
	website_url TEXT,
	facebook_url TEXT,
	banner_url TEXT,
	first_seen_at TEXT NOT NULL,
	UNIQUE (name, start_date)
);
`

// SaveSQLite appends the table to an SQLite database at path. Events already
// present, matched on name and start date, are left untouched so repeated
// harvests accumulate history.
func SaveSQLite(table *event.Table, path string) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(eventsSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO events (
			name, start_date, end_date, city, country, full_location,
			kind, website_url, facebook_url, banner_url, first_seen_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	seen := now().UTC().Format(time.RFC3339)
	for _, r := range table.Records() {
		if _, err = stmt.Exec(
			r.Name, r.StartDate, r.EndDate,
			nullable(r.City), nullable(r.Country), nullable(r.FullLocation),
			r.Kind, nullable(r.WebsiteURL), nullable(r.FacebookURL), nullable(r.BannerURL),
			seen,
		); err != nil {
			return fmt.Errorf("failed to insert %q: %w", r.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
