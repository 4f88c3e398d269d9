package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/regwatch/regwatch/internal/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS source_meta (
	source_key TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	source_name TEXT NOT NULL,
	last_checked TEXT NOT NULL,
	scraper_version TEXT,
	total_updates INTEGER NOT NULL DEFAULT 0,
	new_updates INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS updates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_key TEXT NOT NULL REFERENCES source_meta(source_key) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	link TEXT NOT NULL,
	published_date TEXT,
	scraped_date TEXT,
	hash TEXT NOT NULL,
	extra TEXT
);

CREATE INDEX IF NOT EXISTS idx_updates_source ON updates(source_key, position);
`

// SQLiteStore is the embedded-database alternative to FileStore,
// selected with storage: sqlite. Same contract; a single transaction
// per save stands in for the rename trick.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite creates or opens the state database at the given path.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: dbPath}, nil
}

// Load reads a source's state. Missing or unreadable rows degrade to an
// empty state.
func (s *SQLiteStore) Load(source string) (*SourceState, error) {
	key := Slug(source)

	var st SourceState
	err := s.conn.QueryRow(
		`SELECT source, source_name, last_checked, COALESCE(scraper_version, ''), total_updates, new_updates
		FROM source_meta WHERE source_key = ?`, key,
	).Scan(&st.Metadata.Source, &st.Metadata.SourceName, &st.Metadata.LastChecked,
		&st.Metadata.ScraperVersion, &st.Metadata.TotalUpdates, &st.Metadata.NewUpdates)
	if err == sql.ErrNoRows {
		return &SourceState{}, nil
	}
	if err != nil {
		log.Printf("Could not read state for %s: %v", source, err)
		return &SourceState{}, nil
	}

	rows, err := s.conn.Query(
		`SELECT title, link, COALESCE(published_date, ''), COALESCE(scraped_date, ''), hash, extra
		FROM updates WHERE source_key = ? ORDER BY position`, key,
	)
	if err != nil {
		log.Printf("Could not read updates for %s: %v", source, err)
		return &SourceState{}, nil
	}
	defer rows.Close()

	for rows.Next() {
		var r record.Record
		var extra sql.NullString
		if err := rows.Scan(&r.Title, &r.Link, &r.PublishedDate, &r.ScrapedDate, &r.Hash, &extra); err != nil {
			log.Printf("Could not scan update for %s: %v", source, err)
			return &SourceState{}, nil
		}
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &r.Extra); err != nil {
				r.Extra = nil
			}
		}
		st.Updates = append(st.Updates, r)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Could not read updates for %s: %v", source, err)
		return &SourceState{}, nil
	}
	return &st, nil
}

// Save replaces a source's rows and metadata in one transaction.
func (s *SQLiteStore) Save(source string, st *SourceState) error {
	key := Slug(source)

	tx, err := s.conn.Begin()
	if err != nil {
		return &PersistError{Source: source, Err: err}
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO source_meta (source_key, source, source_name, last_checked, scraper_version, total_updates, new_updates)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_key) DO UPDATE SET
			source = excluded.source,
			source_name = excluded.source_name,
			last_checked = excluded.last_checked,
			scraper_version = excluded.scraper_version,
			total_updates = excluded.total_updates,
			new_updates = excluded.new_updates`,
		key, st.Metadata.Source, st.Metadata.SourceName, st.Metadata.LastChecked,
		st.Metadata.ScraperVersion, st.Metadata.TotalUpdates, st.Metadata.NewUpdates,
	)
	if err != nil {
		return &PersistError{Source: source, Err: err}
	}

	if _, err := tx.Exec("DELETE FROM updates WHERE source_key = ?", key); err != nil {
		return &PersistError{Source: source, Err: err}
	}

	for i, r := range st.Updates {
		var extra *string
		if len(r.Extra) > 0 {
			data, err := json.Marshal(r.Extra)
			if err != nil {
				return &PersistError{Source: source, Err: err}
			}
			enc := string(data)
			extra = &enc
		}
		_, err := tx.Exec(
			`INSERT INTO updates (source_key, position, title, link, published_date, scraped_date, hash, extra)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			key, i, r.Title, r.Link, r.PublishedDate, r.ScrapedDate, r.Hash, extra,
		)
		if err != nil {
			return &PersistError{Source: source, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistError{Source: source, Err: err}
	}
	return nil
}

// Sources lists the names of all sources with persisted state, sorted.
func (s *SQLiteStore) Sources() ([]string, error) {
	rows, err := s.conn.Query("SELECT source_name FROM source_meta ORDER BY source_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
