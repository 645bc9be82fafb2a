package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BenjaminSRussell/vidgrab/internal/types"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage provides SQLite-based storage for queryable reports
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create tables
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		strategy TEXT,
		candidates INTEGER,
		embeds_seen INTEGER,
		scanned_at TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scan_url ON scans(url);

	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		FOREIGN KEY (scan_id) REFERENCES scans(id)
	);

	CREATE INDEX IF NOT EXISTS idx_link_scan ON links(scan_id);
	CREATE INDEX IF NOT EXISTS idx_link_url ON links(url);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		destination_path TEXT,
		total_bytes INTEGER,
		downloaded_bytes INTEGER,
		status TEXT NOT NULL,
		error TEXT,
		started_at TEXT,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_job_status ON jobs(status);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SaveScan saves a scan and its ordered link list in one transaction
func (s *SQLiteStorage) SaveScan(result types.ScanResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO scans (url, strategy, candidates, embeds_seen, scanned_at, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.URL,
		result.Strategy,
		result.Candidates,
		result.EmbedsSeen,
		formatTime(result.ScannedAt),
		result.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	scanID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT INTO links (scan_id, position, url) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, link := range result.Links {
		if _, err := stmt.Exec(scanID, i, link); err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
	}

	return tx.Commit()
}

// SaveJob saves or updates a download job
func (s *SQLiteStorage) SaveJob(job types.DownloadJob) error {
	query := `
		INSERT OR REPLACE INTO jobs
		(id, source_url, destination_path, total_bytes, downloaded_bytes, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		job.ID,
		job.SourceURL,
		job.DestinationPath,
		job.TotalBytes,
		job.DownloadedBytes,
		string(job.Status),
		job.Error,
		formatTime(job.StartedAt),
		formatTime(job.FinishedAt),
	)

	return err
}

// QueryLinks returns the link list of the most recent scan of url
func (s *SQLiteStorage) QueryLinks(url string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT l.url FROM links l
		WHERE l.scan_id = (SELECT MAX(id) FROM scans WHERE url = ?)
		ORDER BY l.position`, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]string, 0)
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			continue
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

// GetStats returns report statistics
func (s *SQLiteStorage) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counters := []struct {
		key   string
		query string
	}{
		{"total_scans", "SELECT COUNT(*) FROM scans"},
		{"failed_scans", "SELECT COUNT(*) FROM scans WHERE error != ''"},
		{"total_links", "SELECT COUNT(*) FROM links"},
		{"completed_jobs", "SELECT COUNT(*) FROM jobs WHERE status = 'Completed'"},
		{"failed_jobs", "SELECT COUNT(*) FROM jobs WHERE status = 'Failed'"},
	}

	for _, c := range counters {
		var n int
		if err := s.db.QueryRow(c.query).Scan(&n); err != nil {
			return nil, err
		}
		stats[c.key] = n
	}

	return stats, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
