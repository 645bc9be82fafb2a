package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BenjaminSRussell/vidgrab/internal/types"
)

// Reporter records scan results and download outcomes
type Reporter interface {
	SaveScan(result types.ScanResult) error
	SaveJob(job types.DownloadJob) error
	Close() error
}

// Record kinds
const (
	KindScan = "scan"
	KindJob  = "job"
)

// Record is one JSONL line
type Record struct {
	Kind string             `json:"kind"`
	Scan *types.ScanResult  `json:"scan,omitempty"`
	Job  *types.DownloadJob `json:"job,omitempty"`
}

// Storage appends records to a JSONL report file
type Storage struct {
	path  string
	mu    sync.Mutex
	jsonl *os.File
}

// New opens (or creates) the JSONL report at path
func New(path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}

	return &Storage{
		path:  path,
		jsonl: file,
	}, nil
}

// SaveScan appends a scan result
func (s *Storage) SaveScan(result types.ScanResult) error {
	return s.write(Record{Kind: KindScan, Scan: &result})
}

// SaveJob appends a download job outcome
func (s *Storage) SaveJob(job types.DownloadJob) error {
	return s.write(Record{Kind: KindJob, Job: &job})
}

func (s *Storage) write(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", record.Kind, err)
	}

	if _, err := s.jsonl.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s record: %w", record.Kind, err)
	}

	return nil
}

// LoadRecords reads every well-formed record from a JSONL report
func LoadRecords(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read JSONL file: %w", err)
	}
	defer file.Close()

	records := make([]Record, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err == nil {
			records = append(records, record)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan JSONL file: %w", err)
	}

	return records, nil
}

// GetStats counts the records in the report file, earlier runs included
func (s *Storage) GetStats() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := LoadRecords(s.path)
	if err != nil {
		return nil, err
	}

	var scans, failedScans, links, completed, failed int
	for _, r := range records {
		switch {
		case r.Kind == KindScan && r.Scan != nil:
			scans++
			links += len(r.Scan.Links)
			if r.Scan.Error != "" {
				failedScans++
			}
		case r.Kind == KindJob && r.Job != nil:
			switch r.Job.Status {
			case types.JobCompleted:
				completed++
			case types.JobFailed:
				failed++
			}
		}
	}

	return map[string]interface{}{
		"total_scans":    scans,
		"failed_scans":   failedScans,
		"total_links":    links,
		"completed_jobs": completed,
		"failed_jobs":    failed,
	}, nil
}

// Close closes the storage
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jsonl != nil {
		return s.jsonl.Close()
	}

	return nil
}

// Multi fans records out to several reporters
type Multi []Reporter

// SaveScan implements Reporter
func (m Multi) SaveScan(result types.ScanResult) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.SaveScan(result))
	}
	return errors.Join(errs...)
}

// SaveJob implements Reporter
func (m Multi) SaveJob(job types.DownloadJob) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.SaveJob(job))
	}
	return errors.Join(errs...)
}

// Close implements Reporter
func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

// GetStats merges the statistics of every member that keeps them; later
// members win on shared keys. The map is empty when no member is queryable.
func (m Multi) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	for _, r := range m {
		q, ok := r.(interface {
			GetStats() (map[string]interface{}, error)
		})
		if !ok {
			continue
		}
		part, err := q.GetStats()
		if err != nil {
			return nil, err
		}
		for k, v := range part {
			stats[k] = v
		}
	}
	return stats, nil
}

// Open returns a reporter writing to the given JSONL and SQLite paths.
// Empty paths are skipped; with both empty the reporter discards everything.
func Open(jsonlPath, dbPath string) (Multi, error) {
	reporters := make(Multi, 0, 2)

	if jsonlPath != "" {
		store, err := New(jsonlPath)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, store)
	}

	if dbPath != "" {
		db, err := NewSQLiteStorage(dbPath)
		if err != nil {
			reporters.Close()
			return nil, err
		}
		reporters = append(reporters, db)
	}

	return reporters, nil
}
