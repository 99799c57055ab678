package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/bszwed/linkmark/pkg/urlkey"
)

// InsertURL registers a URL, returning the url_id. Existing URLs return
// their existing id.
func (db *DB) InsertURL(rawURL, contentType string) (int64, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}

	var existingID int64
	err = db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", rawURL).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check existing URL: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO urls (original_url, canonical_url, fuzzy_key, domain, content_type)
		VALUES (?, ?, ?, ?, ?)
	`, rawURL, urlkey.Canonicalize(rawURL), urlkey.FuzzyKey(rawURL), parsed.Host, contentType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert URL: %w", err)
	}

	urlID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}
	return urlID, nil
}

// RecordAccess records one fetch attempt in url_accesses.
func (db *DB) RecordAccess(urlID int64, outcome string, statusCode int, fetchMethod string, success bool) error {
	_, err := db.Exec(`
		INSERT INTO url_accesses (url_id, outcome, status_code, fetch_method, success)
		VALUES (?, ?, ?, ?, ?)
	`, urlID, outcome, statusCode, fetchMethod, success)
	if err != nil {
		return fmt.Errorf("failed to record access: %w", err)
	}
	return nil
}

// StartRun opens a run row and returns its id.
func (db *DB) StartRun(command string, urlCount int, dryRun bool) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (command, url_count, dry_run)
		VALUES (?, ?, ?)
	`, command, urlCount, dryRun)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun records the final counts for a run.
func (db *DB) FinishRun(runID int64, successCount, failedCount int) error {
	_, err := db.Exec(`
		UPDATE runs SET success_count = ?, failed_count = ? WHERE run_id = ?
	`, successCount, failedCount, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordDupScan stores the summary of one duplicate scan.
func (db *DB) RecordDupScan(totalLinks, exactGroups, fuzzyGroups, removedCount int) error {
	_, err := db.Exec(`
		INSERT INTO dup_scans (total_links, exact_groups, fuzzy_groups, removed_count)
		VALUES (?, ?, ?, ?)
	`, totalLinks, exactGroups, fuzzyGroups, removedCount)
	if err != nil {
		return fmt.Errorf("failed to record duplicate scan: %w", err)
	}
	return nil
}

// DomainFailure summarizes fetch failures for one domain.
type DomainFailure struct {
	Domain   string
	Failures int
	Total    int
}

// FailingDomains lists domains ordered by failure count, worst first.
func (db *DB) FailingDomains(limit int) ([]DomainFailure, error) {
	rows, err := db.Query(`
		SELECT u.domain,
		       SUM(CASE WHEN a.success = 0 THEN 1 ELSE 0 END) AS failures,
		       COUNT(*) AS total
		FROM url_accesses a
		JOIN urls u ON u.url_id = a.url_id
		GROUP BY u.domain
		HAVING failures > 0
		ORDER BY failures DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failing domains: %w", err)
	}
	defer rows.Close()

	var out []DomainFailure
	for rows.Next() {
		var f DomainFailure
		if err := rows.Scan(&f.Domain, &f.Failures, &f.Total); err != nil {
			return nil, fmt.Errorf("failed to scan failing domain: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Run is one recorded command invocation.
type Run struct {
	RunID        int64
	CreatedAt    string
	Command      string
	URLCount     int
	SuccessCount int
	FailedCount  int
	DryRun       bool
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT run_id, created_at, command, url_count, success_count, failed_count, dry_run
		FROM runs
		ORDER BY run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.Command, &r.URLCount, &r.SuccessCount, &r.FailedCount, &r.DryRun); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DupScan is one recorded duplicate scan.
type DupScan struct {
	ScanID       int64
	ScannedAt    string
	TotalLinks   int
	ExactGroups  int
	FuzzyGroups  int
	RemovedCount int
}

// ListDupScans returns the most recent duplicate scans, newest first.
func (db *DB) ListDupScans(limit int) ([]DupScan, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT scan_id, scanned_at, total_links, exact_groups, fuzzy_groups, removed_count
		FROM dup_scans
		ORDER BY scan_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate scans: %w", err)
	}
	defer rows.Close()

	var out []DupScan
	for rows.Next() {
		var s DupScan
		if err := rows.Scan(&s.ScanID, &s.ScannedAt, &s.TotalLinks, &s.ExactGroups, &s.FuzzyGroups, &s.RemovedCount); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Access is one recorded fetch attempt.
type Access struct {
	AccessedAt  string
	Outcome     string
	StatusCode  int
	FetchMethod string
	Success     bool
}

// URLHistory returns the access history for a URL, newest first. An unknown
// URL returns (0, nil, nil).
func (db *DB) URLHistory(rawURL string) (int64, []Access, error) {
	var urlID int64
	err := db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", rawURL).Scan(&urlID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to look up URL: %w", err)
	}

	rows, err := db.Query(`
		SELECT accessed_at, outcome, status_code, fetch_method, success
		FROM url_accesses
		WHERE url_id = ?
		ORDER BY access_id DESC
	`, urlID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query accesses: %w", err)
	}
	defer rows.Close()

	var out []Access
	for rows.Next() {
		var a Access
		if err := rows.Scan(&a.AccessedAt, &a.Outcome, &a.StatusCode, &a.FetchMethod, &a.Success); err != nil {
			return 0, nil, fmt.Errorf("failed to scan access: %w", err)
		}
		out = append(out, a)
	}
	return urlID, out, rows.Err()
}

// OutcomeCounts aggregates all recorded accesses by outcome.
func (db *DB) OutcomeCounts() (map[string]int, error) {
	rows, err := db.Query("SELECT outcome, COUNT(*) FROM url_accesses GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		out[outcome] = count
	}
	return out, rows.Err()
}

// AccessCount reports how many fetch attempts are recorded for a URL.
func (db *DB) AccessCount(urlID int64) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM url_accesses WHERE url_id = ?", urlID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accesses: %w", err)
	}
	return count, nil
}
