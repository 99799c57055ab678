package db

import (
	"path/filepath"
	"testing"
)

// setupTestDB creates a fresh database in a temp directory
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestInsertURL(t *testing.T) {
	database := setupTestDB(t)

	id, err := database.InsertURL("https://example.com/post?utm_source=x", "article")
	if err != nil {
		t.Fatalf("InsertURL failed: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero url_id")
	}

	// Inserting the same URL again returns the same id
	again, err := database.InsertURL("https://example.com/post?utm_source=x", "article")
	if err != nil {
		t.Fatalf("InsertURL (repeat) failed: %v", err)
	}
	if again != id {
		t.Errorf("repeat insert returned %d, want %d", again, id)
	}

	var canonical, domain string
	err = database.QueryRow("SELECT canonical_url, domain FROM urls WHERE url_id = ?", id).Scan(&canonical, &domain)
	if err != nil {
		t.Fatalf("failed to read back URL: %v", err)
	}
	if canonical != "https://example.com/post" {
		t.Errorf("canonical_url = %q", canonical)
	}
	if domain != "example.com" {
		t.Errorf("domain = %q", domain)
	}
}

func TestInsertURL_Invalid(t *testing.T) {
	database := setupTestDB(t)
	if _, err := database.InsertURL("::not a url::", "article"); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestRecordAccess(t *testing.T) {
	database := setupTestDB(t)

	id, err := database.InsertURL("https://example.com/a", "article")
	if err != nil {
		t.Fatalf("InsertURL failed: %v", err)
	}

	if err := database.RecordAccess(id, "ok", 200, "http", true); err != nil {
		t.Fatalf("RecordAccess failed: %v", err)
	}
	if err := database.RecordAccess(id, "unreachable", 404, "", false); err != nil {
		t.Fatalf("RecordAccess failed: %v", err)
	}

	count, err := database.AccessCount(id)
	if err != nil {
		t.Fatalf("AccessCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("AccessCount = %d, want 2", count)
	}
}

func TestRunLifecycle(t *testing.T) {
	database := setupTestDB(t)

	runID, err := database.StartRun("enrich", 10, true)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := database.FinishRun(runID, 8, 2); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	var success, failed int
	var dryRun bool
	err = database.QueryRow("SELECT success_count, failed_count, dry_run FROM runs WHERE run_id = ?", runID).
		Scan(&success, &failed, &dryRun)
	if err != nil {
		t.Fatalf("failed to read back run: %v", err)
	}
	if success != 8 || failed != 2 || !dryRun {
		t.Errorf("run = success %d failed %d dry %v", success, failed, dryRun)
	}
}

func TestFailingDomains(t *testing.T) {
	database := setupTestDB(t)

	good, _ := database.InsertURL("https://good.example.com/a", "article")
	bad, _ := database.InsertURL("https://bad.example.com/b", "article")

	database.RecordAccess(good, "ok", 200, "http", true)
	database.RecordAccess(bad, "unreachable", 403, "", false)
	database.RecordAccess(bad, "unreachable", 403, "", false)

	failures, err := database.FailingDomains(10)
	if err != nil {
		t.Fatalf("FailingDomains failed: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("FailingDomains returned %d rows, want 1", len(failures))
	}
	if failures[0].Domain != "bad.example.com" || failures[0].Failures != 2 {
		t.Errorf("failures[0] = %+v", failures[0])
	}
}

func TestRecordDupScan(t *testing.T) {
	database := setupTestDB(t)

	if err := database.RecordDupScan(100, 3, 2, 5); err != nil {
		t.Fatalf("RecordDupScan failed: %v", err)
	}

	var total, exact int
	err := database.QueryRow("SELECT total_links, exact_groups FROM dup_scans").Scan(&total, &exact)
	if err != nil {
		t.Fatalf("failed to read back scan: %v", err)
	}
	if total != 100 || exact != 3 {
		t.Errorf("scan = total %d exact %d", total, exact)
	}
}

func TestListRuns(t *testing.T) {
	database := setupTestDB(t)

	first, _ := database.StartRun("fetch", 3, false)
	second, _ := database.StartRun("enrich", 5, true)

	runs, err := database.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d rows, want 2", len(runs))
	}
	// Newest first.
	if runs[0].RunID != second || runs[1].RunID != first {
		t.Errorf("order = [%d, %d], want [%d, %d]", runs[0].RunID, runs[1].RunID, second, first)
	}
	if runs[0].Command != "enrich" || !runs[0].DryRun {
		t.Errorf("runs[0] = %+v", runs[0])
	}
}

func TestURLHistory(t *testing.T) {
	database := setupTestDB(t)

	id, _ := database.InsertURL("https://example.com/h", "article")
	database.RecordAccess(id, "unreachable", 404, "", false)
	database.RecordAccess(id, "ok", 200, "headless", true)

	gotID, accesses, err := database.URLHistory("https://example.com/h")
	if err != nil {
		t.Fatalf("URLHistory failed: %v", err)
	}
	if gotID != id {
		t.Errorf("url_id = %d, want %d", gotID, id)
	}
	if len(accesses) != 2 {
		t.Fatalf("accesses = %d, want 2", len(accesses))
	}
	// Newest first.
	if accesses[0].Outcome != "ok" || accesses[0].FetchMethod != "headless" {
		t.Errorf("accesses[0] = %+v", accesses[0])
	}

	unknownID, unknownAccesses, err := database.URLHistory("https://example.com/never-seen")
	if err != nil {
		t.Fatalf("URLHistory (unknown) failed: %v", err)
	}
	if unknownID != 0 || unknownAccesses != nil {
		t.Errorf("unknown URL = (%d, %v), want (0, nil)", unknownID, unknownAccesses)
	}
}

func TestOutcomeCounts(t *testing.T) {
	database := setupTestDB(t)

	a, _ := database.InsertURL("https://example.com/1", "article")
	b, _ := database.InsertURL("https://example.com/2", "video")
	database.RecordAccess(a, "ok", 200, "http", true)
	database.RecordAccess(b, "ok", 200, "yt-dlp", true)
	database.RecordAccess(b, "rate-limited", 429, "yt-dlp", false)

	counts, err := database.OutcomeCounts()
	if err != nil {
		t.Fatalf("OutcomeCounts failed: %v", err)
	}
	if counts["ok"] != 2 || counts["rate-limited"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestSchemaIdempotent(t *testing.T) {
	database := setupTestDB(t)
	if err := database.InitSchema(); err != nil {
		t.Fatalf("re-running InitSchema failed: %v", err)
	}
}
