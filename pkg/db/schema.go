package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- URLs table: every bookmark URL the tool has touched
CREATE TABLE IF NOT EXISTS urls (
    url_id INTEGER PRIMARY KEY AUTOINCREMENT,
    original_url TEXT NOT NULL UNIQUE,
    canonical_url TEXT,
    fuzzy_key TEXT,
    domain TEXT NOT NULL,
    content_type TEXT,            -- article, video, document
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_urls_domain ON urls(domain);
CREATE INDEX IF NOT EXISTS idx_urls_canonical ON urls(canonical_url);
CREATE INDEX IF NOT EXISTS idx_urls_fuzzy ON urls(fuzzy_key);

-- URL accesses: every fetch attempt tracked
CREATE TABLE IF NOT EXISTS url_accesses (
    access_id INTEGER PRIMARY KEY AUTOINCREMENT,
    url_id INTEGER NOT NULL,
    accessed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    outcome TEXT NOT NULL,        -- ok, unreachable, non-html, no-content, rate-limited
    status_code INTEGER,
    fetch_method TEXT,            -- http, headless, cache, yt-dlp, converter name
    success BOOLEAN NOT NULL,
    FOREIGN KEY (url_id) REFERENCES urls(url_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_accesses_url ON url_accesses(url_id);
CREATE INDEX IF NOT EXISTS idx_accesses_time ON url_accesses(accessed_at);
CREATE INDEX IF NOT EXISTS idx_accesses_success ON url_accesses(success);

-- Runs: one row per command invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    command TEXT NOT NULL,
    url_count INTEGER NOT NULL,
    success_count INTEGER DEFAULT 0,
    failed_count INTEGER DEFAULT 0,
    dry_run BOOLEAN DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

-- Duplicate scans: history of what each scan found
CREATE TABLE IF NOT EXISTS dup_scans (
    scan_id INTEGER PRIMARY KEY AUTOINCREMENT,
    scanned_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    total_links INTEGER NOT NULL,
    exact_groups INTEGER NOT NULL,
    fuzzy_groups INTEGER NOT NULL,
    removed_count INTEGER DEFAULT 0
);
`
