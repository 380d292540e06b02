package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type DB struct {
	sql *sql.DB
	now func() time.Time
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS tools (
  id            TEXT PRIMARY KEY,
  name          TEXT NOT NULL,
  logo          TEXT,
  description   TEXT,
  category      TEXT NOT NULL,
  website       TEXT,
  vendor_domain TEXT,
  pricing       TEXT NOT NULL DEFAULT '{}',
  integrations  TEXT NOT NULL DEFAULT '[]',
  last_updated  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tools_category ON tools(category);
CREATE INDEX IF NOT EXISTS idx_tools_domain ON tools(vendor_domain);
CREATE TABLE IF NOT EXISTS providers (
  id           TEXT PRIMARY KEY,
  name         TEXT NOT NULL,
  logo         TEXT,
  description  TEXT,
  website      TEXT,
  services     TEXT NOT NULL DEFAULT '[]',
  last_updated TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS comparisons (
  id         TEXT PRIMARY KEY,
  name       TEXT NOT NULL,
  user_id    TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comparisons_user ON comparisons(user_id, created_at);
CREATE TABLE IF NOT EXISTS comparison_tools (
  comparison_id TEXT NOT NULL REFERENCES comparisons(id) ON DELETE CASCADE,
  position      INTEGER NOT NULL,
  tool_id       TEXT NOT NULL,
  name          TEXT NOT NULL,
  logo          TEXT,
  category      TEXT NOT NULL,
  PRIMARY KEY (comparison_id, position)
);
CREATE TABLE IF NOT EXISTS price_history (
  id           INTEGER PRIMARY KEY,
  tool_id      TEXT NOT NULL,
  tier         TEXT NOT NULL,
  price_amount TEXT,
  price_label  TEXT,
  change_type  TEXT NOT NULL CHECK (change_type IN ('added','updated','removed')),
  recorded_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_tool ON price_history(tool_id, recorded_at);
CREATE TABLE IF NOT EXISTS price_alerts (
  id           TEXT PRIMARY KEY,
  user_id      TEXT NOT NULL,
  tool_id      TEXT NOT NULL,
  tier         TEXT NOT NULL,
  threshold    TEXT NOT NULL,
  callback_url TEXT NOT NULL,
  created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_tool ON price_alerts(tool_id, tier);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Ping checks the database connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// CategoryStats counts tools in one category.
type CategoryStats struct {
	Category    string `json:"category"`
	ToolCount   int    `json:"toolCount"`
	VendorCount int    `json:"vendorCount"`
}

func (d *DB) GetStats(ctx context.Context) ([]CategoryStats, error) {
	query := `
		SELECT
			category,
			COUNT(id),
			COUNT(DISTINCT vendor_domain)
		FROM
			tools
		GROUP BY
			category
		ORDER BY
			category;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CategoryStats
	for rows.Next() {
		var s CategoryStats
		if err := rows.Scan(&s.Category, &s.ToolCount, &s.VendorCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// CountVendors returns the number of distinct vendor domains across all
// categories.
func (d *DB) CountVendors(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(DISTINCT vendor_domain) FROM tools`).Scan(&n)
	return n, err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts both RFC3339 and the sqlite CURRENT_TIMESTAMP format.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	return args
}
