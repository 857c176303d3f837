package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists fetch history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so external readers do not block the engine's inserts.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_updates (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			provider   TEXT,
			cadence    TEXT,
			price      REAL,
			change_24h REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_symbol_ts ON price_updates(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS series_refreshes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			provider   TEXT,
			timeframe  TEXT,
			raw_points INTEGER,
			price_min  REAL,
			price_max  REAL,
			change_pct REAL,
			derived    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_series_symbol_ts ON series_refreshes(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func unixOrNow(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}

func (r *SQLiteRecorder) RecordQuote(evt *QuoteEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO price_updates
		(timestamp, symbol, provider, cadence, price, change_24h)
		VALUES (?,?,?,?,?,?)`,
		unixOrNow(evt.At), evt.Symbol, evt.Provider, evt.Cadence, evt.Price, evt.Change24h,
	)
	return err
}

func (r *SQLiteRecorder) RecordSeries(evt *SeriesEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	derived := 0
	if evt.Derived {
		derived = 1
	}
	_, err := r.db.Exec(`INSERT INTO series_refreshes
		(timestamp, symbol, provider, timeframe, raw_points, price_min, price_max, change_pct, derived)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		unixOrNow(evt.At), evt.Symbol, evt.Provider, evt.Timeframe.String(),
		evt.RawPoints, evt.PriceMin, evt.PriceMax, evt.Change, derived,
	)
	return err
}

// LatestPrice returns the most recently recorded price for symbol.
func (r *SQLiteRecorder) LatestPrice(symbol string) (price float64, at time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ts int64
	row := r.db.QueryRow(`SELECT price, timestamp FROM price_updates
		WHERE symbol = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, symbol)
	if err := row.Scan(&price, &ts); err != nil {
		return 0, time.Time{}, err
	}
	return price, time.Unix(ts, 0), nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
