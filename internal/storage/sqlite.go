//go:build sqlite
// +build sqlite

package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "stockmon/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate() error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.Exec(string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) GetState(productID string) (int, bool) {
	var v int
	err := s.db.QueryRow(`SELECT stock FROM state WHERE product_id = ?`, productID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false
	}
	if err != nil {
		s.log.Warn("state read failed", logx.String("product", productID), logx.Err(err))
		return 0, false
	}
	return v, true
}

func (s *sqliteStore) SetState(productID string, stock int) error {
	_, err := s.db.Exec(
		`INSERT INTO state(product_id, stock) VALUES(?,?)
		 ON CONFLICT(product_id) DO UPDATE SET stock=excluded.stock`,
		productID, stock,
	)
	return err
}

func (s *sqliteStore) GetSuppressed(key string) (time.Time, bool) {
	if key == "" {
		return time.Time{}, false
	}
	var ms int64
	err := s.db.QueryRow(`SELECT notified_at FROM suppression WHERE key = ?`, key).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false
	}
	if err != nil {
		s.log.Warn("suppression read failed", logx.String("key", key), logx.Err(err))
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (s *sqliteStore) MarkNotified(key string, at time.Time) error {
	if key == "" {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO suppression(key, notified_at) VALUES(?,?)
		 ON CONFLICT(key) DO UPDATE SET notified_at=excluded.notified_at`,
		key, at.UnixMilli(),
	)
	return err
}

func (s *sqliteStore) AppendHistory(e HistoryEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	results, err := json.Marshal(e.Results)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO history(at, results) VALUES(?,?)`,
		e.At.Format(time.RFC3339Nano), string(results))
	if err != nil {
		return err
	}
	// FIFO cap: evict the oldest rows beyond the retention limit.
	_, err = s.db.Exec(
		`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`,
		historyMax,
	)
	return err
}

func (s *sqliteStore) History() []HistoryEntry {
	rows, err := s.db.Query(`SELECT at, results FROM history ORDER BY id ASC`)
	if err != nil {
		s.log.Warn("history read failed", logx.Err(err))
		return nil
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var at, results string
		if err := rows.Scan(&at, &results); err != nil {
			continue
		}
		var e HistoryEntry
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t
		}
		_ = json.Unmarshal([]byte(results), &e.Results)
		out = append(out, e)
	}
	return out
}
