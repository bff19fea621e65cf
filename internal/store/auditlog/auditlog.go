// Package auditlog keeps an append-only record of executor outcomes for
// later investigation: what was requested, what the exchange answered, and
// where the state machine stopped. Kept separate from the ledger: the
// ledger records money, this records behavior.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	mu sync.Mutex
	db *sql.DB
}

type Entry struct {
	ID        int64
	Timestamp int64
	AccountID int64
	Symbol    string
	Side      string
	Intent    string
	State     string
	OrderID   string
	Detail    string
}

const schema = `
CREATE TABLE IF NOT EXISTS execution_audit (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	intent TEXT NOT NULL,
	state TEXT NOT NULL,
	order_id TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_account_ts ON execution_audit(account_id, ts);
`

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit log: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_audit (ts, account_id, symbol, side, intent, state, order_id, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp, e.AccountID, e.Symbol, e.Side, e.Intent, e.State, e.OrderID, e.Detail)
	return err
}

func (s *Store) Recent(ctx context.Context, accountID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, account_id, symbol, side, intent, state, order_id, detail
		 FROM execution_audit WHERE account_id = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.AccountID, &e.Symbol, &e.Side, &e.Intent, &e.State, &e.OrderID, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
