package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lorisbot/internal/domain"
)

// Ledger is an embedded audit store recording every processed message: which
// providers were tried and what came out. The filesystem guard stays the
// idempotency authority; the ledger exists for diagnostics and the `results`
// command.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// LedgerEntry is one processed message.
type LedgerEntry struct {
	MessageID string
	Sender    string
	Kind      string // message type: text | image | audio
	Status    string // success | failed
	SHA256    string // media checksum from the webhook payload, if any
	Attempts  []domain.ProviderAttempt
	Result    string // the persisted JSON document
	CreatedAt time.Time
}

func NewLedger(dbPath string, logger *slog.Logger) (*Ledger, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create ledger directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &Ledger{db: db, logger: logger}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger migration failed: %w", err)
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		message_id  TEXT PRIMARY KEY,
		sender      TEXT,
		kind        TEXT NOT NULL,
		status      TEXT NOT NULL,
		sha256      TEXT,
		attempts    TEXT,
		result      TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_results_time ON results(created_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record stores a processed message. Re-recording the same message id is a
// no-op, mirroring the write-once output file.
func (l *Ledger) Record(ctx context.Context, e LedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	attempts, err := json.Marshal(e.Attempts)
	if err != nil {
		attempts = []byte("[]")
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO results (message_id, sender, kind, status, sha256, attempts, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MessageID, e.Sender, e.Kind, e.Status, e.SHA256, string(attempts), e.Result, e.CreatedAt,
	)
	return err
}

// Recent returns the newest entries, most recent first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT message_id, sender, kind, status, sha256, attempts, result, created_at
		 FROM results ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var attempts string
		if err := rows.Scan(&e.MessageID, &e.Sender, &e.Kind, &e.Status, &e.SHA256, &attempts, &e.Result, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(attempts), &e.Attempts); err != nil {
			l.logger.Warn("corrupt attempts record", "message_id", e.MessageID, "err", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
