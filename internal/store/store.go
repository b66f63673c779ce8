/*
Package store is the sqlite persistence layer: the durable seen-set, the
watcher subscriptions and the append-only alert history.
*/
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"stockflow/internal/config"
	"stockflow/internal/types"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// AlertRecord is one audit row: a single delivery attempt for one watcher.
type AlertRecord struct {
	UserID    int64
	Symbol    string
	NewsTitle string
	Message   string
	NewsSeqID int64
	Sent      bool
	At        time.Time
}

type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open creates or opens the sqlite database and applies migrations.
func Open(cfg config.Storage, log zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite at %s: %w", cfg.Path, err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log.With().Str("component", "store").Logger()}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadSeen reads every recorded announcement identifier. Callers treat an
// error as the empty set: duplicate alerts beat total silence.
func (s *Store) LoadSeen(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT news_seq_id FROM sent_news`)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen announcements: %w", err)
	}
	defer rows.Close()

	seen := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seen announcement: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("seen-set iteration failed: %w", err)
	}
	return seen, nil
}

// MarkProcessed records an announcement as handled. The upsert is a no-op on
// conflict so concurrent or retried cycles can mark the same id harmlessly.
func (s *Store) MarkProcessed(ctx context.Context, seqID int64, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_news(news_seq_id, stock_symbol) VALUES(?, ?)
		 ON CONFLICT(news_seq_id) DO NOTHING`,
		seqID, strings.ToUpper(symbol),
	)
	if err != nil {
		return fmt.Errorf("failed to mark announcement %d processed: %w", seqID, err)
	}
	return nil
}

// LogAlert appends one audit row. Append-only; rows are never mutated.
func (s *Store) LogAlert(ctx context.Context, rec AlertRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_history(user_id, stock_symbol, news_title, ai_summary, news_seq_id, sent, sent_at)
		 VALUES(?,?,?,?,?,?,?)`,
		rec.UserID, strings.ToUpper(rec.Symbol), rec.NewsTitle, rec.Message,
		rec.NewsSeqID, rec.Sent, rec.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to log alert for user %d: %w", rec.UserID, err)
	}
	return nil
}

// WatchersFor resolves the verified users with an enabled subscription to
// the symbol. The symbol is upper-cased at the query boundary because feed
// data and stored subscriptions may differ in case.
func (s *Store) WatchersFor(ctx context.Context, symbol string) ([]types.Watcher, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT u.id, u.login_method,
		        COALESCE(u.phone_number, ''), COALESCE(u.telegram_chat_id, 0), COALESCE(u.email, ''),
		        a.stock_symbol
		 FROM users u
		 INNER JOIN alert_stocks a ON u.id = a.user_id
		 WHERE a.stock_symbol = ? AND a.is_enabled = 1 AND u.is_verified = 1`,
		strings.ToUpper(symbol),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchers for %s: %w", symbol, err)
	}
	defer rows.Close()

	var watchers []types.Watcher
	for rows.Next() {
		var w types.Watcher
		var channel string
		if err := rows.Scan(&w.UserID, &channel, &w.PhoneNumber, &w.TelegramChatID, &w.Email, &w.Symbol); err != nil {
			return nil, fmt.Errorf("failed to scan watcher: %w", err)
		}
		w.Channel = types.Channel(channel)
		watchers = append(watchers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("watcher iteration failed: %w", err)
	}
	return watchers, nil
}
