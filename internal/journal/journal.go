// Package journal persists the outcome of every safe move in a local SQLite
// database so that moves whose recovery failed can be found and repaired by
// hand later.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrNotFound is returned by Resolve when no unresolved entry has the id.
var ErrNotFound = errors.New("journal: entry not found")

// Outcome is how a move attempt ended.
type Outcome string

// Move outcomes.
const (
	OutcomeMoved          Outcome = "moved"
	OutcomeRestored       Outcome = "restored"        // failed, source restored from backup
	OutcomeFailed         Outcome = "failed"          // failed before any mutation
	OutcomeRecoveryFailed Outcome = "recovery_failed" // remote state indeterminate
)

// Entry is one recorded move attempt.
type Entry struct {
	ID         string
	Site       string
	SourcePath string
	DestPath   string
	ItemID     string
	Size       int64
	Outcome    Outcome
	Stage      string
	Error      string
	CreatedAt  time.Time
	ResolvedAt time.Time // zero until marked resolved
}

// NeedsAttention reports whether the entry is an unresolved failed recovery.
func (e *Entry) NeedsAttention() bool {
	return e.Outcome == OutcomeRecoveryFailed && e.ResolvedAt.IsZero()
}

const (
	sqlInsert = `INSERT INTO moves
		(id, site, source_path, dest_path, item_id, size, outcome, stage, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlColumns = `id, site, source_path, dest_path, item_id, size, outcome, stage, error,
		created_at, resolved_at`

	sqlUnresolved = `SELECT ` + sqlColumns + ` FROM moves
		WHERE outcome = 'recovery_failed' AND resolved_at IS NULL
		ORDER BY created_at, id`

	sqlRecent = `SELECT ` + sqlColumns + ` FROM moves
		ORDER BY created_at DESC, id DESC LIMIT ?`

	sqlResolve = `UPDATE moves SET resolved_at = ?
		WHERE id = ? AND resolved_at IS NULL`
)

// Store is the move journal.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
	newID   func() string
}

// Open opens (creating if needed) the journal database at path and applies
// migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("journal: creating directory for %s: %w", path, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: opening database %s: %w", path, err)
	}

	// Sole-writer pattern.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("move journal opened", slog.String("db_path", path))

	return &Store{
		db:      db,
		logger:  logger,
		nowFunc: time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e, assigning its ID and CreatedAt, and returns the stored
// entry.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	e.ID = s.newID()
	e.CreatedAt = s.nowFunc().UTC()
	e.ResolvedAt = time.Time{}

	_, err := s.db.ExecContext(ctx, sqlInsert,
		e.ID, e.Site, e.SourcePath, e.DestPath, nullString(e.ItemID), e.Size,
		string(e.Outcome), nullString(e.Stage), nullString(e.Error), e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("journal: recording move %s -> %s: %w", e.SourcePath, e.DestPath, err)
	}

	level := slog.LevelDebug
	if e.NeedsAttention() {
		level = slog.LevelWarn
	}

	s.logger.Log(ctx, level, "recorded move",
		slog.String("id", e.ID),
		slog.String("site", e.Site),
		slog.String("outcome", string(e.Outcome)),
	)

	return e, nil
}

// Unresolved returns failed recoveries that have not been marked resolved,
// oldest first.
func (s *Store) Unresolved(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, sqlUnresolved)
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx, sqlRecent, limit)
}

// Resolve marks an unresolved entry as handled.
func (s *Store) Resolve(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, sqlResolve, s.nowFunc().UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("journal: resolving %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("journal: resolving %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: querying moves: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e                  Entry
			outcome            string
			itemID, stage, msg sql.NullString
			created            int64
			resolved           sql.NullInt64
		)

		if err := rows.Scan(&e.ID, &e.Site, &e.SourcePath, &e.DestPath, &itemID, &e.Size,
			&outcome, &stage, &msg, &created, &resolved); err != nil {
			return nil, fmt.Errorf("journal: scanning move: %w", err)
		}

		e.Outcome = Outcome(outcome)
		e.ItemID = itemID.String
		e.Stage = stage.String
		e.Error = msg.String
		e.CreatedAt = time.Unix(0, created).UTC()

		if resolved.Valid {
			e.ResolvedAt = time.Unix(0, resolved.Int64).UTC()
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating moves: %w", err)
	}

	return entries, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: s, Valid: true}
}
