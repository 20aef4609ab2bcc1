package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/log"
)

// SQLRepository implements Store on SQLite or PostgreSQL. Amounts are kept as
// integer cents.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
}

// Options configure Open.
type Options struct {
	Dialect     Dialect
	DSN         string
	AutoMigrate bool
	Logger      *log.Logger
}

// Open connects to the database, optionally migrating it first.
func Open(ctx context.Context, opts Options) (*SQLRepository, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if opts.Dialect == SQLite {
		if dir := filepath.Dir(opts.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	}

	if opts.AutoMigrate {
		version, err := RunMigrations(opts.Dialect, opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.InfoContext(ctx, "Database migrated", "dialect", opts.Dialect, "version", version)
	}

	db, err := sql.Open(opts.Dialect.driverName(), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Dialect, err)
	}
	if opts.Dialect == SQLite {
		// one writer avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLRepository{db: db, dialect: opts.Dialect, logger: logger}, nil
}

// NewSQLiteRepository opens and migrates a SQLite database file.
func NewSQLiteRepository(ctx context.Context, dbPath string, logger *log.Logger) (*SQLRepository, error) {
	return Open(ctx, Options{Dialect: SQLite, DSN: dbPath, AutoMigrate: true, Logger: logger})
}

func (r *SQLRepository) Dialect() Dialect { return r.dialect }

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) q(query string) string { return r.dialect.Rebind(query) }

const entryColumns = `id, name, amount_cents, type, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (core.StoredEntry, error) {
	var (
		e     core.StoredEntry
		cents int64
		typ   string
	)
	if err := s.Scan(&e.ID, &e.Name, &cents, &typ, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.StoredEntry{}, err
	}
	e.Amount = core.FromCents(cents)
	e.Type = core.EntryType(typ)
	return e, nil
}

// ListEntries implements EntryStore
func (r *SQLRepository) ListEntries(ctx context.Context) ([]core.StoredEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM period_budget_entry ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.StoredEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// GetEntry implements EntryStore
func (r *SQLRepository) GetEntry(ctx context.Context, id string) (core.StoredEntry, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+entryColumns+` FROM period_budget_entry WHERE id = ?`), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.StoredEntry{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.StoredEntry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

// InsertEntry implements EntryStore
func (r *SQLRepository) InsertEntry(ctx context.Context, e core.Entry) (core.StoredEntry, error) {
	if err := e.Validate(); err != nil {
		return core.StoredEntry{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.StoredEntry{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM period_budget_entry WHERE id = ?`), e.ID).Scan(&exists)
	if err != nil {
		return core.StoredEntry{}, fmt.Errorf("check entry id: %w", err)
	}
	if exists > 0 {
		return core.StoredEntry{}, &core.DuplicateIDError{ID: e.ID}
	}

	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM period_budget_entry`).Scan(&seq)
	if err != nil {
		return core.StoredEntry{}, fmt.Errorf("next entry position: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, r.q(`
		INSERT INTO period_budget_entry (id, name, amount_cents, type, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Name, e.Cents(), string(e.Type), seq, now, now)
	if err != nil {
		return core.StoredEntry{}, fmt.Errorf("insert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.StoredEntry{}, fmt.Errorf("commit entry: %w", err)
	}

	r.logger.InfoContext(ctx, "Entry saved",
		log.NewFields().WithEntry(e.ID, e.Name, string(e.Type), e.Amount.StringFixed(2)).WithOperation(log.OpCreate).ToSlice()...)

	return core.StoredEntry{Entry: e, CreatedAt: now, UpdatedAt: now}, nil
}

// DeleteEntry implements EntryStore
func (r *SQLRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM period_budget_entry WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	if n == 0 {
		return &core.NotFoundError{ID: id}
	}
	r.logger.InfoContext(ctx, "Entry deleted", log.FieldEntryID, id, log.FieldOperation, log.OpDelete)
	return nil
}

// CountEntries implements EntryStore
func (r *SQLRepository) CountEntries(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM period_budget_entry`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// ListGoals implements GoalReader
func (r *SQLRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, amount_cents FROM long_term_goal ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g     core.Goal
			cents int64
		)
		if err := rows.Scan(&g.Name, &cents); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.Amount = core.FromCents(cents)
		out = append(out, g)
	}
	return out, rows.Err()
}

// RecordEvent implements EventRecorder
func (r *SQLRepository) RecordEvent(ctx context.Context, e events.Event) (bool, error) {
	payload, err := e.Encode()
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO ledger_event (id, kind, entry_id, payload, occurred_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		e.ID, string(e.Kind), e.Entry.ID, string(payload), e.OccurredAt.UTC(), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("record event %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record event %s: %w", e.ID, err)
	}
	return n > 0, nil
}

// ListEvents implements EventRecorder
func (r *SQLRepository) ListEvents(ctx context.Context, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT payload FROM ledger_event ORDER BY occurred_at DESC, recorded_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e, err := events.Decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
