package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"card_bot/internal/model"
	"card_bot/migrations"
)

const keyLastPostedDate = "last_posted_date"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads the last posted date and the full history ordered by insertion.
func (s *SQLite) Load(ctx context.Context) (*model.State, error) {
	state := model.NewState()

	var last sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM bot_state WHERE key = ?`, keyLastPostedDate,
	).Scan(&last)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("query last posted date: %w", err)
	case last.Valid:
		state.LastPostedDate = last.String
	}

	rows, err := s.db.QueryContext(ctx, `SELECT posted_on, card FROM history ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.Date, &e.Card); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		state.History = append(state.History, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return state, nil
}

// Save replaces the persisted state with state in a single transaction.
func (s *SQLite) Save(ctx context.Context, state *model.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last any
	if state.LastPostedDate != "" {
		last = state.LastPostedDate
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bot_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		keyLastPostedDate, last,
	); err != nil {
		return fmt.Errorf("upsert last posted date: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO history (posted_on, card) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range state.History {
		if _, err := stmt.ExecContext(ctx, e.Date, e.Card); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}

	return tx.Commit()
}
