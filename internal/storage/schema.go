package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// Note: WAL mode is configured in db.go.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if err := createUsersTable(ctx, db); err != nil {
		return err
	}
	return createItemsTable(ctx, db)
}

func createUsersTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_user_id INTEGER NOT NULL UNIQUE,
		first_seen_at INTEGER NOT NULL,
		last_seen_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_telegram_user_id ON users(telegram_user_id);
	CREATE INDEX IF NOT EXISTS idx_users_last_seen_at ON users(last_seen_at);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	return nil
}

func createItemsTable(ctx context.Context, db *sql.DB) error {
	// short_code uniqueness covers soft-deleted rows too: a code is never
	// reissued after deletion (availability check relies on this).
	query := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		short_code TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL CHECK(kind IN ('url', 'note')),
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		deleted_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_user_id);
	CREATE INDEX IF NOT EXISTS idx_items_short_code ON items(short_code);
	CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create items table: %w", err)
	}

	return nil
}
