package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// FindUserByTelegramID returns the user for the given Telegram id, or nil
// if the user has never been seen.
func (db *DB) FindUserByTelegramID(ctx context.Context, telegramUserID int64) (*User, error) {
	query := `SELECT id, telegram_user_id, first_seen_at, last_seen_at FROM users WHERE telegram_user_id = ?`

	var user User
	err := db.conn.QueryRowContext(ctx, query, telegramUserID).Scan(
		&user.ID,
		&user.TelegramUserID,
		&user.FirstSeenAt,
		&user.LastSeenAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query user",
			"telegram_user_id", telegramUserID,
			"error", err)
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// CreateOrTouchUser inserts a new user on first contact or updates
// last_seen_at on every subsequent event, returning the current row.
func (db *DB) CreateOrTouchUser(ctx context.Context, telegramUserID int64) (*User, error) {
	now := time.Now().Unix()
	query := `
		INSERT INTO users (telegram_user_id, first_seen_at, last_seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT(telegram_user_id) DO UPDATE SET
			last_seen_at = excluded.last_seen_at
	`
	if _, err := db.conn.ExecContext(ctx, query, telegramUserID, now, now); err != nil {
		slog.ErrorContext(ctx, "failed to upsert user",
			"telegram_user_id", telegramUserID,
			"error", err)
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	user, err := db.FindUserByTelegramID(ctx, telegramUserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d vanished after upsert", telegramUserID)
	}
	return user, nil
}

// ListUsersWithItemCount returns all users with their live item count,
// ordered by internal id. Soft-deleted items are not counted.
func (db *DB) ListUsersWithItemCount(ctx context.Context) ([]UserWithItemCount, error) {
	query := `
		SELECT u.id, u.telegram_user_id, u.first_seen_at, u.last_seen_at,
			COUNT(i.id) FILTER (WHERE i.deleted_at IS NULL) AS item_count
		FROM users u
		LEFT JOIN items i ON i.owner_user_id = u.id
		GROUP BY u.id
		ORDER BY u.id
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users with item count: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []UserWithItemCount
	for rows.Next() {
		var u UserWithItemCount
		if err := rows.Scan(&u.ID, &u.TelegramUserID, &u.FirstSeenAt, &u.LastSeenAt, &u.ItemCount); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountActiveUsers returns the number of users whose last_seen_at is at
// or after the given Unix timestamp.
func (db *DB) CountActiveUsers(ctx context.Context, since int64) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE last_seen_at >= ?`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}

// CountUsers returns the total number of known users (readiness probe).
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
