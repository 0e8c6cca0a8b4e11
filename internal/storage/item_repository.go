package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/tinyvault/tinyvault-go/internal/errors"
)

// isUniqueViolation reports whether err is a sqlite unique-constraint
// failure. modernc.org/sqlite does not export a typed error for this,
// so the extended result code message is matched instead.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateItem inserts a new item with the given short code.
// Returns apperrors.ErrDuplicateCode if the code raced with a concurrent
// insert, so the caller can regenerate and retry.
func (db *DB) CreateItem(ctx context.Context, ownerUserID int64, shortCode, kind, content string) (*Item, error) {
	now := time.Now().Unix()
	query := `
		INSERT INTO items (owner_user_id, short_code, kind, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, ownerUserID, shortCode, kind, content, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrDuplicateCode
		}
		slog.ErrorContext(ctx, "failed to insert item",
			"short_code", shortCode,
			"error", err)
		return nil, fmt.Errorf("insert item: %w", err)
	}

	if duration := time.Since(start); duration > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "CreateItem",
			"duration_ms", duration.Milliseconds())
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("item insert id: %w", err)
	}

	return &Item{
		ID:          id,
		OwnerUserID: ownerUserID,
		ShortCode:   shortCode,
		Kind:        kind,
		Content:     content,
		CreatedAt:   now,
	}, nil
}

// FindItemByCode returns the non-deleted item with the given short code,
// or nil if no such item exists.
func (db *DB) FindItemByCode(ctx context.Context, shortCode string) (*Item, error) {
	query := `
		SELECT id, owner_user_id, short_code, kind, content, created_at, deleted_at
		FROM items
		WHERE short_code = ? AND deleted_at IS NULL
	`

	var item Item
	err := db.conn.QueryRowContext(ctx, query, shortCode).Scan(
		&item.ID,
		&item.OwnerUserID,
		&item.ShortCode,
		&item.Kind,
		&item.Content,
		&item.CreatedAt,
		&item.DeletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query item",
			"short_code", shortCode,
			"error", err)
		return nil, fmt.Errorf("query item: %w", err)
	}

	return &item, nil
}

// ListItemsByOwner returns up to limit non-deleted items for the owner,
// newest first.
func (db *DB) ListItemsByOwner(ctx context.Context, ownerUserID int64, limit int) ([]Item, error) {
	query := `
		SELECT id, owner_user_id, short_code, kind, content, created_at, deleted_at
		FROM items
		WHERE owner_user_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := db.conn.QueryContext(ctx, query, ownerUserID, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list items",
			"owner_user_id", ownerUserID,
			"error", err)
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]Item, 0, limit)
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID,
			&item.OwnerUserID,
			&item.ShortCode,
			&item.Kind,
			&item.Content,
			&item.CreatedAt,
			&item.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SoftDeleteItem marks the item deleted if it exists, belongs to the owner,
// and is not already deleted. Returns true if a row was marked.
func (db *DB) SoftDeleteItem(ctx context.Context, shortCode string, ownerUserID int64) (bool, error) {
	query := `
		UPDATE items SET deleted_at = ?
		WHERE short_code = ? AND owner_user_id = ? AND deleted_at IS NULL
	`
	res, err := db.conn.ExecContext(ctx, query, time.Now().Unix(), shortCode, ownerUserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to soft delete item",
			"short_code", shortCode,
			"error", err)
		return false, fmt.Errorf("soft delete item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft delete rows affected: %w", err)
	}
	return affected > 0, nil
}

// IsCodeAvailable reports whether a short code can be assigned to a new
// item. Soft-deleted rows still occupy their code: a code is never reused
// once issued, so stale links can never resolve to someone else's item.
func (db *DB) IsCodeAvailable(ctx context.Context, shortCode string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM items WHERE short_code = ?`, shortCode).Scan(&one)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("check code availability: %w", err)
	}
	return false, nil
}

// ItemStatsByOwner returns live item counts for the owner by kind.
func (db *DB) ItemStatsByOwner(ctx context.Context, ownerUserID int64) (*ItemStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE kind = 'url'),
			COUNT(*) FILTER (WHERE kind = 'note')
		FROM items
		WHERE owner_user_id = ? AND deleted_at IS NULL
	`

	var stats ItemStats
	err := db.conn.QueryRowContext(ctx, query, ownerUserID).Scan(&stats.Total, &stats.URLs, &stats.Notes)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query item stats",
			"owner_user_id", ownerUserID,
			"error", err)
		return nil, fmt.Errorf("query item stats: %w", err)
	}
	return &stats, nil
}

// ListAllItems returns non-deleted items across all owners with
// limit/offset paging, newest first. Used by the admin API; ownerUserID 0
// means no owner filter.
func (db *DB) ListAllItems(ctx context.Context, ownerUserID int64, limit, offset int) ([]Item, error) {
	query := `
		SELECT id, owner_user_id, short_code, kind, content, created_at, deleted_at
		FROM items
		WHERE deleted_at IS NULL AND (? = 0 OR owner_user_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.conn.QueryContext(ctx, query, ownerUserID, ownerUserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list all items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID,
			&item.OwnerUserID,
			&item.ShortCode,
			&item.Kind,
			&item.Content,
			&item.CreatedAt,
			&item.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// HardDeleteItem permanently removes the item with the given short code,
// deleted or not. Admin-only; frees the code for reuse. Returns true if a
// row was removed.
func (db *DB) HardDeleteItem(ctx context.Context, shortCode string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM items WHERE short_code = ?`, shortCode)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hard delete item",
			"short_code", shortCode,
			"error", err)
		return false, fmt.Errorf("hard delete item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("hard delete rows affected: %w", err)
	}
	return affected > 0, nil
}

// CountItems returns the total number of non-deleted items (readiness probe).
func (db *DB) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE deleted_at IS NULL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}
