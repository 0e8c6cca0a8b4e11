package storage

import "time"

// Item kinds. The classifier picks one of these for every saved item.
const (
	KindURL  = "url"
	KindNote = "note"
)

// User represents a Telegram user known to the bot.
// Created on first inbound event; last_seen_at is touched on every event.
type User struct {
	ID             int64 `json:"id"`
	TelegramUserID int64 `json:"telegram_user_id"`
	FirstSeenAt    int64 `json:"first_seen_at"` // unix seconds
	LastSeenAt     int64 `json:"last_seen_at"`  // unix seconds
}

// FirstSeen returns the first-seen timestamp as time.Time.
func (u *User) FirstSeen() time.Time { return time.Unix(u.FirstSeenAt, 0) }

// LastSeen returns the last-seen timestamp as time.Time.
func (u *User) LastSeen() time.Time { return time.Unix(u.LastSeenAt, 0) }

// Item represents a stored URL or note addressed by its short code.
type Item struct {
	ID          int64  `json:"id"`
	OwnerUserID int64  `json:"owner_user_id"`
	ShortCode   string `json:"short_code"`
	Kind        string `json:"kind"` // "url" or "note"
	Content     string `json:"content"`
	CreatedAt   int64  `json:"created_at"` // unix seconds
	DeletedAt   *int64 `json:"deleted_at,omitempty"`
}

// Created returns the creation timestamp as time.Time.
func (i *Item) Created() time.Time { return time.Unix(i.CreatedAt, 0) }

// IsDeleted reports whether the item has been soft-deleted.
func (i *Item) IsDeleted() bool { return i.DeletedAt != nil }

// ItemStats aggregates per-owner item counts, excluding deleted items.
type ItemStats struct {
	Total int `json:"total"`
	URLs  int `json:"urls"`
	Notes int `json:"notes"`
}

// UserWithItemCount pairs a user with their live item count (admin API).
type UserWithItemCount struct {
	User
	ItemCount int `json:"item_count"`
}
