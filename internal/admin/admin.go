// Package admin exposes the operator-facing HTTP API: user and item
// listings, hard deletion, system stats, and a gzip data export. Every
// route requires the X-API-Key header.
package admin

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/tinyvault/tinyvault-go/internal/logger"
	"github.com/tinyvault/tinyvault-go/internal/storage"
)

const apiKeyHeader = "X-API-Key"

const (
	defaultItemsLimit = 100
	maxItemsLimit     = 1000
	activeWindowDays  = 30
)

// Handler serves the admin API.
type Handler struct {
	db     *storage.DB
	apiKey string
	logger *logger.Logger
}

// NewHandler creates an admin handler. An empty apiKey disables the
// whole API: every request gets 404, so the surface is invisible unless
// explicitly configured.
func NewHandler(db *storage.DB, apiKey string, log *logger.Logger) *Handler {
	return &Handler{db: db, apiKey: apiKey, logger: log}
}

// Register mounts the admin routes on the given group behind the API
// key middleware.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.Use(h.authMiddleware())
	rg.GET("/users", h.listUsers)
	rg.GET("/items", h.listItems)
	rg.DELETE("/items/:code", h.deleteItem)
	rg.GET("/stats", h.stats)
	rg.GET("/export", h.export)
}

func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiKey == "" {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		key := c.GetHeader(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}

type userResponse struct {
	ID             int64 `json:"id"`
	TelegramUserID int64 `json:"telegram_user_id"`
	FirstSeenAt    int64 `json:"first_seen_at"`
	LastSeenAt     int64 `json:"last_seen_at"`
	ItemCount      int   `json:"item_count"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	ShortCode   string `json:"short_code"`
	Kind        string `json:"kind"`
	Content     string `json:"content"`
	OwnerUserID int64  `json:"owner_user_id"`
	CreatedAt   int64  `json:"created_at"`
	DeletedAt   *int64 `json:"deleted_at"`
}

func toItemResponse(it storage.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		ShortCode:   it.ShortCode,
		Kind:        it.Kind,
		Content:     it.Content,
		OwnerUserID: it.OwnerUserID,
		CreatedAt:   it.CreatedAt,
		DeletedAt:   it.DeletedAt,
	}
}

// listUsers returns all users with their live item counts.
func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.db.ListUsersWithItemCount(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Admin: failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve users"})
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{
			ID:             u.ID,
			TelegramUserID: u.TelegramUserID,
			FirstSeenAt:    u.FirstSeenAt,
			LastSeenAt:     u.LastSeenAt,
			ItemCount:      u.ItemCount,
		})
	}
	c.JSON(http.StatusOK, out)
}

// listItems returns live items with limit/offset paging and an optional
// user_id filter.
func (h *Handler) listItems(c *gin.Context) {
	ownerID, err := queryInt64(c, "user_id", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	limit, err := queryInt(c, "limit", defaultItemsLimit)
	if err != nil || limit <= 0 || limit > maxItemsLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}

	items, err := h.db.ListAllItems(c.Request.Context(), ownerID, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Admin: failed to list items")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve items"})
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	c.JSON(http.StatusOK, gin.H{
		"items":  out,
		"total":  len(out),
		"limit":  limit,
		"offset": offset,
	})
}

// deleteItem permanently removes an item by short code, bypassing
// ownership and soft-delete rules.
func (h *Handler) deleteItem(c *gin.Context) {
	code := c.Param("code")

	removed, err := h.db.HardDeleteItem(c.Request.Context(), code)
	if err != nil {
		h.logger.WithError(err).WithField("short_code", code).Error("Admin: failed to delete item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete item"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	h.logger.WithField("short_code", code).Info("Admin: item hard deleted")
	c.JSON(http.StatusOK, gin.H{"message": "item " + code + " deleted successfully"})
}

// stats returns system-wide counters.
func (h *Handler) stats(c *gin.Context) {
	ctx := c.Request.Context()

	totalUsers, err := h.db.CountUsers(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Admin: failed to count users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
		return
	}
	totalItems, err := h.db.CountItems(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Admin: failed to count items")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
		return
	}
	since := time.Now().AddDate(0, 0, -activeWindowDays).Unix()
	activeUsers, err := h.db.CountActiveUsers(ctx, since)
	if err != nil {
		h.logger.WithError(err).Error("Admin: failed to count active users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve statistics"})
		return
	}

	avg := 0.0
	if totalUsers > 0 {
		avg = float64(totalItems) / float64(totalUsers)
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":            totalUsers,
		"total_items":            totalItems,
		"active_users_30_days":   activeUsers,
		"average_items_per_user": avg,
	})
}

type exportPayload struct {
	ExportedAt int64          `json:"exported_at"`
	Users      []userResponse `json:"users"`
	Items      []itemResponse `json:"items"`
}

// export streams a gzip-compressed JSON dump of all users and live items.
func (h *Handler) export(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.db.ListUsersWithItemCount(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Admin: failed to export users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export data"})
		return
	}
	var items []storage.Item
	for offset := 0; ; offset += maxItemsLimit {
		page, err := h.db.ListAllItems(ctx, 0, maxItemsLimit, offset)
		if err != nil {
			h.logger.WithError(err).Error("Admin: failed to export items")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export data"})
			return
		}
		items = append(items, page...)
		if len(page) < maxItemsLimit {
			break
		}
	}

	payload := exportPayload{
		ExportedAt: time.Now().Unix(),
		Users:      make([]userResponse, 0, len(users)),
		Items:      make([]itemResponse, 0, len(items)),
	}
	for _, u := range users {
		payload.Users = append(payload.Users, userResponse{
			ID:             u.ID,
			TelegramUserID: u.TelegramUserID,
			FirstSeenAt:    u.FirstSeenAt,
			LastSeenAt:     u.LastSeenAt,
			ItemCount:      u.ItemCount,
		})
	}
	for _, it := range items {
		payload.Items = append(payload.Items, toItemResponse(it))
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Encoding", "gzip")
	c.Header("Content-Disposition", `attachment; filename="tinyvault-export.json.gz"`)
	c.Status(http.StatusOK)

	gz := gzip.NewWriter(c.Writer)
	if err := json.NewEncoder(gz).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Admin: failed to stream export")
	}
	if err := gz.Close(); err != nil {
		h.logger.WithError(err).Error("Admin: failed to flush export stream")
	}
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func queryInt64(c *gin.Context, name string, def int64) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
