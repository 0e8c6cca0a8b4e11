package admin

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinyvault/tinyvault-go/internal/logger"
	"github.com/tinyvault/tinyvault-go/internal/storage"
)

const testAPIKey = "admin-test-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAdmin(t *testing.T, apiKey string) (*gin.Engine, *storage.DB) {
	t.Helper()

	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(db, apiKey, logger.NewWithWriter("error", io.Discard))
	router := gin.New()
	h.Register(router.Group("/admin"))
	return router, db
}

func seedData(t *testing.T, db *storage.DB) (*storage.User, *storage.User) {
	t.Helper()
	ctx := context.Background()

	alice, err := db.CreateOrTouchUser(ctx, 1001)
	require.NoError(t, err)
	bob, err := db.CreateOrTouchUser(ctx, 1002)
	require.NoError(t, err)

	_, err = db.CreateItem(ctx, alice.ID, "aaa111", storage.KindURL, "https://example.com")
	require.NoError(t, err)
	_, err = db.CreateItem(ctx, alice.ID, "bbb222", storage.KindNote, "buy milk")
	require.NoError(t, err)
	_, err = db.CreateItem(ctx, bob.ID, "ccc333", storage.KindNote, "call mom")
	require.NoError(t, err)

	return alice, bob
}

func doRequest(router *gin.Engine, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(apiKeyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRejectsMissingAndWrongKey(t *testing.T) {
	router, _ := setupAdmin(t, testAPIKey)

	w := doRequest(router, http.MethodGet, "/admin/users", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/admin/users", "wrong-key")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthDisabledWithoutConfiguredKey(t *testing.T) {
	router, _ := setupAdmin(t, "")

	// Even a "correct looking" key gets 404 when the API is disabled.
	w := doRequest(router, http.MethodGet, "/admin/users", "anything")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUsers(t *testing.T) {
	router, db := setupAdmin(t, testAPIKey)
	alice, _ := seedData(t, db)

	w := doRequest(router, http.MethodGet, "/admin/users", testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	var users []userResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, alice.TelegramUserID, users[0].TelegramUserID)
	assert.Equal(t, 2, users[0].ItemCount)
	assert.Equal(t, 1, users[1].ItemCount)
}

func TestListItemsFiltersAndPaginates(t *testing.T) {
	router, db := setupAdmin(t, testAPIKey)
	alice, _ := seedData(t, db)

	w := doRequest(router, http.MethodGet, "/admin/items", testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items  []itemResponse `json:"items"`
		Total  int            `json:"total"`
		Limit  int            `json:"limit"`
		Offset int            `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, defaultItemsLimit, body.Limit)

	w = doRequest(router, http.MethodGet, fmt.Sprintf("/admin/items?user_id=%d&limit=1&offset=1", alice.ID), testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, alice.ID, body.Items[0].OwnerUserID)

	w = doRequest(router, http.MethodGet, "/admin/items?limit=0", testAPIKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/admin/items?user_id=abc", testAPIKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteItemHardDeletes(t *testing.T) {
	router, db := setupAdmin(t, testAPIKey)
	seedData(t, db)
	ctx := context.Background()

	w := doRequest(router, http.MethodDelete, "/admin/items/aaa111", testAPIKey)
	assert.Equal(t, http.StatusOK, w.Code)

	// Unlike the user-facing soft delete, the code becomes reusable.
	available, err := db.IsCodeAvailable(ctx, "aaa111")
	require.NoError(t, err)
	assert.True(t, available)

	w = doRequest(router, http.MethodDelete, "/admin/items/aaa111", testAPIKey)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	router, db := setupAdmin(t, testAPIKey)
	seedData(t, db)

	w := doRequest(router, http.MethodGet, "/admin/stats", testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		TotalUsers        int     `json:"total_users"`
		TotalItems        int     `json:"total_items"`
		ActiveUsers30Days int     `json:"active_users_30_days"`
		AvgItemsPerUser   float64 `json:"average_items_per_user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, 2, stats.ActiveUsers30Days)
	assert.InDelta(t, 1.5, stats.AvgItemsPerUser, 0.001)
}

func TestExportStreamsGzipJSON(t *testing.T) {
	router, db := setupAdmin(t, testAPIKey)
	seedData(t, db)

	w := doRequest(router, http.MethodGet, "/admin/export", testAPIKey)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	var payload exportPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.NotZero(t, payload.ExportedAt)
	assert.Len(t, payload.Users, 2)
	assert.Len(t, payload.Items, 3)
}
