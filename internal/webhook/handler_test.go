package webhook

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tinyvault/tinyvault-go/internal/bot"
	"github.com/tinyvault/tinyvault-go/internal/config"
	"github.com/tinyvault/tinyvault-go/internal/logger"
	"github.com/tinyvault/tinyvault-go/internal/metrics"
	"github.com/tinyvault/tinyvault-go/internal/ratelimit"
	"github.com/tinyvault/tinyvault-go/internal/storage"
)

const (
	testBotToken = "123456:test-token"
	testSecret   = "hook-secret"
)

type sentReply struct {
	chatID int64
	text   string
	kb     *bot.Keyboard
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentReply
	answered []string
}

func (f *fakeSender) Send(chatID int64, text string, kb *bot.Keyboard) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentReply{chatID: chatID, text: text, kb: kb})
	return true
}

func (f *fakeSender) AnswerCallback(callbackID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if callbackID != "" {
		f.answered = append(f.answered, callbackID)
	}
}

func (f *fakeSender) lastSent() (sentReply, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentReply{}, false
	}
	return f.sent[len(f.sent)-1], true
}

type testEnv struct {
	router *gin.Engine
	sender *fakeSender
	db     *storage.DB
}

func setupHandler(t *testing.T, limiter *ratelimit.KeyedLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.NewTestDB()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())

	processor := bot.NewProcessor(bot.ProcessorConfig{
		Users:   db,
		Items:   db,
		Logger:  log,
		Metrics: m,
		BotConfig: config.BotConfig{
			MaxContentBytes:  10000,
			MaxNoteChars:     300,
			ListLimit:        50,
			PageSize:         5,
			PreviewLength:    30,
			ShortCodeChars:   6,
			DedupMaxEntries:  1000,
			DedupKeepEntries: 500,
			DedupWindow:      24 * time.Hour,
		},
	})

	sender := &fakeSender{}
	h := NewHandler(HandlerConfig{
		BotToken:      testBotToken,
		WebhookSecret: testSecret,
		Processor:     processor,
		Sender:        sender,
		UserLimiter:   limiter,
		Logger:        log,
		Metrics:       m,
	})

	router := gin.New()
	router.POST("/telegram/webhook/:token", h.Handle)

	return &testEnv{router: router, sender: sender, db: db}
}

func postUpdate(env *testEnv, token, secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook/"+token, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func messageBody(updateID, userID int64, text string) string {
	return fmt.Sprintf(
		`{"update_id":%d,"message":{"message_id":1,"from":{"id":%d},"chat":{"id":%d},"text":%q}}`,
		updateID, userID, userID, text,
	)
}

func callbackBody(updateID, userID int64, callbackID, data string) string {
	return fmt.Sprintf(
		`{"update_id":%d,"callback_query":{"id":%q,"from":{"id":%d},"data":%q}}`,
		updateID, callbackID, userID, data,
	)
}

func TestHandleRejectsWrongPathToken(t *testing.T) {
	env := setupHandler(t, nil)

	w := postUpdate(env, "wrong-token", testSecret, messageBody(1, 100, "/start"))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if _, ok := env.sender.lastSent(); ok {
		t.Error("no reply should be sent for an unauthenticated request")
	}
}

func TestHandleRejectsWrongSecretHeader(t *testing.T) {
	env := setupHandler(t, nil)

	w := postUpdate(env, testBotToken, "wrong-secret", messageBody(1, 100, "/start"))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}

	w = postUpdate(env, testBotToken, "", messageBody(1, 100, "/start"))
	if w.Code != http.StatusForbidden {
		t.Errorf("missing header: status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	env := setupHandler(t, nil)

	w := postUpdate(env, testBotToken, testSecret, `{"update_id":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleDeliversReply(t *testing.T) {
	env := setupHandler(t, nil)

	w := postUpdate(env, testBotToken, testSecret, messageBody(1, 100, "/start"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	reply, ok := env.sender.lastSent()
	if !ok {
		t.Fatal("expected a delivered reply")
	}
	if reply.chatID != 100 {
		t.Errorf("reply chat = %d, want 100", reply.chatID)
	}
	if !strings.Contains(reply.text, "Welcome to TinyVault") {
		t.Errorf("unexpected reply text: %q", reply.text)
	}
	if reply.kb == nil {
		t.Error("welcome reply should carry the main menu")
	}
}

func TestHandleAnswersCallbackQuery(t *testing.T) {
	env := setupHandler(t, nil)

	postUpdate(env, testBotToken, testSecret, messageBody(1, 100, "/start"))
	w := postUpdate(env, testBotToken, testSecret, callbackBody(2, 100, "cb-77", "help"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	env.sender.mu.Lock()
	answered := append([]string(nil), env.sender.answered...)
	env.sender.mu.Unlock()
	if len(answered) != 1 || answered[0] != "cb-77" {
		t.Errorf("answered callbacks = %v, want [cb-77]", answered)
	}
}

func TestHandleDuplicateUpdateAcknowledged(t *testing.T) {
	env := setupHandler(t, nil)

	postUpdate(env, testBotToken, testSecret, messageBody(5, 100, "/start"))
	before := len(env.sender.sent)

	w := postUpdate(env, testBotToken, testSecret, messageBody(5, 100, "/start"))
	if w.Code != http.StatusOK {
		t.Errorf("replayed update must still be acknowledged, status = %d", w.Code)
	}
	if len(env.sender.sent) != before {
		t.Error("replayed update must not produce a second reply")
	}
}

func TestHandleRateLimitsPerUser(t *testing.T) {
	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{Name: "user", Burst: 1, RefillRate: 0.001})
	defer limiter.Stop()
	env := setupHandler(t, limiter)

	postUpdate(env, testBotToken, testSecret, messageBody(1, 100, "/start"))
	w := postUpdate(env, testBotToken, testSecret, messageBody(2, 100, "/help"))
	if w.Code != http.StatusOK {
		t.Fatalf("rate limited request must still return 200, got %d", w.Code)
	}

	reply, ok := env.sender.lastSent()
	if !ok {
		t.Fatal("expected a rate limit notice")
	}
	if reply.text != msgRateLimited {
		t.Errorf("reply = %q, want rate limit notice", reply.text)
	}

	// A different user is unaffected.
	postUpdate(env, testBotToken, testSecret, messageBody(3, 200, "/start"))
	reply, _ = env.sender.lastSent()
	if !strings.Contains(reply.text, "Welcome to TinyVault") {
		t.Errorf("other user should not be limited, got %q", reply.text)
	}
}

func TestHandleEngineErrorStillReturns200(t *testing.T) {
	env := setupHandler(t, nil)

	postUpdate(env, testBotToken, testSecret, messageBody(1, 100, "/start"))
	env.db.Close() // forces a store failure inside the engine

	w := postUpdate(env, testBotToken, testSecret, messageBody(2, 100, "/stats"))
	if w.Code != http.StatusOK {
		t.Errorf("engine failure must not leak as HTTP error, status = %d", w.Code)
	}

	reply, ok := env.sender.lastSent()
	if !ok {
		t.Fatal("expected a fallback reply")
	}
	if !strings.Contains(reply.text, "Something went wrong") {
		t.Errorf("reply = %q, want generic failure notice", reply.text)
	}
}
