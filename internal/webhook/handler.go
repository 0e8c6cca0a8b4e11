// Package webhook receives Telegram webhook posts, authenticates them,
// and dispatches each update to the interaction engine.
package webhook

import (
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/tinyvault/tinyvault-go/internal/bot"
	"github.com/tinyvault/tinyvault-go/internal/logger"
	"github.com/tinyvault/tinyvault-go/internal/metrics"
	"github.com/tinyvault/tinyvault-go/internal/ratelimit"
	"github.com/tinyvault/tinyvault-go/internal/sentry"
	"github.com/tinyvault/tinyvault-go/internal/telegram"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const msgRateLimited = "⏳ Too many requests. Please slow down and try again in a moment."

// Sender is the delivery side of the handler. Satisfied by
// telegram.Sender; faked in tests.
type Sender interface {
	Send(chatID int64, text string, kb *bot.Keyboard) bool
	AnswerCallback(callbackID string)
}

// Handler handles Telegram webhook requests.
type Handler struct {
	botToken      string
	webhookSecret string
	processor     *bot.Processor
	sender        Sender
	userLimiter   *ratelimit.KeyedLimiter
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	BotToken      string
	WebhookSecret string
	Processor     *bot.Processor
	Sender        Sender
	UserLimiter   *ratelimit.KeyedLimiter
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		botToken:      cfg.BotToken,
		webhookSecret: cfg.WebhookSecret,
		processor:     cfg.Processor,
		sender:        cfg.Sender,
		userLimiter:   cfg.UserLimiter,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
}

// Handle is the Gin handler for the webhook endpoint. Telegram re-sends
// an update until it receives 200, so every authenticated request is
// acknowledged with 200 regardless of how processing went; replay
// safety comes from the engine's dedup set, not from error statuses.
func (h *Handler) Handle(c *gin.Context) {
	// 1. Authenticate: path token plus optional secret header.
	if c.Param("token") != h.botToken {
		h.logger.Warn("Webhook request with wrong bot token path")
		c.Status(http.StatusForbidden)
		return
	}
	if h.webhookSecret != "" && c.GetHeader(secretTokenHeader) != h.webhookSecret {
		h.logger.Warn("Webhook request with invalid secret token header")
		c.Status(http.StatusForbidden)
		return
	}

	// 2. Decode the update envelope.
	var apiUpdate tgbotapi.Update
	if err := c.ShouldBindJSON(&apiUpdate); err != nil {
		h.logger.WithError(err).Warn("Failed to decode webhook body")
		c.Status(http.StatusBadRequest)
		return
	}

	upd := telegram.FromAPIUpdate(apiUpdate)
	chatID := telegram.ChatID(apiUpdate)
	callbackID := telegram.CallbackID(apiUpdate)

	// 3. Per-user rate limit, applied before any engine work.
	if sender := upd.SenderID(); sender != 0 && h.userLimiter != nil && !h.userLimiter.Allow(sender) {
		h.logger.WithUpdateID(upd.ID).WithField("user_id", sender).Warn("User rate limit exceeded")
		h.sender.AnswerCallback(callbackID)
		h.sender.Send(chatID, msgRateLimited, nil)
		c.Status(http.StatusOK)
		return
	}

	// 4. Run the engine and deliver its reply.
	start := time.Now()
	result := h.processor.Process(c.Request.Context(), upd)

	h.sender.AnswerCallback(callbackID)

	if result.Status == bot.StatusError {
		h.logger.WithUpdateID(upd.ID).WithField("reason", result.Reason).Error("Update processing failed")
		sentry.CaptureExceptionWithContext(c.Request.Context(), errors.New("process update: "+result.Reason))
	}

	delivered := false
	if result.Text != "" {
		delivered = h.sender.Send(chatID, result.Text, result.Keyboard)
	}

	h.logger.WithUpdateID(upd.ID).
		WithField("status", string(result.Status)).
		WithField("command", result.Command).
		WithField("delivered", delivered).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Update handled")

	c.Status(http.StatusOK)
}
