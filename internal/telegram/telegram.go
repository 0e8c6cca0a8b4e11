// Package telegram is the delivery channel: it adapts the engine's
// platform-neutral updates and keyboards to the Telegram Bot API.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tinyvault/tinyvault-go/internal/bot"
	"github.com/tinyvault/tinyvault-go/internal/logger"
	"github.com/tinyvault/tinyvault-go/internal/metrics"
)

// FromAPIUpdate converts a decoded Bot API update into the engine's
// envelope. Updates that carry neither a text message nor a callback
// query produce an envelope with both fields nil, which the engine
// ignores.
func FromAPIUpdate(u tgbotapi.Update) bot.Update {
	out := bot.Update{ID: int64(u.UpdateID)}

	if u.Message != nil && u.Message.From != nil {
		out.Message = &bot.Message{
			From: u.Message.From.ID,
			Text: u.Message.Text,
		}
		return out
	}

	if u.CallbackQuery != nil && u.CallbackQuery.From != nil {
		out.Callback = &bot.Callback{
			From: u.CallbackQuery.From.ID,
			Data: u.CallbackQuery.Data,
		}
	}
	return out
}

// ChatID returns the chat to reply to, or 0 when the update has no
// usable destination.
func ChatID(u tgbotapi.Update) int64 {
	if u.Message != nil && u.Message.Chat != nil {
		return u.Message.Chat.ID
	}
	if u.CallbackQuery != nil {
		if u.CallbackQuery.Message != nil && u.CallbackQuery.Message.Chat != nil {
			return u.CallbackQuery.Message.Chat.ID
		}
		if u.CallbackQuery.From != nil {
			return u.CallbackQuery.From.ID
		}
	}
	return 0
}

// CallbackID returns the callback query id to acknowledge, if any.
func CallbackID(u tgbotapi.Update) string {
	if u.CallbackQuery != nil {
		return u.CallbackQuery.ID
	}
	return ""
}

// Sender delivers engine replies over the Bot API. Sends are
// fire-and-report-failure: a failed delivery is logged and counted but
// never retried, and never rolls back engine state.
type Sender struct {
	api     *tgbotapi.BotAPI
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewSender creates a Sender for the given bot token. The constructor
// calls getMe, so it fails fast on an invalid token.
func NewSender(token string, log *logger.Logger, m *metrics.Metrics) (*Sender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}
	return &Sender{api: api, logger: log, metrics: m}, nil
}

// BotUsername returns the authenticated bot's username.
func (s *Sender) BotUsername() string {
	return s.api.Self.UserName
}

// Send delivers text plus an optional keyboard to the chat. Reports
// success as a bool.
func (s *Sender) Send(chatID int64, text string, kb *bot.Keyboard) bool {
	if chatID == 0 || text == "" {
		return false
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = toInlineKeyboard(kb)
	}

	if _, err := s.api.Send(msg); err != nil {
		s.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to deliver reply")
		if s.metrics != nil {
			s.metrics.RecordDeliveryFailure()
		}
		return false
	}
	return true
}

// AnswerCallback acknowledges a button press so the client stops
// showing its progress indicator. Best effort.
func (s *Sender) AnswerCallback(callbackID string) {
	if callbackID == "" {
		return
	}
	if _, err := s.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		s.logger.WithError(err).Debug("Failed to answer callback query")
	}
}

// toInlineKeyboard converts the engine's button grid into Telegram
// inline keyboard markup.
func toInlineKeyboard(kb *bot.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
