// Package bot implements the interaction engine: update deduplication,
// the per-user conversation state machine, command/dialog/callback
// routing, short code generation, and keyboard layouts. The engine only
// consumes store interfaces and produces plain data results; transport
// and delivery live in other packages.
package bot

import (
	"context"
	"strings"
	"time"

	"github.com/tinyvault/tinyvault-go/internal/config"
	"github.com/tinyvault/tinyvault-go/internal/logger"
	"github.com/tinyvault/tinyvault-go/internal/metrics"
	"github.com/tinyvault/tinyvault-go/internal/storage"
)

const msgTryAgain = "⚠️ Something went wrong, please try again."

// UserStore is the engine's view of the user repository.
type UserStore interface {
	FindUserByTelegramID(ctx context.Context, telegramUserID int64) (*storage.User, error)
	CreateOrTouchUser(ctx context.Context, telegramUserID int64) (*storage.User, error)
}

// ItemStore is the engine's view of the item repository.
type ItemStore interface {
	CreateItem(ctx context.Context, ownerUserID int64, shortCode, kind, content string) (*storage.Item, error)
	FindItemByCode(ctx context.Context, shortCode string) (*storage.Item, error)
	ListItemsByOwner(ctx context.Context, ownerUserID int64, limit int) ([]storage.Item, error)
	SoftDeleteItem(ctx context.Context, shortCode string, ownerUserID int64) (bool, error)
	IsCodeAvailable(ctx context.Context, shortCode string) (bool, error)
	ItemStatsByOwner(ctx context.Context, ownerUserID int64) (*storage.ItemStats, error)
}

// session carries the resolved user through one update's routing.
// known reports whether the user existed before this update arrived,
// which is what "has used /start" means to the handlers.
type session struct {
	user  *storage.User
	known bool
}

// Processor is the engine's top-level entry point, invoked once per
// inbound update.
type Processor struct {
	users   UserStore
	items   ItemStore
	states  *StateStore
	dedup   *ProcessedUpdateSet
	codes   *ShortCodeGenerator
	cfg     config.BotConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// ProcessorConfig holds the collaborators for NewProcessor.
// Metrics may be nil (tests).
type ProcessorConfig struct {
	Users     UserStore
	Items     ItemStore
	States    *StateStore
	Dedup     *ProcessedUpdateSet
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	BotConfig config.BotConfig
}

// NewProcessor creates the engine. States and Dedup may be nil, in which
// case fresh in-memory instances are created from the config limits.
func NewProcessor(cfg ProcessorConfig) *Processor {
	states := cfg.States
	if states == nil {
		states = NewStateStore()
	}
	dedup := cfg.Dedup
	if dedup == nil {
		dedup = NewProcessedUpdateSet(
			cfg.BotConfig.DedupMaxEntries,
			cfg.BotConfig.DedupKeepEntries,
			cfg.BotConfig.DedupWindow,
		)
	}

	p := &Processor{
		users:   cfg.Users,
		items:   cfg.Items,
		states:  states,
		dedup:   dedup,
		cfg:     cfg.BotConfig,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	p.codes = NewShortCodeGenerator(cfg.BotConfig.ShortCodeChars, cfg.Items, func() {
		if p.metrics != nil {
			p.metrics.RecordShortCodeRetry()
		}
	})
	return p
}

// Dedup exposes the replay guard for the background sweep job.
func (p *Processor) Dedup() *ProcessedUpdateSet {
	return p.dedup
}

// States exposes the conversation state store for the size metrics job.
func (p *Processor) States() *StateStore {
	return p.states
}

// Process runs one update through the engine and returns the structured
// result. It never panics through to the caller and never returns an
// error: failures surface as StatusError results so the webhook layer
// can still acknowledge the upstream platform.
func (p *Processor) Process(ctx context.Context, upd Update) Result {
	start := time.Now()
	updateType := "message"
	if upd.Callback != nil {
		updateType = "callback"
	}

	res := p.processUpdate(ctx, upd)

	if p.metrics != nil {
		p.metrics.RecordWebhook(updateType, string(res.Status), time.Since(start).Seconds())
	}
	return res
}

func (p *Processor) processUpdate(ctx context.Context, upd Update) Result {
	if upd.Message == nil && upd.Callback == nil {
		return Result{Status: StatusIgnored, Reason: "no content", UpdateID: upd.ID}
	}

	// Reserve the update id before any side effect. A concurrent
	// delivery of the same id fails the reservation and is skipped.
	if !p.dedup.Begin(upd.ID) {
		if p.metrics != nil {
			p.metrics.RecordDeduped()
		}
		p.logger.WithUpdateID(upd.ID).Debug("duplicate update skipped")
		return Result{Status: StatusIgnored, Reason: "already processed", UpdateID: upd.ID}
	}

	// Same-user requests serialize here so two quick taps cannot
	// interleave their conversation state reads and writes.
	unlock := p.states.LockUser(upd.SenderID())
	defer unlock()

	res, err := p.route(ctx, upd)
	if err != nil {
		// Release the reservation: an errored update must stay
		// retryable by the upstream platform's redelivery.
		p.dedup.Rollback(upd.ID)
		p.logger.WithUpdateID(upd.ID).WithError(err).Error("Update processing failed")
		return Result{
			Status:   StatusError,
			Reason:   err.Error(),
			Text:     msgTryAgain,
			Keyboard: MainMenuKeyboard(),
			UpdateID: upd.ID,
		}
	}

	p.dedup.Commit(upd.ID)
	res.Status = StatusProcessed
	res.UpdateID = upd.ID
	return res
}

// route resolves the user and dispatches the update to the command,
// dialog, or callback path.
func (p *Processor) route(ctx context.Context, upd Update) (Result, error) {
	senderID := upd.SenderID()

	existing, err := p.users.FindUserByTelegramID(ctx, senderID)
	if err != nil {
		return Result{}, err
	}
	user, err := p.users.CreateOrTouchUser(ctx, senderID)
	if err != nil {
		return Result{}, err
	}
	sess := &session{user: user, known: existing != nil}

	if upd.Callback != nil {
		reply, err := p.routeCallback(ctx, sess, upd.Callback.Data)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Command:  upd.Callback.Data,
			Text:     reply.Text,
			Keyboard: reply.Keyboard,
			UserID:   user.ID,
		}, nil
	}

	text := strings.TrimSpace(upd.Message.Text)
	if strings.HasPrefix(text, "/") {
		token, reply, err := p.routeCommand(ctx, sess, text)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Command:  token,
			Text:     reply.Text,
			Keyboard: reply.Keyboard,
			UserID:   user.ID,
		}, nil
	}

	reply, err := p.routeDialog(ctx, sess, text)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:     reply.Text,
		Keyboard: reply.Keyboard,
		UserID:   user.ID,
	}, nil
}
