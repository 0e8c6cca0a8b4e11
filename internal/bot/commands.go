package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/tinyvault/tinyvault-go/internal/errors"
	"github.com/tinyvault/tinyvault-go/internal/storage"
)

// Shared user-facing texts. Not-found and no-permission are deliberately
// one message so that item existence is never leaked to non-owners.
const (
	msgNotStarted = "❌ Please use /start first to initialize your account."
	msgNotFound   = "❌ Item not found or you don't have permission to access it."
	msgNoItems    = "📭 You don't have any saved items yet.\nUse /save <content> to save your first item!"
	msgCancelled  = "✅ Action cancelled."
	msgMenu       = "📌 Main Menu\n\nWhat would you like to do?"

	msgHelp = "📚 TinyVault Help\n\n" +
		"Commands:\n" +
		"• /start - Initialize your account\n" +
		"• /help - Show this help message\n" +
		"• /menu - Show the main menu\n" +
		"• /save <content> - Save URL or note\n" +
		"• /list - Show your recent items\n" +
		"• /get <code> - Retrieve item by short code\n" +
		"• /del <code> - Delete item by short code\n" +
		"• /stats - Show your statistics\n" +
		"• /cancel - Cancel the current action\n\n" +
		"Examples:\n" +
		"• /save https://example.com\n" +
		"• /save My important note\n" +
		"• /get abc123\n" +
		"• /del abc123"

	msgUnknownCommand = "❓ Unknown command. Use /help to see available commands."
)

// Command identifies a recognized slash command.
type Command int

const (
	CmdUnknown Command = iota
	CmdStart
	CmdHelp
	CmdMenu
	CmdCancel
	CmdSave
	CmdList
	CmdGet
	CmdDel
	CmdStats
)

var commandTokens = map[string]Command{
	"start":  CmdStart,
	"help":   CmdHelp,
	"menu":   CmdMenu,
	"cancel": CmdCancel,
	"save":   CmdSave,
	"list":   CmdList,
	"get":    CmdGet,
	"del":    CmdDel,
	"stats":  CmdStats,
}

// ParseCommand maps a lower-cased command token (without the slash) to
// its Command value. Unrecognized tokens map to CmdUnknown.
func ParseCommand(token string) Command {
	if cmd, ok := commandTokens[token]; ok {
		return cmd
	}
	return CmdUnknown
}

func (c Command) String() string {
	for token, cmd := range commandTokens {
		if cmd == c {
			return token
		}
	}
	return "unknown"
}

// commandSpec declares a command's argument bounds and handler.
// maxArgs -1 means unlimited; surplus arguments beyond an unlimited
// bound are joined into the content by the handler.
type commandSpec struct {
	minArgs int
	maxArgs int
	usage   string
	handler func(*Processor, context.Context, *session, []string) (Reply, error)
}

var commandTable = map[Command]commandSpec{
	CmdStart:  {0, -1, "", (*Processor).handleStart},
	CmdHelp:   {0, -1, "", (*Processor).handleHelp},
	CmdMenu:   {0, -1, "", (*Processor).handleMenu},
	CmdCancel: {0, -1, "", (*Processor).handleCancel},
	CmdSave:   {1, -1, "Please provide content to save.\nUsage: /save <content>", (*Processor).handleSave},
	CmdList:   {0, -1, "", (*Processor).handleList},
	CmdGet:    {1, 1, "Please provide a short code.\nUsage: /get <code>", (*Processor).handleGet},
	CmdDel:    {1, 1, "Please provide a short code.\nUsage: /del <code>", (*Processor).handleDel},
	CmdStats:  {0, -1, "", (*Processor).handleStats},
}

// routeCommand tokenizes a slash-command message and dispatches it.
// Returns the echoed command token alongside the handler's reply.
func (p *Processor) routeCommand(ctx context.Context, sess *session, text string) (string, Reply, error) {
	fields := strings.Fields(text)
	token := strings.ToLower(fields[0])
	args := fields[1:]

	cmd := ParseCommand(strings.TrimPrefix(token, "/"))
	if p.metrics != nil {
		p.metrics.RecordCommand(cmd.String())
	}

	spec, ok := commandTable[cmd]
	if !ok {
		return token, Reply{Text: msgUnknownCommand, Keyboard: MainMenuKeyboard()}, nil
	}
	if len(args) < spec.minArgs || (spec.maxArgs >= 0 && len(args) > spec.maxArgs) {
		return token, Reply{Text: "❌ " + spec.usage, Keyboard: MainMenuKeyboard()}, nil
	}

	reply, err := spec.handler(p, ctx, sess, args)
	return token, reply, err
}

func (p *Processor) handleStart(ctx context.Context, sess *session, _ []string) (Reply, error) {
	p.states.Clear(sess.user.TelegramUserID)

	text := fmt.Sprintf(
		"👋 Welcome to TinyVault!\n\n"+
			"Your user ID: %d\n\n"+
			"Available commands:\n"+
			"/help - Show this help message\n"+
			"/save <content> - Save URL or note\n"+
			"/list - Show your recent items\n"+
			"/get <code> - Retrieve item by code\n"+
			"/del <code> - Delete item by code",
		sess.user.ID)
	return Reply{Text: text, Keyboard: MainMenuKeyboard()}, nil
}

func (p *Processor) handleHelp(_ context.Context, _ *session, _ []string) (Reply, error) {
	return Reply{Text: msgHelp, Keyboard: MainMenuKeyboard()}, nil
}

func (p *Processor) handleMenu(_ context.Context, sess *session, _ []string) (Reply, error) {
	if !sess.known {
		// No layout here: the user has to issue /start before the menu
		// actions mean anything.
		return Reply{Text: msgNotStarted}, nil
	}
	return Reply{Text: msgMenu, Keyboard: MainMenuKeyboard()}, nil
}

func (p *Processor) handleCancel(_ context.Context, sess *session, _ []string) (Reply, error) {
	p.states.Clear(sess.user.TelegramUserID)
	return Reply{Text: msgCancelled, Keyboard: MainMenuKeyboard()}, nil
}

func (p *Processor) handleSave(ctx context.Context, sess *session, args []string) (Reply, error) {
	return p.saveContent(ctx, sess, strings.Join(args, " "))
}

func (p *Processor) handleList(ctx context.Context, sess *session, _ []string) (Reply, error) {
	if !sess.known {
		return Reply{Text: msgNotStarted, Keyboard: MainMenuKeyboard()}, nil
	}

	items, err := p.items.ListItemsByOwner(ctx, sess.user.ID, p.cfg.ListLimit)
	if err != nil {
		return Reply{}, err
	}
	if len(items) == 0 {
		return Reply{Text: msgNoItems, Keyboard: MainMenuKeyboard()}, nil
	}

	codes := make([]string, len(items))
	for i, item := range items {
		codes[i] = item.ShortCode
	}
	p.states.Set(sess.user.TelegramUserID, StateViewingItems, map[string]string{
		stateKeyCodes: strings.Join(codes, ","),
		stateKeyPage:  "0",
	})

	return p.renderItemPage(items, 0), nil
}

func (p *Processor) handleGet(ctx context.Context, sess *session, args []string) (Reply, error) {
	return p.getItemReply(ctx, sess, strings.TrimSpace(args[0]))
}

func (p *Processor) handleDel(ctx context.Context, sess *session, args []string) (Reply, error) {
	return p.requestDelete(ctx, sess, strings.TrimSpace(args[0]))
}

func (p *Processor) handleStats(ctx context.Context, sess *session, _ []string) (Reply, error) {
	if !sess.known {
		return Reply{Text: msgNotStarted, Keyboard: MainMenuKeyboard()}, nil
	}

	stats, err := p.items.ItemStatsByOwner(ctx, sess.user.ID)
	if err != nil {
		return Reply{}, err
	}

	text := fmt.Sprintf(
		"📊 Your Statistics\n\n"+
			"📦 Total items: %d\n"+
			"🔗 URLs: %d\n"+
			"📝 Notes: %d\n\n"+
			"📅 First seen: %s\n"+
			"🕒 Last seen: %s",
		stats.Total, stats.URLs, stats.Notes,
		sess.user.FirstSeen().Format("2006-01-02 15:04"),
		sess.user.LastSeen().Format("2006-01-02 15:04"))
	return Reply{Text: text, Keyboard: StatsKeyboard()}, nil
}

// saveContent validates and stores free-form content for the user.
// Shared by the /save command, the awaiting_content dialog step, and
// nothing else; both paths produce the same reply shape.
func (p *Processor) saveContent(ctx context.Context, sess *session, content string) (Reply, error) {
	if verr := ValidateContent(content, "", p.cfg.MaxContentBytes, p.cfg.MaxNoteChars); verr != nil {
		return Reply{Text: "❌ Validation failed: " + verr.UserMessage(), Keyboard: MainMenuKeyboard()}, nil
	}

	kind := Classify(content)
	item, err := p.createItemWithFreshCode(ctx, sess.user.ID, kind, content)
	if err != nil {
		return Reply{}, err
	}
	if p.metrics != nil {
		p.metrics.RecordItemCreated(kind)
	}

	text := fmt.Sprintf(
		"✅ Item saved successfully!\n\n"+
			"📝 Content: %s\n"+
			"🔗 Short Code: `%s`\n"+
			"📂 Type: %s\n\n"+
			"Use `/get %s` to retrieve it later!",
		truncate(content, 100), item.ShortCode, kindLabel(kind), item.ShortCode)
	return Reply{Text: text, Keyboard: ItemDetailKeyboard(item.ShortCode)}, nil
}

// createItemWithFreshCode generates codes and inserts until the insert
// wins the claim race. A duplicate-code error just means another request
// claimed the same code between the availability check and the insert.
func (p *Processor) createItemWithFreshCode(ctx context.Context, ownerID int64, kind, content string) (*storage.Item, error) {
	for {
		code, err := p.codes.Generate(ctx)
		if err != nil {
			return nil, err
		}

		item, err := p.items.CreateItem(ctx, ownerID, code, kind, content)
		if errors.Is(err, apperrors.ErrDuplicateCode) {
			if p.metrics != nil {
				p.metrics.RecordShortCodeRetry()
			}
			continue
		}
		return item, err
	}
}

// fetchOwnedItem resolves a short code to an item the user owns.
// Returns nil (without error) for missing items and foreign items alike.
func (p *Processor) fetchOwnedItem(ctx context.Context, sess *session, code string) (*storage.Item, error) {
	item, err := p.items.FindItemByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OwnerUserID != sess.user.ID {
		return nil, nil
	}
	return item, nil
}

// getItemReply is the shared /get implementation: full item detail with
// delete/copy actions, or the generic not-found message.
func (p *Processor) getItemReply(ctx context.Context, sess *session, code string) (Reply, error) {
	if !sess.known {
		return Reply{Text: msgNotStarted, Keyboard: MainMenuKeyboard()}, nil
	}

	item, err := p.fetchOwnedItem(ctx, sess, code)
	if err != nil {
		return Reply{}, err
	}
	if item == nil {
		return Reply{Text: msgNotFound, Keyboard: MainMenuKeyboard()}, nil
	}

	text := fmt.Sprintf(
		"📋 Item Details\n\n"+
			"🔗 Short Code: `%s`\n"+
			"📂 Type: %s\n"+
			"📅 Created: %s\n\n"+
			"📝 Content:\n%s",
		item.ShortCode, kindLabel(item.Kind),
		item.Created().Format("2006-01-02 15:04"), item.Content)
	return Reply{Text: text, Keyboard: ItemDetailKeyboard(item.ShortCode)}, nil
}

// requestDelete is the shared /del implementation. It never deletes
// directly: it parks the code in conversation state and asks for
// confirmation.
func (p *Processor) requestDelete(ctx context.Context, sess *session, code string) (Reply, error) {
	if !sess.known {
		return Reply{Text: msgNotStarted, Keyboard: MainMenuKeyboard()}, nil
	}

	item, err := p.fetchOwnedItem(ctx, sess, code)
	if err != nil {
		return Reply{}, err
	}
	if item == nil {
		return Reply{Text: msgNotFound, Keyboard: MainMenuKeyboard()}, nil
	}

	p.states.Set(sess.user.TelegramUserID, StateConfirmingDelete, map[string]string{
		stateKeyPendingCode: item.ShortCode,
	})

	text := fmt.Sprintf(
		"⚠️ Are you sure you want to delete item `%s`?\n\n"+
			"📝 %s\n\n"+
			"This cannot be undone.",
		item.ShortCode, truncate(item.Content, 100))
	return Reply{Text: text, Keyboard: ConfirmDeleteKeyboard(item.ShortCode)}, nil
}

// confirmDelete performs the actual soft delete after confirmation.
func (p *Processor) confirmDelete(ctx context.Context, sess *session, code string) (Reply, error) {
	if !sess.known {
		return Reply{Text: msgNotStarted, Keyboard: MainMenuKeyboard()}, nil
	}

	deleted, err := p.items.SoftDeleteItem(ctx, code, sess.user.ID)
	p.states.Clear(sess.user.TelegramUserID)
	if err != nil {
		return Reply{}, err
	}

	if !deleted {
		return Reply{Text: msgNotFound, Keyboard: MainMenuKeyboard()}, nil
	}
	if p.metrics != nil {
		p.metrics.RecordItemDeleted()
	}
	return Reply{
		Text:     fmt.Sprintf("✅ Item `%s` has been deleted successfully.", code),
		Keyboard: MainMenuKeyboard(),
	}, nil
}

// renderItemPage builds the list reply for an already-clamped page.
func (p *Processor) renderItemPage(items []storage.Item, page int) Reply {
	pages := (len(items) + p.cfg.PageSize - 1) / p.cfg.PageSize
	start := page * p.cfg.PageSize
	end := start + p.cfg.PageSize
	if end > len(items) {
		end = len(items)
	}

	text := fmt.Sprintf(
		"📋 Your recent items (page %d/%d)\n\nTap an item to view its details.",
		page+1, pages)
	return Reply{
		Text:     text,
		Keyboard: ItemListKeyboard(items[start:end], page, pages, p.cfg.PreviewLength),
	}
}

// clampPage maps out-of-range page indexes back to the first page.
func clampPage(page, total, pageSize int) int {
	pages := (total + pageSize - 1) / pageSize
	if page < 0 || page >= pages {
		return 0
	}
	return page
}

func kindLabel(kind string) string {
	if kind == storage.KindURL {
		return "URL"
	}
	return "Note"
}
