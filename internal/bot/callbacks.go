package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tinyvault/tinyvault-go/internal/storage"
)

const (
	msgPromptSave    = "📝 Send me the content you want to save (a URL or a note)."
	msgPromptGet     = "🔑 Send me the short code of the item you want to retrieve."
	msgPromptDelete  = "🗑 Send me the short code of the item you want to delete."
	msgUnknownAction = "❓ Unknown action. Use the menu below."
)

// actionKind is the typed form of a callback payload family.
type actionKind int

const (
	actionUnknown actionKind = iota
	actionMainMenu
	actionSaveItem
	actionListItems
	actionGetItem
	actionDeleteItem
	actionStats
	actionHelp
	actionCancel
	actionViewItem
	actionDeleteItemCode
	actionConfirmDelete
	actionCopyCode
	actionPage
)

var actionNames = map[actionKind]string{
	actionUnknown:        "unknown",
	actionMainMenu:       "main_menu",
	actionSaveItem:       "save_item",
	actionListItems:      "list_items",
	actionGetItem:        "get_item",
	actionDeleteItem:     "delete_item",
	actionStats:          "stats",
	actionHelp:           "help",
	actionCancel:         "cancel_action",
	actionViewItem:       "view_item",
	actionDeleteItemCode: "delete_item_code",
	actionConfirmDelete:  "confirm_delete",
	actionCopyCode:       "copy_code",
	actionPage:           "page",
}

func (k actionKind) String() string {
	return actionNames[k]
}

// callbackAction is a parsed callback payload: the family plus its
// embedded argument, if any.
type callbackAction struct {
	kind actionKind
	code string
	page int
}

// parseCallbackData turns an opaque payload into a typed action.
// Exact tokens are matched before prefixed families, so the bare
// "delete_item" menu action is never mistaken for "delete_item_<code>".
// Anything unrecognized maps to actionUnknown; parsing never fails.
func parseCallbackData(data string) callbackAction {
	switch data {
	case cbMainMenu:
		return callbackAction{kind: actionMainMenu}
	case cbSaveItem:
		return callbackAction{kind: actionSaveItem}
	case cbListItems:
		return callbackAction{kind: actionListItems}
	case cbGetItem:
		return callbackAction{kind: actionGetItem}
	case cbDeleteItem:
		return callbackAction{kind: actionDeleteItem}
	case cbStats:
		return callbackAction{kind: actionStats}
	case cbHelp:
		return callbackAction{kind: actionHelp}
	case cbCancel:
		return callbackAction{kind: actionCancel}
	}

	switch {
	case strings.HasPrefix(data, prefixConfirmDelete):
		return callbackAction{kind: actionConfirmDelete, code: strings.TrimPrefix(data, prefixConfirmDelete)}
	case strings.HasPrefix(data, prefixDeleteItem):
		return callbackAction{kind: actionDeleteItemCode, code: strings.TrimPrefix(data, prefixDeleteItem)}
	case strings.HasPrefix(data, prefixViewItem):
		return callbackAction{kind: actionViewItem, code: strings.TrimPrefix(data, prefixViewItem)}
	case strings.HasPrefix(data, prefixCopyCode):
		return callbackAction{kind: actionCopyCode, code: strings.TrimPrefix(data, prefixCopyCode)}
	case strings.HasPrefix(data, prefixPage):
		page, err := strconv.Atoi(strings.TrimPrefix(data, prefixPage))
		if err != nil {
			return callbackAction{kind: actionUnknown}
		}
		return callbackAction{kind: actionPage, page: page}
	}

	return callbackAction{kind: actionUnknown}
}

// routeCallback dispatches a parsed button press.
func (p *Processor) routeCallback(ctx context.Context, sess *session, data string) (Reply, error) {
	action := parseCallbackData(data)
	if p.metrics != nil {
		p.metrics.RecordCallback(action.kind.String())
	}

	userID := sess.user.TelegramUserID
	switch action.kind {
	case actionMainMenu:
		p.states.Clear(userID)
		return Reply{Text: msgMenu, Keyboard: MainMenuKeyboard()}, nil

	case actionSaveItem:
		p.states.Set(userID, StateAwaitingContent, nil)
		return Reply{Text: msgPromptSave}, nil

	case actionListItems:
		return p.handleList(ctx, sess, nil)

	case actionGetItem:
		p.states.Set(userID, StateAwaitingCode, nil)
		return Reply{Text: msgPromptGet}, nil

	case actionDeleteItem:
		p.states.Set(userID, StateAwaitingDeleteCode, nil)
		return Reply{Text: msgPromptDelete}, nil

	case actionStats:
		return p.handleStats(ctx, sess, nil)

	case actionHelp:
		return p.handleHelp(ctx, sess, nil)

	case actionViewItem:
		return p.getItemReply(ctx, sess, action.code)

	case actionDeleteItemCode:
		return p.requestDelete(ctx, sess, action.code)

	case actionConfirmDelete:
		return p.confirmDelete(ctx, sess, action.code)

	case actionCopyCode:
		text := fmt.Sprintf(
			"🔗 Short code:\n\n%s\n\nCopy it to retrieve the item later with /get.",
			action.code)
		return Reply{Text: text, Keyboard: BackToMenuKeyboard()}, nil

	case actionPage:
		return p.renderCachedPage(ctx, sess, action.page)

	case actionCancel:
		p.states.Clear(userID)
		return Reply{Text: msgCancelled, Keyboard: MainMenuKeyboard()}, nil

	default:
		return Reply{Text: msgUnknownAction, Keyboard: MainMenuKeyboard()}, nil
	}
}

// renderCachedPage re-renders the item list cached in conversation state
// at the requested page. Items deleted since the list was cached are
// skipped; an empty or missing cache falls back to the empty-state reply.
func (p *Processor) renderCachedPage(ctx context.Context, sess *session, page int) (Reply, error) {
	state := p.states.Get(sess.user.TelegramUserID)
	cached := state.Data[stateKeyCodes]
	if state.Tag != StateViewingItems || cached == "" {
		return Reply{Text: msgNoItems, Keyboard: MainMenuKeyboard()}, nil
	}

	codes := strings.Split(cached, ",")
	items := make([]storage.Item, 0, len(codes))
	for _, code := range codes {
		item, err := p.fetchOwnedItem(ctx, sess, code)
		if err != nil {
			return Reply{}, err
		}
		if item != nil {
			items = append(items, *item)
		}
	}
	if len(items) == 0 {
		p.states.Clear(sess.user.TelegramUserID)
		return Reply{Text: msgNoItems, Keyboard: MainMenuKeyboard()}, nil
	}

	page = clampPage(page, len(items), p.cfg.PageSize)
	p.states.Set(sess.user.TelegramUserID, StateViewingItems, map[string]string{
		stateKeyCodes: cached,
		stateKeyPage:  strconv.Itoa(page),
	})
	return p.renderItemPage(items, page), nil
}
