package bot

import (
	"context"
	"strings"
)

const msgDialogFallback = "🤔 I'm not sure what you want to do. Use the menu below."

// routeDialog interprets a non-command text message through the user's
// current conversation state. Only reachable for messages; commands and
// callbacks are routed elsewhere.
func (p *Processor) routeDialog(ctx context.Context, sess *session, text string) (Reply, error) {
	if !sess.known {
		return Reply{Text: msgNotStarted, Keyboard: MainMenuKeyboard()}, nil
	}

	state := p.states.Get(sess.user.TelegramUserID)
	switch state.Tag {
	case StateAwaitingContent:
		// State is cleared before validation so a failed save drops the
		// user back to idle instead of re-capturing their next message.
		p.states.Clear(sess.user.TelegramUserID)
		return p.saveContent(ctx, sess, text)

	case StateAwaitingCode:
		code := strings.TrimSpace(text)
		item, err := p.fetchOwnedItem(ctx, sess, code)
		if err != nil {
			return Reply{}, err
		}
		if item == nil {
			// Stay in awaiting_code so the user can retype the code.
			return Reply{Text: msgNotFound, Keyboard: MainMenuKeyboard()}, nil
		}
		p.states.Clear(sess.user.TelegramUserID)
		return p.getItemReply(ctx, sess, code)

	case StateAwaitingDeleteCode:
		code := strings.TrimSpace(text)
		item, err := p.fetchOwnedItem(ctx, sess, code)
		if err != nil {
			return Reply{}, err
		}
		if item == nil {
			// Stay in awaiting_delete_code for a retry.
			return Reply{Text: msgNotFound, Keyboard: MainMenuKeyboard()}, nil
		}
		return p.requestDelete(ctx, sess, code)

	default:
		return Reply{Text: msgDialogFallback, Keyboard: MainMenuKeyboard()}, nil
	}
}
