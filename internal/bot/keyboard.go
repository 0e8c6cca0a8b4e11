package bot

import (
	"fmt"

	"github.com/tinyvault/tinyvault-go/internal/storage"
)

// Callback payloads understood by the callback router. Prefixed payloads
// carry an argument after the prefix (a short code or a page number).
const (
	cbMainMenu   = "main_menu"
	cbSaveItem   = "save_item"
	cbListItems  = "list_items"
	cbGetItem    = "get_item"
	cbDeleteItem = "delete_item"
	cbStats      = "stats"
	cbHelp       = "help"
	cbCancel     = "cancel_action"

	prefixViewItem      = "view_item_"
	prefixDeleteItem    = "delete_item_"
	prefixConfirmDelete = "confirm_delete_"
	prefixCopyCode      = "copy_code_"
	prefixPage          = "page_"
)

// Button is a single selectable action. Exactly one of Data (callback
// payload) or URL (navigation target) is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// NewButton creates a callback button.
func NewButton(text, data string) Button {
	return Button{Text: text, Data: data}
}

// NewURLButton creates a navigation button.
func NewURLButton(text, url string) Button {
	return Button{Text: text, URL: url}
}

// Keyboard is a 2-D button layout returned alongside reply text.
// It is plain presentation data; the delivery channel serializes it
// into the platform-specific markup.
type Keyboard struct {
	Rows [][]Button
}

// MainMenuKeyboard returns the top-level menu shown after most replies.
func MainMenuKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{NewButton("➕ Save Item", cbSaveItem), NewButton("📋 My Items", cbListItems)},
		{NewButton("🔍 Get Item", cbGetItem), NewButton("🗑 Delete Item", cbDeleteItem)},
		{NewButton("📊 Statistics", cbStats), NewButton("❓ Help", cbHelp)},
	}}
}

// BackToMenuKeyboard returns a single return-to-menu button.
func BackToMenuKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{NewButton("🏠 Main Menu", cbMainMenu)},
	}}
}

// ItemDetailKeyboard returns the actions offered below an item detail view.
func ItemDetailKeyboard(code string) *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{
			NewButton("🗑 Delete", prefixDeleteItem+code),
			NewButton("📎 Copy Code", prefixCopyCode+code),
		},
		{NewButton("🏠 Main Menu", cbMainMenu)},
	}}
}

// ConfirmDeleteKeyboard returns the yes/no confirmation for a pending delete.
func ConfirmDeleteKeyboard(code string) *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{
			NewButton("✅ Yes, delete it", prefixConfirmDelete+code),
			NewButton("❌ No, keep it", cbCancel),
		},
	}}
}

// StatsKeyboard returns the shortcuts offered below the statistics view.
func StatsKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		{NewButton("📋 View All Items", cbListItems), NewButton("➕ Save New Item", cbSaveItem)},
		{NewButton("🏠 Main Menu", cbMainMenu)},
	}}
}

// ItemListKeyboard renders one page of the item list: one button per item
// showing the short code plus a content preview, navigation buttons when
// more pages exist, and a return-to-menu button.
//
// pageItems must already be the slice for the requested page.
func ItemListKeyboard(pageItems []storage.Item, page, pages, previewLen int) *Keyboard {
	kb := &Keyboard{Rows: make([][]Button, 0, len(pageItems)+2)}

	for _, item := range pageItems {
		label := fmt.Sprintf("%s · %s", item.ShortCode, truncate(item.Content, previewLen))
		kb.Rows = append(kb.Rows, []Button{NewButton(label, prefixViewItem+item.ShortCode)})
	}

	var nav []Button
	if page > 0 {
		nav = append(nav, NewButton("⬅️ Previous", fmt.Sprintf("%s%d", prefixPage, page-1)))
	}
	if page < pages-1 {
		nav = append(nav, NewButton("➡️ Next", fmt.Sprintf("%s%d", prefixPage, page+1)))
	}
	if len(nav) > 0 {
		kb.Rows = append(kb.Rows, nav)
	}

	kb.Rows = append(kb.Rows, []Button{NewButton("🏠 Main Menu", cbMainMenu)})
	return kb
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
