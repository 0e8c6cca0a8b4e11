package bot

import "testing"

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		data string
		kind actionKind
		code string
		page int
	}{
		{"main_menu", actionMainMenu, "", 0},
		{"save_item", actionSaveItem, "", 0},
		{"list_items", actionListItems, "", 0},
		{"get_item", actionGetItem, "", 0},
		{"delete_item", actionDeleteItem, "", 0}, // exact match, not the prefixed family
		{"stats", actionStats, "", 0},
		{"help", actionHelp, "", 0},
		{"cancel_action", actionCancel, "", 0},
		{"view_item_abc123", actionViewItem, "abc123", 0},
		{"delete_item_abc123", actionDeleteItemCode, "abc123", 0},
		{"confirm_delete_abc123", actionConfirmDelete, "abc123", 0},
		{"copy_code_abc123", actionCopyCode, "abc123", 0},
		{"page_2", actionPage, "", 2},
		{"page_-1", actionPage, "", -1},
		{"page_oops", actionUnknown, "", 0},
		{"totally_bogus", actionUnknown, "", 0},
		{"", actionUnknown, "", 0},
	}

	for _, tt := range tests {
		got := parseCallbackData(tt.data)
		if got.kind != tt.kind {
			t.Errorf("parseCallbackData(%q).kind = %v, want %v", tt.data, got.kind, tt.kind)
		}
		if got.code != tt.code {
			t.Errorf("parseCallbackData(%q).code = %q, want %q", tt.data, got.code, tt.code)
		}
		if got.page != tt.page {
			t.Errorf("parseCallbackData(%q).page = %d, want %d", tt.data, got.page, tt.page)
		}
	}
}

func TestKeyboardTruncate(t *testing.T) {
	if got := truncate("short", 30); got != "short" {
		t.Errorf("short strings must pass through, got %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcde..." {
		t.Errorf("expected abcde..., got %q", got)
	}
	// Rune-safe truncation on multibyte input
	if got := truncate("ééééé", 3); got != "ééé..." {
		t.Errorf("expected ééé..., got %q", got)
	}
}

func TestItemListKeyboardNavigation(t *testing.T) {
	items := testItems(3)

	// First of three pages: Next only
	kb := ItemListKeyboard(items, 0, 3, 30)
	nav := kb.Rows[len(kb.Rows)-2]
	if len(nav) != 1 || nav[0].Data != "page_1" {
		t.Errorf("expected single Next button to page_1, got %+v", nav)
	}

	// Middle page: both directions
	kb = ItemListKeyboard(items, 1, 3, 30)
	nav = kb.Rows[len(kb.Rows)-2]
	if len(nav) != 2 || nav[0].Data != "page_0" || nav[1].Data != "page_2" {
		t.Errorf("expected Previous/Next pair, got %+v", nav)
	}

	// Last page: Previous only
	kb = ItemListKeyboard(items, 2, 3, 30)
	nav = kb.Rows[len(kb.Rows)-2]
	if len(nav) != 1 || nav[0].Data != "page_1" {
		t.Errorf("expected single Previous button to page_1, got %+v", nav)
	}

	// Single page: no navigation row at all, just items + menu
	kb = ItemListKeyboard(items, 0, 1, 30)
	if len(kb.Rows) != len(items)+1 {
		t.Errorf("expected %d rows without navigation, got %d", len(items)+1, len(kb.Rows))
	}
}
