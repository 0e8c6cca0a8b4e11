package bot

import (
	"strings"
	"testing"

	"github.com/tinyvault/tinyvault-go/internal/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"https://example.com", storage.KindURL},
		{"http://example.com/path?q=1", storage.KindURL},
		{"www.example.com", storage.KindURL},
		{"example.com", storage.KindURL},
		{"example.io", storage.KindURL},
		{"example.comm", storage.KindNote}, // unknown suffix
		{"hello world", storage.KindNote},
		{"Buy milk", storage.KindNote},
		{"  https://example.com  ", storage.KindURL}, // trimmed before matching
		{"note mentioning https://example.com", storage.KindNote},
	}

	for _, tt := range tests {
		if got := Classify(tt.content); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.content, got, tt.want)
		}
	}
}

func TestValidateContentLimits(t *testing.T) {
	const maxBytes = 10000
	const maxNote = 300

	if verr := ValidateContent(strings.Repeat("a", 300), "", maxBytes, maxNote); verr != nil {
		t.Errorf("300-char note should pass, got %v", verr)
	}
	if verr := ValidateContent(strings.Repeat("a", 301), "", maxBytes, maxNote); verr == nil {
		t.Error("301-char note should fail")
	}
	if verr := ValidateContent("", "", maxBytes, maxNote); verr == nil {
		t.Error("empty content should fail")
	}
	if verr := ValidateContent("   ", "", maxBytes, maxNote); verr == nil {
		t.Error("whitespace-only content should fail")
	}

	// Byte limit applies regardless of kind; a URL-classified payload of
	// 10001 bytes must fail too.
	long := "https://example.com/" + strings.Repeat("a", 10001)
	if verr := ValidateContent(long, "", maxBytes, maxNote); verr == nil {
		t.Error("10001-byte content should fail")
	}
}

func TestValidateContentExplicitURL(t *testing.T) {
	valid := []string{
		"https://example.com",
		"http://example.com",
		"https://example.com:8080/path?q=1",
		"http://localhost:3000",
		"http://127.0.0.1/health",
		"HTTPS://EXAMPLE.COM",
	}
	for _, url := range valid {
		if verr := ValidateContent(url, storage.KindURL, 10000, 300); verr != nil {
			t.Errorf("ValidateContent(%q, url) = %v, want nil", url, verr)
		}
	}

	invalid := []string{
		"example.com",       // no scheme
		"ftp://example.com", // wrong scheme
		"https://",
		"not a url",
	}
	for _, url := range invalid {
		if verr := ValidateContent(url, storage.KindURL, 10000, 300); verr == nil {
			t.Errorf("ValidateContent(%q, url) = nil, want error", url)
		}
	}
}

func TestValidateContentAutoKindSkipsStrictURLCheck(t *testing.T) {
	// "www.example.com" classifies as url but has no scheme; without an
	// explicit kind the strict shape check must not reject it.
	if verr := ValidateContent("www.example.com", "", 10000, 300); verr != nil {
		t.Errorf("auto-classified www URL should pass, got %v", verr)
	}
}
