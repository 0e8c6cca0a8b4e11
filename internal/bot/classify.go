package bot

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/tinyvault/tinyvault-go/internal/errors"
	"github.com/tinyvault/tinyvault-go/internal/storage"
)

// URL detection heuristics, checked in order against the trimmed input.
// First match wins; no match means the content is a note.
var (
	schemePattern     = regexp.MustCompile(`^https?://`)
	wwwPattern        = regexp.MustCompile(`^www\.`)
	bareDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+\.(com|org|net|io|co|me|dev)$`)
)

// strictURLPattern is the shape check applied when content is explicitly
// declared a URL: scheme, then a dotted domain, localhost, or an IPv4
// address, with optional port and path/query.
var strictURLPattern = regexp.MustCompile(
	`(?i)^https?://` +
		`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|localhost|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`)

// Classify labels free-form text as a URL or a note. Pure best-effort
// heuristic; validation is a separate concern.
func Classify(content string) string {
	trimmed := strings.TrimSpace(content)
	if schemePattern.MatchString(trimmed) ||
		wwwPattern.MatchString(trimmed) ||
		bareDomainPattern.MatchString(trimmed) {
		return storage.KindURL
	}
	return storage.KindNote
}

// ValidateContent checks candidate item content against the engine limits.
// explicitKind may be empty, in which case the classifier decides the kind;
// the strict URL shape check only applies to an explicitly declared URL.
// Returns nil when the content is acceptable.
func ValidateContent(content, explicitKind string, maxBytes, maxNoteChars int) *apperrors.ValidationError {
	var errs []string

	if strings.TrimSpace(content) == "" {
		errs = append(errs, "Content cannot be empty")
	}
	if len(content) > maxBytes {
		errs = append(errs, fmt.Sprintf("Content too long (max %d bytes)", maxBytes))
	}

	kind := explicitKind
	if kind == "" {
		kind = Classify(content)
	}
	if kind == storage.KindNote && utf8.RuneCountInString(content) > maxNoteChars {
		errs = append(errs, fmt.Sprintf("Note too long (max %d characters)", maxNoteChars))
	}
	if explicitKind == storage.KindURL && !strictURLPattern.MatchString(content) {
		errs = append(errs, "Invalid URL format")
	}

	if len(errs) > 0 {
		return apperrors.NewValidationError(errs...)
	}
	return nil
}
