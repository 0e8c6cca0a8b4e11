package bot

import (
	"context"
	"crypto/rand"
	"fmt"
)

// codeAlphabet is the 62-symbol alphabet for short codes.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// CodeChecker answers whether a short code can still be assigned.
// Soft-deleted items keep their code, so the store must report those
// codes as taken.
type CodeChecker interface {
	IsCodeAvailable(ctx context.Context, code string) (bool, error)
}

// ShortCodeGenerator produces random short codes and verifies them
// against the item store before handing them out. The availability check
// and the later insert are separate operations; the caller must retry on
// a duplicate-code insert error.
type ShortCodeGenerator struct {
	length  int
	checker CodeChecker
	onRetry func()
}

// NewShortCodeGenerator creates a generator for codes of the given length.
// onRetry, if non-nil, is invoked each time a drawn code was already taken.
func NewShortCodeGenerator(length int, checker CodeChecker, onRetry func()) *ShortCodeGenerator {
	return &ShortCodeGenerator{
		length:  length,
		checker: checker,
		onRetry: onRetry,
	}
}

// Generate draws random codes until one is available. Collisions are
// vanishingly rare at realistic item counts, so no retry cap is applied;
// store errors abort immediately.
func (g *ShortCodeGenerator) Generate(ctx context.Context) (string, error) {
	for {
		code, err := randomCode(g.length)
		if err != nil {
			return "", fmt.Errorf("draw short code: %w", err)
		}

		available, err := g.checker.IsCodeAvailable(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code availability: %w", err)
		}
		if available {
			return code, nil
		}

		if g.onRetry != nil {
			g.onRetry()
		}
	}
}

// randomCode draws length symbols uniformly from codeAlphabet.
// Rejection sampling above 248 (the largest multiple of 62 below 256)
// keeps the distribution unbiased.
func randomCode(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, 16)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 248 {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
