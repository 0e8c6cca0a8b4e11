package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:test-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Bot.MaxContentBytes != 10000 {
		t.Errorf("expected content cap 10000, got %d", cfg.Bot.MaxContentBytes)
	}
	if cfg.Bot.MaxNoteChars != 300 {
		t.Errorf("expected note cap 300, got %d", cfg.Bot.MaxNoteChars)
	}
	if cfg.Bot.PageSize != 5 {
		t.Errorf("expected page size 5, got %d", cfg.Bot.PageSize)
	}
	if cfg.Bot.DedupMaxEntries != 1000 || cfg.Bot.DedupKeepEntries != 500 {
		t.Errorf("unexpected dedup bounds: %d/%d", cfg.Bot.DedupMaxEntries, cfg.Bot.DedupKeepEntries)
	}
	if cfg.Bot.DedupWindow != 24*time.Hour {
		t.Errorf("expected 24h dedup window, got %v", cfg.Bot.DedupWindow)
	}
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error without bot token")
	}
	if !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Errorf("error should name the missing variable: %v", err)
	}
}

func TestBotConfigValidate(t *testing.T) {
	b := BotConfig{
		MaxContentBytes:  10000,
		MaxNoteChars:     300,
		ListLimit:        3,
		PageSize:         5,
		PreviewLength:    30,
		ShortCodeChars:   6,
		DedupMaxEntries:  100,
		DedupKeepEntries: 500,
		DedupWindow:      time.Hour,
	}

	err := b.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"LIST_LIMIT", "DEDUP_KEEP_ENTRIES"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error mentioning %s, got: %v", want, err)
		}
	}
}

func TestSQLitePath(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/tinyvault"}
	if got := cfg.SQLitePath(); got != "/var/lib/tinyvault/tinyvault.db" {
		t.Errorf("unexpected sqlite path: %s", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:test-token")
	t.Setenv("PAGE_SIZE", "10")
	t.Setenv("DEDUP_WINDOW", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Bot.PageSize != 10 {
		t.Errorf("expected page size override 10, got %d", cfg.Bot.PageSize)
	}
	if cfg.Bot.DedupWindow != time.Hour {
		t.Errorf("expected dedup window override 1h, got %v", cfg.Bot.DedupWindow)
	}
}
