package sentry

import (
	"errors"
	"testing"
)

func TestInitializeDisabledWithoutDSN(t *testing.T) {
	if err := Initialize(Config{}); err != nil {
		t.Errorf("empty DSN should be a no-op, got %v", err)
	}
	if IsEnabled() {
		t.Error("Sentry should stay disabled without a DSN")
	}
}

func TestCaptureIsSafeWhenDisabled(t *testing.T) {
	// Must not panic with no client configured
	CaptureException(errors.New("noop"))
	CaptureMessage("noop")
	Flush(0)
}
