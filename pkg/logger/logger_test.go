package logger

import (
	"testing"

	"github.com/wxve/chat-site/pkg/observability"
)

func TestSetLogger_ReplacesAndResets(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	test := observability.NewTestLogger()
	SetLogger(test)
	Logger().Info("hello")
	if len(test.Entries()) != 1 {
		t.Fatalf("expected entry on the installed logger, got %d", len(test.Entries()))
	}

	SetLogger(nil)
	Logger().Info("dropped")
	if len(test.Entries()) != 1 {
		t.Fatalf("expected reset logger to stop writing to the test logger")
	}
	if !Logger().IsHealthy() {
		t.Fatal("expected no-op logger to be healthy")
	}
}

func TestSanitizeLogString(t *testing.T) {
	if got := SanitizeLogString("a\nb"); got != "ab" {
		t.Fatalf("expected ab, got %q", got)
	}
}
