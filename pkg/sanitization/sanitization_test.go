package sanitization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLogString_StripsCRLF(t *testing.T) {
	got := SanitizeLogString("a\r\nb\nc\rd")
	if got != "abcd" {
		t.Fatalf("expected abcd, got %q", got)
	}
}

func TestSanitizeFieldValue_RedactsCredentials(t *testing.T) {
	assert.Equal(t, redactedValue, SanitizeFieldValue("AWS_SECRET_ACCESS_KEY", "abc"))
	assert.Equal(t, redactedValue, SanitizeFieldValue("aws_session_token", "abc"))
	assert.Equal(t, redactedValue, SanitizeFieldValue("github_token", "abc"))
	assert.Equal(t, redactedValue, SanitizeFieldValue("client_credentials", "abc"))
}

func TestSanitizeFieldValue_MasksAccount(t *testing.T) {
	assert.Equal(t, "********9012", SanitizeFieldValue("account", "123456789012"))
	assert.Equal(t, redactedValue, SanitizeFieldValue("account", "12"))
	assert.Equal(t, redactedValue, SanitizeFieldValue("account_id", 42))
}

func TestSanitizeFieldValue_PassesThroughOrdinaryFields(t *testing.T) {
	assert.Equal(t, "chat.wxve.io", SanitizeFieldValue("domain_name", "chat.wxve.io"))
	assert.Equal(t, 3, SanitizeFieldValue("count", 3))
	assert.Equal(t, true, SanitizeFieldValue("ok", true))
	assert.Nil(t, SanitizeFieldValue("missing", nil))
}

func TestSanitizeFieldValue_Nested(t *testing.T) {
	got := SanitizeFieldValue("payload", map[string]any{
		"password": "hunter2",
		"paths":    []string{"/*\n"},
		"note":     []any{"a\r\nb"},
	})

	nested, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	assert.Equal(t, redactedValue, nested["password"])
	assert.Equal(t, []string{"/*"}, nested["paths"])
	assert.Equal(t, []any{"ab"}, nested["note"])
}
