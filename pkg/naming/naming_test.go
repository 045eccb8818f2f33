package naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func genLabel() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z0-9]([a-z0-9-]{0,10}[a-z0-9])?`)
}

func genZone() *rapid.Generator[string] {
	return rapid.Custom[string](func(t *rapid.T) string {
		return genLabel().Draw(t, "zoneLabel") + "." + rapid.SampledFrom([]string{"io", "com", "dev", "co.uk"}).Draw(t, "tld")
	})
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "chat.wxve.io", NormalizeDomain("  Chat.WXVE.io. "))
	assert.Equal(t, "", NormalizeDomain("   "))
}

func TestSanitizeDomain(t *testing.T) {
	assert.Equal(t, "chat-dev.wxve.io", SanitizeDomain("chat_dev..wxve.io\n"))
	assert.Equal(t, "wxve.io", SanitizeDomain(".wxve.io-"))
}

func TestIsHostname(t *testing.T) {
	assert.True(t, IsHostname("chat.wxve.io"))
	assert.True(t, IsHostname("wxve.io."))
	assert.False(t, IsHostname("localhost"))
	assert.False(t, IsHostname("-bad.wxve.io"))
	assert.False(t, IsHostname("chat..wxve.io"))
	assert.False(t, IsHostname(strings.Repeat("a", 64)+".io"))
}

func TestWithinZone(t *testing.T) {
	assert.True(t, WithinZone("chat.wxve.io", "wxve.io"))
	assert.True(t, WithinZone("wxve.io", "WXVE.io."))
	assert.False(t, WithinZone("chat.notwxve.io", "wxve.io"))
	assert.False(t, WithinZone("chat.wxve.io", ""))
}

func TestSiteURL(t *testing.T) {
	assert.Equal(t, "https://chat.example.com", SiteURL("chat.example.com"))
	assert.Equal(t, "https://chat.example.com", SiteURL("Chat.Example.com."))
}

func TestProperty_SubdomainsAreWithinZone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		zone := genZone().Draw(t, "zone")
		domain := genLabel().Draw(t, "sub") + "." + zone

		if !WithinZone(domain, zone) {
			t.Fatalf("expected %q within %q", domain, zone)
		}
		if !IsHostname(domain) {
			t.Fatalf("expected %q to be a hostname", domain)
		}
		if got := SiteURL(domain); got != "https://"+domain {
			t.Fatalf("SiteURL(%q) = %q", domain, got)
		}
	})
}

func TestProperty_NormalizeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.StringMatching(`[ ]{0,2}[A-Za-z0-9.-]{0,20}\.?[ ]{0,2}`).Draw(t, "raw")
		once := NormalizeDomain(raw)
		if twice := NormalizeDomain(once); twice != once {
			t.Fatalf("NormalizeDomain not idempotent: %q -> %q -> %q", raw, once, twice)
		}
	})
}
