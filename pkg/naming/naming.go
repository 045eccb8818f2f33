package naming

import (
	"regexp"
	"strings"
)

var (
	nonLabel  = regexp.MustCompile(`[^a-z0-9.-]+`)
	multiDot  = regexp.MustCompile(`\.{2,}`)
	labelRule = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
)

// NormalizeDomain lowercases a DNS name and strips surrounding whitespace and
// trailing root dots.
func NormalizeDomain(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.TrimSpace(strings.TrimRight(value, "."))
}

// SanitizeDomain is NormalizeDomain plus removal of characters that cannot
// appear in a hostname. It is meant for log fields and identifiers, not for
// rewriting user input that is passed to the provider.
func SanitizeDomain(value string) string {
	value = NormalizeDomain(value)
	value = strings.ReplaceAll(value, "_", "-")
	value = nonLabel.ReplaceAllString(value, "")
	value = multiDot.ReplaceAllString(value, ".")
	return strings.Trim(value, ".-")
}

// IsHostname reports whether value is a syntactically valid multi-label
// hostname after normalization.
func IsHostname(value string) bool {
	value = NormalizeDomain(value)
	if value == "" || len(value) > 253 {
		return false
	}
	labels := strings.Split(value, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !labelRule.MatchString(label) {
			return false
		}
	}
	return true
}

// WithinZone reports whether domain is the zone apex or a name below it.
func WithinZone(domain, zone string) bool {
	domain = NormalizeDomain(domain)
	zone = NormalizeDomain(zone)
	if domain == "" || zone == "" {
		return false
	}
	return domain == zone || strings.HasSuffix(domain, "."+zone)
}

// SiteURL returns the public https URL of a domain.
func SiteURL(domain string) string {
	return "https://" + NormalizeDomain(domain)
}
