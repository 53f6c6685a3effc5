// Package sanitize provides the string and URL cleaning primitives used by the
// request builder. Every caller-supplied key or value passes through here before
// it is embedded into an outbound URL or header.
package sanitize

import (
	"net/url"
	"strings"
	"unicode"
)

// String removes control characters and path-traversal sequences from s.
// It never returns an error; hostile input degrades to a shorter string.
func String(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()

	// Collapse traversal sequences repeatedly so that interleaved forms
	// (e.g. "..././") cannot survive a single pass.
	for {
		cleaned := strings.ReplaceAll(out, "../", "")
		cleaned = strings.ReplaceAll(cleaned, `..\`, "")
		if cleaned == out {
			break
		}
		out = cleaned
	}

	return out
}

// URL validates that raw parses as an absolute http or https URL and returns a
// cleaned string form. It returns the empty string when raw is not acceptable,
// matching the "string or empty" contract expected by the request builder.
func URL(raw string) string {
	cleaned := String(strings.TrimSpace(raw))
	if cleaned == "" {
		return ""
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}

	return u.String()
}
