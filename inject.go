// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"fmt"
	"strings"
)

// FindAnchor locates the single occurrence of the configured anchor in text
// and returns its byte range. Zero occurrences fail with ErrAnchorNotFound;
// more than one fails with ErrAmbiguousAnchor, because a moved or duplicated
// anchor means the target script's shape changed and splicing at the first
// match would be a guess.
func FindAnchor(text string, cfg InjectionConfig) (int, int, error) {
	cfg.applyDefaults()

	start := strings.Index(text, cfg.Anchor)
	if start < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrAnchorNotFound, cfg.Anchor)
	}

	if strings.Contains(text[start+1:], cfg.Anchor) {
		return 0, 0, fmt.Errorf("%w: %q occurs more than once", ErrAmbiguousAnchor, cfg.Anchor)
	}

	return start, start + len(cfg.Anchor), nil
}

// AlreadyPatched reports whether text already carries the injected block.
func AlreadyPatched(text string, cfg InjectionConfig) bool {
	cfg.applyDefaults()
	return strings.Contains(text, cfg.GuardToken)
}

// Inject splices a generated block over the anchor span and re-emits the
// anchor text after it, so the host's original behavior is preserved.
//
// The block embeds css inside a String.raw template literal and js between
// the sentinel comments. Both payloads end up inside an enclosing JavaScript
// template literal, so a raw backtick (or "${" in css) would break out of the
// literal context; such payloads are rejected with ErrPayloadEscape.
// Backslash doubling for css remains the caller's responsibility.
func Inject(text string, css string, js string, cfg InjectionConfig) (string, error) {
	cfg.applyDefaults()

	if err := validatePayloads(css, js); err != nil {
		return "", err
	}

	start, end, err := FindAnchor(text, cfg)
	if err != nil {
		return "", err
	}

	block := buildInjectionBlock(text[start:end], css, js, cfg)
	return text[:start] + block + text[end:], nil
}

// Refresh rewrites the embedded payloads of an already injected block: the
// CSS between the escaped raw-string delimiters and the JS between the
// sentinel comments. The delimiter scan stops at the first backtick after the
// guard token, so refreshed CSS must be backtick-free.
func Refresh(text string, css string, js string, cfg InjectionConfig) (string, error) {
	cfg.applyDefaults()

	if strings.ContainsRune(css, '`') {
		return "", fmt.Errorf("%w: refreshed CSS payload contains a backtick", ErrPayloadEscape)
	}
	if err := validatePayloads(css, js); err != nil {
		return "", err
	}

	guard := strings.Index(text, cfg.GuardToken)
	if guard < 0 {
		return "", fmt.Errorf("%w: guard token %q", ErrAnchorNotFound, cfg.GuardToken)
	}

	open := strings.IndexByte(text[guard:], '`')
	if open < 0 {
		return "", fmt.Errorf("%w: opening CSS delimiter after guard token", ErrAnchorNotFound)
	}
	open += guard

	cssEnd := strings.IndexByte(text[open+1:], '`')
	if cssEnd < 0 {
		return "", fmt.Errorf("%w: closing CSS delimiter", ErrAnchorNotFound)
	}
	cssEnd += open + 1

	// The closing delimiter is escaped inside the outer literal; keep its
	// backslash out of the replaced span.
	if cssEnd > open+1 && text[cssEnd-1] == '\\' {
		cssEnd--
	}

	text = text[:open+1] + css + text[cssEnd:]

	begin := strings.Index(text, cfg.BeginSentinel)
	if begin < 0 {
		return "", fmt.Errorf("%w: begin sentinel %q", ErrAnchorNotFound, cfg.BeginSentinel)
	}

	jsStart := begin + len(cfg.BeginSentinel)
	if jsStart < len(text) && text[jsStart] == '\n' {
		jsStart++
	}

	jsEnd := strings.Index(text[jsStart:], cfg.EndSentinel)
	if jsEnd < 0 {
		return "", fmt.Errorf("%w: end sentinel %q", ErrAnchorNotFound, cfg.EndSentinel)
	}
	jsEnd += jsStart

	return text[:jsStart] + js + "\n" + text[jsEnd:], nil
}

// buildInjectionBlock renders the spliced block: a dom-ready handler that
// appends the CSS as a style element and runs the JS between the sentinels,
// followed by the original anchor text.
func buildInjectionBlock(anchor string, css string, js string, cfg InjectionConfig) string {
	var b strings.Builder

	b.WriteString("\n    ")
	b.WriteString(anchor)
	b.WriteString("on('dom-ready', () => {\n")
	b.WriteString("        ")
	b.WriteString(anchor)
	b.WriteString("executeJavaScript(`\n")
	b.WriteString("            let ")
	b.WriteString(cfg.GuardToken)
	b.WriteString(" = String.raw \\`")
	b.WriteString(css)
	b.WriteString("\\`;\n")
	b.WriteString("            const style = document.createElement('style');\n")
	b.WriteString("            style.innerHTML = ")
	b.WriteString(cfg.GuardToken)
	b.WriteString(";\n")
	b.WriteString("            document.head.appendChild(style);\n\n")
	b.WriteString("            ")
	b.WriteString(cfg.BeginSentinel)
	b.WriteString("\n")
	b.WriteString(js)
	b.WriteString("\n")
	b.WriteString(cfg.EndSentinel)
	b.WriteString("\n")
	b.WriteString("        `);\n")
	b.WriteString("    });")
	b.WriteString(anchor)

	return b.String()
}

// validatePayloads rejects payloads that would terminate the enclosing
// template literal. CSS additionally may not open an interpolation, since it
// is embedded as literal text.
func validatePayloads(css string, js string) error {
	if idx := indexUnescapedByte(css, '`'); idx >= 0 {
		return fmt.Errorf("%w: CSS payload has unescaped backtick at byte %d", ErrPayloadEscape, idx)
	}

	if idx := strings.Index(css, "${"); idx >= 0 && (idx == 0 || css[idx-1] != '\\') {
		return fmt.Errorf("%w: CSS payload opens template interpolation at byte %d", ErrPayloadEscape, idx)
	}

	if idx := indexUnescapedByte(js, '`'); idx >= 0 {
		return fmt.Errorf("%w: JS payload has unescaped backtick at byte %d", ErrPayloadEscape, idx)
	}

	return nil
}

// indexUnescapedByte returns the index of the first occurrence of b not
// preceded by a backslash, or -1.
func indexUnescapedByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b && (i == 0 || s[i-1] != '\\') {
			return i
		}
	}

	return -1
}
