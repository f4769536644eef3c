// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"errors"
	"strings"
	"testing"
)

// hostScript is a minimal target text with one anchor occurrence.
const hostScript = "function init() {\n    mainWindow.webContents.send('ready');\n}\n"

func TestFindAnchor_Single(t *testing.T) {
	t.Parallel()

	start, end, err := FindAnchor(hostScript, InjectionConfig{})
	if err != nil {
		t.Fatalf("FindAnchor: %v", err)
	}

	anchor := DefaultInjectionConfig().Anchor
	if hostScript[start:end] != anchor {
		t.Errorf("anchor span=%q, want %q", hostScript[start:end], anchor)
	}
}

func TestFindAnchor_Missing(t *testing.T) {
	t.Parallel()

	_, _, err := FindAnchor("no anchor here", InjectionConfig{})
	if !errors.Is(err, ErrAnchorNotFound) {
		t.Errorf("expected ErrAnchorNotFound, got %v", err)
	}
}

func TestFindAnchor_Ambiguous(t *testing.T) {
	t.Parallel()

	_, _, err := FindAnchor(hostScript+hostScript, InjectionConfig{})
	if !errors.Is(err, ErrAmbiguousAnchor) {
		t.Errorf("expected ErrAmbiguousAnchor, got %v", err)
	}
}

func TestFindAnchor_CustomAnchor(t *testing.T) {
	t.Parallel()

	cfg := InjectionConfig{Anchor: "win.contents."}
	start, end, err := FindAnchor("x; win.contents.on('y');", cfg)
	if err != nil {
		t.Fatalf("FindAnchor: %v", err)
	}
	if start != 3 || end != 3+len(cfg.Anchor) {
		t.Errorf("span=[%d,%d)", start, end)
	}
}

func TestInject_Basic(t *testing.T) {
	t.Parallel()

	cfg := DefaultInjectionConfig()
	out, err := Inject(hostScript, "body { color: red; }", "console.log('hi');", InjectionConfig{})
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}

	for _, want := range []string{
		cfg.GuardToken,
		cfg.BeginSentinel,
		cfg.EndSentinel,
		"body { color: red; }",
		"console.log('hi');",
		"String.raw",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	// The anchor is re-emitted, so the host statement still runs.
	if !strings.Contains(out, cfg.Anchor+"send('ready')") {
		t.Error("original anchor statement lost")
	}

	if !AlreadyPatched(out, InjectionConfig{}) {
		t.Error("AlreadyPatched=false after injection")
	}

	// The sentinels bracket exactly the JS payload line.
	begin := strings.Index(out, cfg.BeginSentinel)
	end := strings.Index(out, cfg.EndSentinel)
	if begin < 0 || end < begin {
		t.Fatal("sentinels out of order")
	}
	if !strings.Contains(out[begin:end], "console.log('hi');") {
		t.Error("JS payload outside sentinel region")
	}
}

func TestInject_AnchorMissing(t *testing.T) {
	t.Parallel()

	_, err := Inject("plain text", "css", "js", InjectionConfig{})
	if !errors.Is(err, ErrAnchorNotFound) {
		t.Errorf("expected ErrAnchorNotFound, got %v", err)
	}
}

func TestInject_PayloadValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		css     string
		js      string
		wantErr bool
	}{
		{name: "clean", css: "a{}", js: "f();", wantErr: false},
		{name: "css backtick", css: "a{content:'`'}", js: "", wantErr: true},
		{name: "css escaped backtick", css: "a{content:'\\`'}", js: "", wantErr: false},
		{name: "css interpolation", css: "a{content:'${x}'}", js: "", wantErr: true},
		{name: "css escaped interpolation", css: "a{content:'\\${x}'}", js: "", wantErr: false},
		{name: "js backtick", css: "", js: "let s = `x`;", wantErr: true},
		{name: "js escaped backtick", css: "", js: "let s = '\\`';", wantErr: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Inject(hostScript, tc.css, tc.js, InjectionConfig{})
			if tc.wantErr {
				if !errors.Is(err, ErrPayloadEscape) {
					t.Errorf("expected ErrPayloadEscape, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRefresh_ReplacesPayloads(t *testing.T) {
	t.Parallel()

	out, err := Inject(hostScript, "old-css", "old_js();", InjectionConfig{})
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}

	refreshed, err := Refresh(out, "new-css", "new_js();", InjectionConfig{})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if strings.Contains(refreshed, "old-css") {
		t.Error("old CSS payload still present")
	}
	if strings.Contains(refreshed, "old_js();") {
		t.Error("old JS payload still present")
	}
	if !strings.Contains(refreshed, "new-css") {
		t.Error("new CSS payload missing")
	}
	if !strings.Contains(refreshed, "new_js();") {
		t.Error("new JS payload missing")
	}

	// The block structure survives and the refreshed text can refresh again.
	again, err := Refresh(refreshed, "third-css", "third_js();", InjectionConfig{})
	if err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if !strings.Contains(again, "third-css") || strings.Contains(again, "new-css") {
		t.Error("second refresh did not replace payloads")
	}
}

func TestRefresh_PreservesBlockStructure(t *testing.T) {
	t.Parallel()

	out, err := Inject(hostScript, "old-css", "old_js();", InjectionConfig{})
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}

	refreshed, err := Refresh(out, "new-css", "new_js();", InjectionConfig{})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Replacing payloads back must reproduce the original block exactly.
	back, err := Refresh(refreshed, "old-css", "old_js();", InjectionConfig{})
	if err != nil {
		t.Fatalf("Refresh back: %v", err)
	}
	if back != out {
		t.Errorf("refresh is not payload-local:\n got %q\nwant %q", back, out)
	}
}

func TestRefresh_UnpatchedText(t *testing.T) {
	t.Parallel()

	_, err := Refresh(hostScript, "css", "js", InjectionConfig{})
	if !errors.Is(err, ErrAnchorNotFound) {
		t.Errorf("expected ErrAnchorNotFound, got %v", err)
	}
}

func TestRefresh_BacktickCSSRejected(t *testing.T) {
	t.Parallel()

	out, err := Inject(hostScript, "old", "js();", InjectionConfig{})
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}

	_, err = Refresh(out, "bad \\` css", "js();", InjectionConfig{})
	if !errors.Is(err, ErrPayloadEscape) {
		t.Errorf("expected ErrPayloadEscape, got %v", err)
	}
}

func TestAlreadyPatched_PlainText(t *testing.T) {
	t.Parallel()

	if AlreadyPatched(hostScript, InjectionConfig{}) {
		t.Error("AlreadyPatched=true on clean text")
	}
}
