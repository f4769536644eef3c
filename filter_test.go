// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"errors"
	"testing"

	"github.com/woozymasta/pathrules"
)

func TestList_NoRulesSelectsAll(t *testing.T) {
	t.Parallel()

	a, err := Decode(buildTreeArchive(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	entries, err := a.List(ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("entries=%d, want 3", len(entries))
	}
}

func TestList_IncludeRules(t *testing.T) {
	t.Parallel()

	a, err := Decode(buildTreeArchive(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	entries, err := a.List(ListOptions{
		Rules: []pathrules.Rule{
			{Action: pathrules.ActionInclude, Pattern: "*.txt"},
		},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(entries) != 1 || entries[0].Path != "readme.txt" {
		t.Errorf("entries=%+v, want only readme.txt", entries)
	}
}

func TestList_ExcludeOverridesInclude(t *testing.T) {
	t.Parallel()

	a, err := Decode(buildTreeArchive(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	entries, err := a.List(ListOptions{
		Rules: []pathrules.Rule{
			{Action: pathrules.ActionInclude, Pattern: "app/**"},
			{Action: pathrules.ActionExclude, Pattern: "*.css"},
		},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(entries) != 1 || entries[0].Path != "app/main.js" {
		t.Errorf("entries=%+v, want only app/main.js", entries)
	}
}

func TestList_EmptyPatternsDropped(t *testing.T) {
	t.Parallel()

	a, err := Decode(buildTreeArchive(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	entries, err := a.List(ListOptions{
		Rules: []pathrules.Rule{
			{Action: pathrules.ActionInclude, Pattern: "   "},
		},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	// All patterns normalize away, so the rule set is empty and everything matches.
	if len(entries) != 3 {
		t.Errorf("entries=%d, want 3", len(entries))
	}
}

func TestList_InvalidRule(t *testing.T) {
	t.Parallel()

	a, err := Decode(buildTreeArchive(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	_, err = a.List(ListOptions{
		Rules: []pathrules.Rule{
			{Action: pathrules.ActionUnknown, Pattern: "*.txt"},
		},
	})
	if !errors.Is(err, ErrInvalidFilterPattern) {
		t.Errorf("expected ErrInvalidFilterPattern, got %v", err)
	}
}

func TestEntryMatcher_NilMatchesAll(t *testing.T) {
	t.Parallel()

	m, err := newEntryMatcher(nil, pathrules.MatcherOptions{})
	if err != nil {
		t.Fatalf("newEntryMatcher: %v", err)
	}

	if !m.Match("any/path.txt") {
		t.Error("nil matcher rejected a path")
	}
}

func TestEntryMatcher_CaseInsensitive(t *testing.T) {
	t.Parallel()

	m, err := newEntryMatcher(
		[]pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "*.TXT"}},
		pathrules.MatcherOptions{CaseInsensitive: true, DefaultAction: pathrules.ActionExclude},
	)
	if err != nil {
		t.Fatalf("newEntryMatcher: %v", err)
	}

	if !m.Match("readme.txt") {
		t.Error("case-insensitive matcher rejected readme.txt")
	}
}
