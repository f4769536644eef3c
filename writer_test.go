// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncode_RoundTripByteFidelity(t *testing.T) {
	t.Parallel()

	headers := []string{
		`{"files":{}}`,
		`{"files":{"a.txt":{"size":5,"offset":"0"}}}`,
		`{"files":{"a.txt":{"size":5,"offset":"0","executable":true},"dir":{"files":{"b.bin":{"size":3,"offset":"5"}}}}}`,
		`{"files":{"big.bin":{"size":100,"unpacked":true},"a.txt":{"offset":"0","size":5}}}`,
		`{"files":{"weird name \u0007.txt":{"size":1,"offset":"0"}},"custom":{"nested":["x",1,null]}}`,
	}

	blobs := [][]byte{
		nil,
		[]byte("hello"),
		[]byte("helloabc"),
		[]byte("hello"),
		[]byte("!"),
	}

	for i, header := range headers {
		original := buildArchiveBytes(t, header, blobs[i])

		a, err := Decode(original)
		if err != nil {
			t.Fatalf("header %d: Decode: %v", i, err)
		}

		encoded := a.Encode()
		if !bytes.Equal(encoded, original) {
			t.Errorf("header %d: round trip diverged:\n got %q\nwant %q", i, encoded, original)
		}
	}
}

func TestEncode_RoundTripPaddingVariants(t *testing.T) {
	t.Parallel()

	// Entry name length drives jsonLen through all four alignment residues.
	names := []string{"a", "ab", "abc", "abcd"}
	for _, name := range names {
		header := `{"files":{"` + name + `":{"size":2,"offset":"0"}}}`
		original := buildArchiveBytes(t, header, []byte("ok"))

		a, err := Decode(original)
		if err != nil {
			t.Fatalf("name %q: Decode: %v", name, err)
		}

		if got := a.Encode(); !bytes.Equal(got, original) {
			t.Errorf("name %q: round trip diverged", name)
		}
	}
}

func TestEncodeTo_MatchesEncode(t *testing.T) {
	t.Parallel()

	a, err := Decode(buildArchiveBytes(t, `{"files":{"a.txt":{"size":5,"offset":"0"}}}`, []byte("hello")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	var buf bytes.Buffer
	n, err := a.EncodeTo(&buf)
	if err != nil {
		t.Fatalf("EncodeTo: %v", err)
	}

	want := a.Encode()
	if n != int64(len(want)) {
		t.Errorf("n=%d, want %d", n, len(want))
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Error("EncodeTo output differs from Encode")
	}
}

func TestEncodeTo_NilWriter(t *testing.T) {
	t.Parallel()

	a, err := Decode(buildArchiveBytes(t, `{"files":{}}`, nil))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if _, err := a.EncodeTo(nil); !errors.Is(err, ErrNilWriter) {
		t.Errorf("expected ErrNilWriter, got %v", err)
	}
}

func TestReplaceEntry_ShiftsSubsequentOffsets(t *testing.T) {
	t.Parallel()

	header := `{"files":{"a.txt":{"size":5,"offset":"0"},"b.txt":{"size":3,"offset":"5"}}}`
	a, err := Decode(buildArchiveBytes(t, header, []byte("helloabc")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if err := a.ReplaceEntry("a.txt", []byte("12345678")); err != nil {
		t.Fatalf("ReplaceEntry: %v", err)
	}

	reparsed, err := Decode(a.Encode())
	if err != nil {
		t.Fatalf("Decode after replace: %v", err)
	}

	infoA, err := reparsed.File("a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if infoA.Size != 8 || infoA.Offset != 0 {
		t.Errorf("a.txt: size=%d offset=%d, want 8/0", infoA.Size, infoA.Offset)
	}

	infoB, err := reparsed.File("b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if infoB.Size != 3 || infoB.Offset != 8 {
		t.Errorf("b.txt: size=%d offset=%d, want 3/8", infoB.Size, infoB.Offset)
	}

	gotB, err := reparsed.ReadEntry("b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(gotB) != "abc" {
		t.Errorf("b.txt content=%q, want abc", gotB)
	}
}

func TestReplaceEntry_ShrinkAndZeroSizeNeighbors(t *testing.T) {
	t.Parallel()

	header := `{"files":{"a.txt":{"size":5,"offset":"0"},"empty":{"size":0,"offset":"5"},"b.txt":{"size":3,"offset":"5"}}}`
	a, err := Decode(buildArchiveBytes(t, header, []byte("helloabc")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if err := a.ReplaceEntry("a.txt", []byte("hi")); err != nil {
		t.Fatalf("ReplaceEntry: %v", err)
	}

	reparsed, err := Decode(a.Encode())
	if err != nil {
		t.Fatalf("Decode after shrink: %v", err)
	}

	infoEmpty, err := reparsed.File("empty")
	if err != nil {
		t.Fatal(err)
	}
	if infoEmpty.Offset != 2 {
		t.Errorf("empty offset=%d, want 2", infoEmpty.Offset)
	}

	gotB, err := reparsed.ReadEntry("b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(gotB) != "abc" {
		t.Errorf("b.txt content=%q, want abc", gotB)
	}
}

func TestReplaceEntry_UnpackedRejected(t *testing.T) {
	t.Parallel()

	header := `{"files":{"big.bin":{"size":10,"unpacked":true}}}`
	a, err := Decode(buildArchiveBytes(t, header, nil))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if err := a.ReplaceEntry("big.bin", []byte("x")); !errors.Is(err, ErrUnpackedEntry) {
		t.Errorf("expected ErrUnpackedEntry, got %v", err)
	}
}
