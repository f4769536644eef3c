// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// unpackedDirSuffix names the sibling directory holding unpacked entry content.
const unpackedDirSuffix = ".unpacked"

// nopCloser wraps a reader and provides a no-op close.
type nopCloser struct {
	io.Reader
}

// Close closes nopCloser (no-op).
func (nopCloser) Close() error {
	return nil
}

// OpenEntry opens named entry content for reading. Packed entries are served
// from the in-memory blob; unpacked entries are resolved from the sibling
// "<archive>.unpacked" directory when the archive was opened from a file.
func (a *Archive) OpenEntry(name string) (io.ReadCloser, error) {
	if a == nil {
		return nil, ErrNilReader
	}

	entry := a.lookup(name)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return a.openIndexEntry(entry)
}

// ReadEntry reads full content of the named entry.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	rc, err := a.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// openIndexEntry opens content for an already resolved index entry.
func (a *Archive) openIndexEntry(entry *indexEntry) (io.ReadCloser, error) {
	node := entry.node
	if !node.unpacked {
		return nopCloser{Reader: bytes.NewReader(a.blob[node.offset : node.offset+node.size])}, nil
	}

	unpackedPath, err := a.unpackedEntryPath(entry.path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(unpackedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnpackedEntry, entry.path, err)
	}

	return f, nil
}

// unpackedEntryPath resolves the on-disk location of one unpacked entry.
func (a *Archive) unpackedEntryPath(entryPath string) (string, error) {
	if a.sourcePath == "" {
		return "", fmt.Errorf("%w: %s: archive not opened from a file", ErrUnpackedEntry, entryPath)
	}

	safePath, err := normalizeExtractEntryPath(entryPath)
	if err != nil {
		return "", fmt.Errorf("unpacked entry %s: %w", entryPath, err)
	}

	return filepath.Join(a.sourcePath+unpackedDirSuffix, filepath.FromSlash(safePath)), nil
}
