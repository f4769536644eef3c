// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"unicode/utf8"
)

// Archive is a fully decoded asar file: the header tree plus the data blob.
// It is constructed by Decode or Open, mutated by ReplaceEntry, and consumed
// by Encode. No partial archive state is observable outside a successful
// decode.
type Archive struct {
	// root is the header tree with original attribute order.
	root *dirNode
	// blob is the concatenated content of all packed entries.
	blob []byte
	// index resolves normalized paths to file entries.
	index map[string]*indexEntry
	// order lists file entries in header declaration order.
	order []*indexEntry
	// sourcePath is set by Open and used to resolve unpacked sibling content.
	sourcePath string
}

// indexEntry pairs a flat path with its header tree node.
type indexEntry struct {
	path string
	node *fileNode
}

// info builds the public view of one index entry.
func (e *indexEntry) info() EntryInfo {
	info := EntryInfo{
		Path:     e.path,
		Size:     e.node.size,
		Offset:   e.node.offset,
		Unpacked: e.node.unpacked,
	}

	if info.Unpacked {
		info.Offset = -1
	}

	return info
}

// Decode parses a complete asar buffer into an Archive. The input buffer is
// only borrowed during the call; the returned Archive owns its own copies.
func Decode(data []byte) (*Archive, error) {
	if len(data) < pickleFrameSize {
		return nil, fmt.Errorf("%w: short pickle frame", ErrMalformedHeader)
	}

	prefix := binary.LittleEndian.Uint32(data[0:4])
	headerPickle := binary.LittleEndian.Uint32(data[4:8])
	stringPayload := binary.LittleEndian.Uint32(data[8:12])
	jsonLen := binary.LittleEndian.Uint32(data[12:16])

	if prefix != sizePrefixWord {
		return nil, fmt.Errorf("%w: size prefix word %d", ErrMalformedHeader, prefix)
	}

	padded := alignHeader(int(jsonLen))
	if int(headerPickle) != padded+8 || int(stringPayload) != padded+4 {
		return nil, fmt.Errorf("%w: inconsistent pickle size words", ErrMalformedHeader)
	}

	headerEnd := pickleFrameSize + padded
	if pickleFrameSize+int(jsonLen) > len(data) || headerEnd > len(data) {
		return nil, fmt.Errorf("%w: header JSON of %d bytes exceeds input", ErrTruncatedData, jsonLen)
	}

	headerJSON := data[pickleFrameSize : pickleFrameSize+int(jsonLen)]
	for _, pad := range data[pickleFrameSize+int(jsonLen) : headerEnd] {
		if pad != 0 {
			return nil, fmt.Errorf("%w: nonzero header padding", ErrMalformedHeader)
		}
	}

	if !utf8.Valid(headerJSON) {
		return nil, fmt.Errorf("%w: header JSON is not valid UTF-8", ErrInvalidEncoding)
	}

	root, err := parseHeaderTree(headerJSON)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		root: root,
		blob: bytes.Clone(data[headerEnd:]),
	}

	if err := a.buildIndex(); err != nil {
		return nil, err
	}

	return a, nil
}

// Open reads the whole archive file into memory and decodes it. Archives
// opened this way can resolve unpacked entries from the sibling
// "<path>.unpacked" directory.
func Open(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open asar: %w", err)
	}

	a, err := Decode(data)
	if err != nil {
		return nil, err
	}

	a.sourcePath = path
	return a, nil
}

// buildIndex walks the header tree depth-first in declaration order, builds
// the flat path index, and validates the offset invariant: packed entries are
// contiguous from zero with no gaps or overlaps, and every entry fits in the
// blob.
func (a *Archive) buildIndex() error {
	a.index = make(map[string]*indexEntry)
	a.order = a.order[:0]

	var next int64
	if err := a.indexDir(a.root, "", &next); err != nil {
		return err
	}

	if next > int64(len(a.blob)) {
		return fmt.Errorf("%w: entries declare %d blob bytes, have %d", ErrTruncatedData, next, len(a.blob))
	}

	return nil
}

// indexDir indexes one directory level, threading the running packed offset.
func (a *Archive) indexDir(dir *dirNode, parent string, next *int64) error {
	for _, child := range dir.children {
		childPath := joinArchivePath(parent, child.name)

		if child.dir != nil {
			if err := a.indexDir(child.dir, childPath, next); err != nil {
				return err
			}

			continue
		}

		if _, exists := a.index[childPath]; exists {
			return fmt.Errorf("%w: duplicate entry %s", ErrMalformedHeader, childPath)
		}

		node := child.file
		if !node.unpacked {
			if node.offset != *next {
				return fmt.Errorf("%w: entry %s at offset %d, expected %d",
					ErrMalformedHeader, childPath, node.offset, *next)
			}

			end := node.offset + node.size
			if end < node.offset {
				return fmt.Errorf("%w: entry %s", ErrSizeOverflow, childPath)
			}
			if end > int64(len(a.blob)) {
				return fmt.Errorf("%w: entry %s ends at %d, blob has %d bytes",
					ErrTruncatedData, childPath, end, len(a.blob))
			}

			*next = end
		}

		entry := &indexEntry{path: childPath, node: node}
		a.index[childPath] = entry
		a.order = append(a.order, entry)
	}

	return nil
}

// Entries returns all file entries in header declaration order.
func (a *Archive) Entries() []EntryInfo {
	if a == nil {
		return nil
	}

	entries := make([]EntryInfo, len(a.order))
	for i, e := range a.order {
		entries[i] = e.info()
	}

	return entries
}

// File returns metadata for one entry resolved by normalized path.
func (a *Archive) File(name string) (EntryInfo, error) {
	if a == nil {
		return EntryInfo{}, ErrNilReader
	}

	entry := a.lookup(name)
	if entry == nil {
		return EntryInfo{}, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return entry.info(), nil
}

// List returns file entries selected by the given rules.
func (a *Archive) List(opts ListOptions) ([]EntryInfo, error) {
	if a == nil {
		return nil, ErrNilReader
	}

	matcher, err := newEntryMatcher(opts.Rules, opts.MatcherOptions)
	if err != nil {
		return nil, err
	}

	entries := make([]EntryInfo, 0, len(a.order))
	for _, e := range a.order {
		if !matcher.Match(e.path) {
			continue
		}

		entries = append(entries, e.info())
	}

	return entries, nil
}

// lookup resolves one index entry by normalized path.
func (a *Archive) lookup(name string) *indexEntry {
	return a.index[NormalizePath(name)]
}

// ReplaceEntry replaces the backing bytes of one packed entry, splices the
// blob, and shifts the offset of every subsequent packed entry by the length
// delta. The entry's integrity attribute, when present, is recomputed.
func (a *Archive) ReplaceEntry(name string, content []byte) error {
	if a == nil {
		return ErrNilReader
	}

	entry := a.lookup(name)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	node := entry.node
	if node.unpacked {
		return fmt.Errorf("%w: %s", ErrUnpackedEntry, entry.path)
	}

	oldEnd := node.offset + node.size
	delta := int64(len(content)) - node.size

	blob := make([]byte, int64(len(a.blob))+delta)
	copy(blob, a.blob[:node.offset])
	copy(blob[node.offset:], content)
	copy(blob[node.offset+int64(len(content)):], a.blob[oldEnd:])
	a.blob = blob

	node.size = int64(len(content))
	if err := refreshIntegrity(node, content); err != nil {
		return fmt.Errorf("refresh integrity of %s: %w", entry.path, err)
	}

	// Shift by declaration position, not by offset comparison, so zero-size
	// neighbors sharing the boundary offset stay consistent.
	seen := false
	for _, e := range a.order {
		if e.node == node {
			seen = true
			continue
		}

		if seen && !e.node.unpacked {
			e.node.offset += delta
		}
	}

	return nil
}
