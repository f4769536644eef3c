// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import "errors"

// Sentinel errors for asar operations. Use errors.Is in callers.
var (
	// ErrMalformedHeader means the pickle size words or header structure are invalid.
	ErrMalformedHeader = errors.New("invalid asar file: malformed header")
	// ErrTruncatedData means declared sizes exceed the bytes actually present.
	ErrTruncatedData = errors.New("invalid asar file: truncated data")
	// ErrInvalidEncoding means the header JSON is not valid UTF-8 or fails structural parsing.
	ErrInvalidEncoding = errors.New("invalid asar file: bad header encoding")
	// ErrEntryNotFound means the entry is not found in the archive index.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrUnpackedEntry means the entry content is stored outside the archive blob.
	ErrUnpackedEntry = errors.New("entry content stored outside archive")
	// ErrNonTextEntry means the target entry bytes are not valid UTF-8 text.
	ErrNonTextEntry = errors.New("entry is not valid UTF-8 text")
	// ErrAnchorNotFound means the injection anchor does not occur in the target text.
	ErrAnchorNotFound = errors.New("injection anchor not found")
	// ErrAmbiguousAnchor means the injection anchor occurs more than once.
	ErrAmbiguousAnchor = errors.New("injection anchor is ambiguous")
	// ErrPayloadEscape means a payload contains a delimiter that would break out of its literal context.
	ErrPayloadEscape = errors.New("payload contains unescaped literal delimiter")
	// ErrNoBackup means no backup file exists for the archive.
	ErrNoBackup = errors.New("backup file does not exist")
	// ErrNilReader means the archive or reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrInvalidEntryPath means an entry path is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrInvalidExtractPath means archive entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidFilterPattern means one or more entry selection rules are invalid.
	ErrInvalidFilterPattern = errors.New("invalid filter rules")
	// ErrSizeOverflow means a declared size or offset is out of representable range.
	ErrSizeOverflow = errors.New("size or offset out of range")
)
