// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Header JSON attribute names with format-level meaning.
const (
	fieldFiles     = "files"
	fieldSize      = "size"
	fieldOffset    = "offset"
	fieldUnpacked  = "unpacked"
	fieldIntegrity = "integrity"
)

// headerField preserves one JSON attribute with its original declaration order
// and original value bytes. Re-encode emits untouched fields verbatim so that
// unknown attributes survive a patch round-trip byte-for-byte.
type headerField struct {
	key string
	raw json.RawMessage
}

// treeEntry is one named node in the archive header tree. Exactly one of
// dir/file is set, mirroring the files-vs-size shape of the header JSON.
type treeEntry struct {
	name string
	dir  *dirNode
	file *fileNode
}

// dirNode holds a directory object: its attribute list, the position of the
// "files" attribute within it, and the parsed children in declaration order.
type dirNode struct {
	fields   []headerField
	children []*treeEntry
	filesIdx int
}

// fileNode holds a file entry: parsed placement fields plus every attribute
// in declaration order. size and offset are regenerated from live state on
// encode; all other attributes are re-emitted from their original bytes.
type fileNode struct {
	fields   []headerField
	size     int64
	offset   int64
	unpacked bool
}

// parseHeaderTree parses the header JSON into an ordered tree. The root object
// is treated as a directory and must carry a "files" attribute.
func parseHeaderTree(data []byte) (*dirNode, error) {
	root, err := parseDirObject(data, "<root>")
	if err != nil {
		return nil, err
	}

	return root, nil
}

// parseDirObject parses a directory object: attributes in order, children from
// the "files" attribute.
func parseDirObject(data []byte, name string) (*dirNode, error) {
	fields, err := parseOrderedObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: directory %s: %w", ErrInvalidEncoding, name, err)
	}

	filesIdx := -1
	for i := range fields {
		if fields[i].key == fieldFiles {
			filesIdx = i
			break
		}
	}

	if filesIdx < 0 {
		return nil, fmt.Errorf("%w: directory %s has no files object", ErrInvalidEncoding, name)
	}

	children, err := parseChildren(fields[filesIdx].raw, name)
	if err != nil {
		return nil, err
	}

	return &dirNode{
		fields:   fields,
		filesIdx: filesIdx,
		children: children,
	}, nil
}

// parseChildren parses the name-to-entry mapping of a "files" object.
func parseChildren(data []byte, parent string) ([]*treeEntry, error) {
	pairs, err := parseOrderedObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: files object of %s: %w", ErrInvalidEncoding, parent, err)
	}

	children := make([]*treeEntry, 0, len(pairs))
	for _, pair := range pairs {
		entry, err := parseEntryNode(pair.key, pair.raw)
		if err != nil {
			return nil, err
		}

		children = append(children, entry)
	}

	return children, nil
}

// parseEntryNode parses one named entry object as a directory or a file.
func parseEntryNode(name string, data []byte) (*treeEntry, error) {
	fields, err := parseOrderedObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %s: %w", ErrInvalidEncoding, name, err)
	}

	hasFiles := false
	for i := range fields {
		if fields[i].key == fieldFiles {
			hasFiles = true
			break
		}
	}

	if hasFiles {
		dir, err := parseDirObject(data, name)
		if err != nil {
			return nil, err
		}

		return &treeEntry{name: name, dir: dir}, nil
	}

	file, err := parseFileFields(name, fields)
	if err != nil {
		return nil, err
	}

	return &treeEntry{name: name, file: file}, nil
}

// parseFileFields interprets the placement attributes of a file entry.
func parseFileFields(name string, fields []headerField) (*fileNode, error) {
	node := &fileNode{
		fields: fields,
		size:   -1,
		offset: -1,
	}

	for _, f := range fields {
		switch f.key {
		case fieldSize:
			size, err := parseSizeValue(f.raw)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %s: size: %w", ErrInvalidEncoding, name, err)
			}

			node.size = size
		case fieldOffset:
			offset, err := parseOffsetValue(f.raw)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %s: offset: %w", ErrInvalidEncoding, name, err)
			}

			node.offset = offset
		case fieldUnpacked:
			var unpacked bool
			if err := json.Unmarshal(f.raw, &unpacked); err != nil {
				return nil, fmt.Errorf("%w: entry %s: unpacked: %w", ErrInvalidEncoding, name, err)
			}

			node.unpacked = unpacked
		}
	}

	if node.size < 0 {
		return nil, fmt.Errorf("%w: entry %s has neither files nor size", ErrInvalidEncoding, name)
	}

	if !node.unpacked && node.offset < 0 {
		return nil, fmt.Errorf("%w: entry %s is packed but has no offset", ErrInvalidEncoding, name)
	}

	return node, nil
}

// parseSizeValue parses the size attribute, a non-negative JSON number.
func parseSizeValue(raw json.RawMessage) (int64, error) {
	text := strings.TrimSpace(string(raw))
	size, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", text)
	}

	if size < 0 {
		return 0, fmt.Errorf("negative size %d", size)
	}

	return size, nil
}

// parseOffsetValue parses the offset attribute, a decimal number encoded as a
// JSON string per the source ecosystem convention.
func parseOffsetValue(raw json.RawMessage) (int64, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("not a string: %s", strings.TrimSpace(string(raw)))
	}

	offset, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a decimal string: %q", text)
	}

	if offset < 0 {
		return 0, fmt.Errorf("negative offset %d", offset)
	}

	return offset, nil
}

// parseOrderedObject decodes one JSON object into its attribute list,
// preserving declaration order and raw value bytes. encoding/json maps do not
// preserve order, so the token decoder is driven by hand.
func parseOrderedObject(data []byte) ([]headerField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var fields []headerField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}

		fields = append(fields, headerField{key: key, raw: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return fields, nil
}

// appendJSON serializes a directory object in compact form with original
// attribute order.
func (d *dirNode) appendJSON(dst []byte) []byte {
	dst = append(dst, '{')
	for i, f := range d.fields {
		if i > 0 {
			dst = append(dst, ',')
		}

		dst = appendJSONString(dst, f.key)
		dst = append(dst, ':')

		if i == d.filesIdx {
			dst = d.appendChildren(dst)
		} else {
			dst = append(dst, f.raw...)
		}
	}

	return append(dst, '}')
}

// appendChildren serializes the "files" mapping in declaration order.
func (d *dirNode) appendChildren(dst []byte) []byte {
	dst = append(dst, '{')
	for i, child := range d.children {
		if i > 0 {
			dst = append(dst, ',')
		}

		dst = appendJSONString(dst, child.name)
		dst = append(dst, ':')

		if child.dir != nil {
			dst = child.dir.appendJSON(dst)
		} else {
			dst = child.file.appendJSON(dst)
		}
	}

	return append(dst, '}')
}

// appendJSON serializes a file entry, regenerating size and offset from live
// state and re-emitting every other attribute verbatim.
func (f *fileNode) appendJSON(dst []byte) []byte {
	dst = append(dst, '{')
	for i, field := range f.fields {
		if i > 0 {
			dst = append(dst, ',')
		}

		dst = appendJSONString(dst, field.key)
		dst = append(dst, ':')

		switch field.key {
		case fieldSize:
			dst = strconv.AppendInt(dst, f.size, 10)
		case fieldOffset:
			dst = append(dst, '"')
			dst = strconv.AppendInt(dst, f.offset, 10)
			dst = append(dst, '"')
		default:
			dst = append(dst, field.raw...)
		}
	}

	return append(dst, '}')
}

// setField replaces the raw value of one attribute, appending the attribute
// when absent.
func (f *fileNode) setField(key string, raw json.RawMessage) {
	for i := range f.fields {
		if f.fields[i].key == key {
			f.fields[i].raw = raw
			return
		}
	}

	f.fields = append(f.fields, headerField{key: key, raw: raw})
}

// field returns the raw value of one attribute, or nil when absent.
func (f *fileNode) field(key string) json.RawMessage {
	for i := range f.fields {
		if f.fields[i].key == key {
			return f.fields[i].raw
		}
	}

	return nil
}

// appendJSONString writes a JSON string token the way the reference tooling
// does: only quotes, backslashes, and control characters are escaped, and
// non-ASCII text passes through as UTF-8.
func appendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b == '"' || b == '\\':
			dst = append(dst, '\\', b)
		case b == '\b':
			dst = append(dst, '\\', 'b')
		case b == '\f':
			dst = append(dst, '\\', 'f')
		case b == '\n':
			dst = append(dst, '\\', 'n')
		case b == '\r':
			dst = append(dst, '\\', 'r')
		case b == '\t':
			dst = append(dst, '\\', 't')
		case b < 0x20:
			const hex = "0123456789abcdef"
			dst = append(dst, '\\', 'u', '0', '0', hex[b>>4], hex[b&0xf])
		default:
			dst = append(dst, b)
		}
	}

	return append(dst, '"')
}
