// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Encode serializes the archive back into the on-disk byte layout:
// size-prefix pickle, header JSON, null padding to the alignment boundary,
// then the data blob verbatim. Encoding an archive that was decoded and not
// mutated reproduces the input byte-for-byte.
func (a *Archive) Encode() []byte {
	if a == nil {
		return nil
	}

	headerJSON := a.root.appendJSON(nil)
	padded := alignHeader(len(headerJSON))

	out := make([]byte, pickleFrameSize+padded+len(a.blob))
	binary.LittleEndian.PutUint32(out[0:4], sizePrefixWord)
	binary.LittleEndian.PutUint32(out[4:8], uint32(padded+8))
	binary.LittleEndian.PutUint32(out[8:12], uint32(padded+4))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(headerJSON)))

	copy(out[pickleFrameSize:], headerJSON)
	copy(out[pickleFrameSize+padded:], a.blob)

	return out
}

// EncodeTo writes the encoded archive to w.
func (a *Archive) EncodeTo(w io.Writer) (int64, error) {
	if a == nil {
		return 0, ErrNilReader
	}
	if w == nil {
		return 0, ErrNilWriter
	}

	n, err := w.Write(a.Encode())
	if err != nil {
		return int64(n), fmt.Errorf("write archive: %w", err)
	}

	return int64(n), nil
}
