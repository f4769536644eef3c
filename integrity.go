// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// integrityAlgorithm is the only algorithm the reference tooling emits.
const integrityAlgorithm = "SHA256"

// integrityInfo mirrors the per-entry integrity attribute written by the
// reference tooling. Field order matches its output.
type integrityInfo struct {
	Algorithm string   `json:"algorithm"`
	Hash      string   `json:"hash"`
	BlockSize int64    `json:"blockSize"`
	Blocks    []string `json:"blocks"`
}

// refreshIntegrity recomputes the integrity attribute of one file entry after
// its content changed. Entries without the attribute are left alone. The
// stored block size is kept so the consumer's verification windows stay
// stable.
func refreshIntegrity(node *fileNode, content []byte) error {
	raw := node.field(fieldIntegrity)
	if raw == nil {
		return nil
	}

	var current integrityInfo
	if err := json.Unmarshal(raw, &current); err != nil {
		return fmt.Errorf("%w: integrity attribute: %w", ErrInvalidEncoding, err)
	}

	blockSize := current.BlockSize
	if blockSize <= 0 {
		blockSize = DefaultIntegrityBlockSize
	}

	updated, err := json.Marshal(computeIntegrity(content, blockSize))
	if err != nil {
		return fmt.Errorf("encode integrity attribute: %w", err)
	}

	node.setField(fieldIntegrity, updated)
	return nil
}

// computeIntegrity hashes content whole and per block.
func computeIntegrity(content []byte, blockSize int64) integrityInfo {
	sum := sha256.Sum256(content)

	blockCount := (int64(len(content)) + blockSize - 1) / blockSize
	blocks := make([]string, 0, blockCount)
	for start := int64(0); start < int64(len(content)); start += blockSize {
		end := start + blockSize
		if end > int64(len(content)) {
			end = int64(len(content))
		}

		blockSum := sha256.Sum256(content[start:end])
		blocks = append(blocks, hex.EncodeToString(blockSum[:]))
	}

	if len(blocks) == 0 {
		// Empty content still carries one block hash in the reference output.
		emptySum := sha256.Sum256(nil)
		blocks = append(blocks, hex.EncodeToString(emptySum[:]))
	}

	return integrityInfo{
		Algorithm: integrityAlgorithm,
		Hash:      hex.EncodeToString(sum[:]),
		BlockSize: blockSize,
		Blocks:    blocks,
	}
}
