// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// backupSuffix names the backup file written next to the patched archive.
const backupSuffix = ".bak"

// Patch decodes an archive buffer, injects the CSS/JS payloads into the
// target entry, shifts every subsequent packed offset by the length delta,
// and re-encodes the archive. It is a pure transformation: the input buffer
// is never modified, and on any failure no partial output is produced.
//
// When the target already carries the injected block the call short-circuits
// with OutcomeAlreadyPatched (returning the input unchanged) unless
// opts.RefreshPayloads is set, in which case the embedded payloads are
// rewritten in place.
func Patch(data []byte, target string, css string, js string, opts PatchOptions) (*PatchResult, error) {
	opts.applyDefaults()

	targetPath, err := normalizeArchiveEntryPath(target)
	if err != nil {
		return nil, err
	}

	a, err := Decode(data)
	if err != nil {
		return nil, err
	}

	entry := a.lookup(targetPath)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, targetPath)
	}
	if entry.node.unpacked {
		return nil, fmt.Errorf("%w: %s", ErrUnpackedEntry, targetPath)
	}

	node := entry.node
	raw := a.blob[node.offset : node.offset+node.size]
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: %s", ErrNonTextEntry, targetPath)
	}

	text := string(raw)
	oldSize := node.size

	var (
		newText string
		outcome Outcome
	)

	switch {
	case !AlreadyPatched(text, opts.Injection):
		newText, err = Inject(text, css, js, opts.Injection)
		outcome = OutcomePatched
	case opts.RefreshPayloads:
		newText, err = Refresh(text, css, js, opts.Injection)
		outcome = OutcomeRefreshed
	default:
		return &PatchResult{
			Data:    data,
			Target:  targetPath,
			Outcome: OutcomeAlreadyPatched,
			OldSize: oldSize,
			NewSize: oldSize,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := a.ReplaceEntry(targetPath, []byte(newText)); err != nil {
		return nil, err
	}

	return &PatchResult{
		Data:    a.Encode(),
		Target:  targetPath,
		Outcome: outcome,
		OldSize: oldSize,
		NewSize: int64(len(newText)),
	}, nil
}

// PatchFile applies Patch to an archive on disk with the backup contract:
// the original bytes are copied to "<path>.bak" and flushed to stable storage
// before the archive is replaced, so a crash mid-operation never leaves the
// user without a recovery path. The patched buffer is written to a
// same-directory temp file and renamed over the original.
//
// OutcomeAlreadyPatched leaves the file and any existing backup untouched.
func PatchFile(ctx context.Context, path string, target string, css string, js string, opts PatchOptions) (*PatchResult, error) {
	opts.applyDefaults()

	if ctx == nil {
		ctx = context.Background()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	res, err := Patch(data, target, css, js, opts)
	if err != nil {
		return nil, err
	}

	if res.Outcome == OutcomeAlreadyPatched {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	backupPath := path + backupSuffix
	if err := prepareBackupSlot(backupPath, opts.BackupKeep); err != nil {
		return nil, err
	}

	if err := writeFileDurable(backupPath, data); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}

	if err := replaceFileDurable(path, res.Data); err != nil {
		if rollbackErr := restoreFromBackup(path, backupPath); rollbackErr != nil {
			return nil, fmt.Errorf("%w (rollback failed: %w)", err, rollbackErr)
		}

		return nil, err
	}

	return res, nil
}

// RestoreBackup copies "<path>.bak" back over path. It is available
// regardless of how the patched payloads were produced.
func RestoreBackup(path string) error {
	backupPath := path + backupSuffix

	if _, err := os.Stat(backupPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNoBackup, backupPath)
	} else if err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}

	return restoreFromBackup(path, backupPath)
}

// restoreFromBackup copies backup bytes over path. The backup itself is kept,
// in case the copy has to be repeated.
func restoreFromBackup(path string, backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	if err := replaceFileDurable(path, data); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	return nil
}

// prepareBackupSlot rotates existing backup generations before a new backup
// is written. keep=1 keeps only "<path>.bak"; keep=N also keeps
// ".bak.1..N-1", oldest last.
func prepareBackupSlot(backupPath string, keep int) error {
	if keep <= 1 {
		return nil
	}

	oldest := fmt.Sprintf("%s.%d", backupPath, keep-1)
	if err := removeIfExists(oldest); err != nil {
		return err
	}

	for i := keep - 2; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", backupPath, i)
		to := fmt.Sprintf("%s.%d", backupPath, i+1)
		if err := renameIfExists(from, to); err != nil {
			return err
		}
	}

	return renameIfExists(backupPath, backupPath+".1")
}

// renameIfExists renames source to destination when source exists.
func renameIfExists(from string, to string) error {
	_, err := os.Stat(from)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", from, err)
	}

	if err := removeIfExists(to); err != nil {
		return err
	}

	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}

	return nil
}

// removeIfExists removes file when present.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) || err == nil {
		return nil
	}

	return fmt.Errorf("remove %s: %w", path, err)
}

// writeFileDurable writes data to path and syncs it to stable storage.
func writeFileDurable(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// replaceFileDurable writes data to a same-directory temp file, syncs it, and
// renames it over path.
func replaceFileDurable(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	if err := writeAndSync(tmp, data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}

// writeAndSync writes all data to f and flushes it.
func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		return err
	}

	return f.Sync()
}
