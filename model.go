// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

package asar

import (
	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	// pickleFrameSize is the fixed byte length of the two size pickles before the header JSON.
	pickleFrameSize = 16
	// sizePrefixWord is the first pickle word: the byte width of the payload-size word that follows.
	sizePrefixWord = 4
	// pickleAlignment pads the header JSON block with null bytes to this boundary.
	pickleAlignment = 4
)

// Default patch tuning values.
const (
	// DefaultBackupKeep keeps one backup generation after a successful patch.
	DefaultBackupKeep = 1
	// DefaultIntegrityBlockSize is the per-block hash window of the entry integrity attribute.
	DefaultIntegrityBlockSize = 4 * 1024 * 1024
)

// EntryInfo describes a single file entry from the archive index.
type EntryInfo struct {
	// Path is the slash-joined entry path within the archive tree.
	Path string `json:"path" yaml:"path"`
	// Size is the entry content size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// Offset is the byte offset within the data blob; -1 for unpacked entries.
	Offset int64 `json:"offset" yaml:"offset"`
	// Unpacked reports whether the entry bytes live outside the archive on disk.
	Unpacked bool `json:"unpacked,omitempty" yaml:"unpacked,omitempty"`
}

// InjectionConfig carries the anchor and marker strings the injection engine
// operates on. The zero value is filled from DefaultInjectionConfig.
type InjectionConfig struct {
	// Anchor is the statement fragment expected to occur exactly once in the target text.
	Anchor string `json:"anchor" yaml:"anchor"`
	// GuardToken marks an already-injected block for idempotence detection.
	GuardToken string `json:"guard_token" yaml:"guard_token"`
	// BeginSentinel opens the injected script region.
	BeginSentinel string `json:"begin_sentinel" yaml:"begin_sentinel"`
	// EndSentinel closes the injected script region.
	EndSentinel string `json:"end_sentinel" yaml:"end_sentinel"`
}

// DefaultInjectionConfig returns the marker set used by the Electron
// main-screen script this engine was built for.
func DefaultInjectionConfig() InjectionConfig {
	return InjectionConfig{
		Anchor:        "mainWindow.webContents.",
		GuardToken:    "CSS_INJECTION_USER_CSS",
		BeginSentinel: "//JS_SCRIPT_BEGIN",
		EndSentinel:   "//JS_SCRIPT_END",
	}
}

// Outcome reports how a patch operation concluded.
type Outcome uint8

// Patch outcomes.
const (
	// OutcomePatched means a fresh injection block was spliced in.
	OutcomePatched Outcome = iota + 1
	// OutcomeAlreadyPatched means the guard token was present and the archive was left untouched.
	OutcomeAlreadyPatched
	// OutcomeRefreshed means embedded payloads were rewritten in place.
	OutcomeRefreshed
)

// String returns a short human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomePatched:
		return "patched"
	case OutcomeAlreadyPatched:
		return "already patched"
	case OutcomeRefreshed:
		return "refreshed"
	default:
		return "unknown"
	}
}

// PatchResult contains the output of one patch operation.
type PatchResult struct {
	// Data is the complete re-encoded archive buffer.
	// For OutcomeAlreadyPatched it is the unmodified input.
	Data []byte `json:"-" yaml:"-"`
	// Target is the normalized path of the patched entry.
	Target string `json:"target" yaml:"target"`
	// Outcome reports whether the block was injected, refreshed, or already present.
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	// OldSize is the target entry size before patching.
	OldSize int64 `json:"old_size" yaml:"old_size"`
	// NewSize is the target entry size after patching.
	NewSize int64 `json:"new_size" yaml:"new_size"`
}

// PatchOptions configures patch behavior.
type PatchOptions struct {
	// Injection overrides the anchor and marker strings; zero fields take defaults.
	Injection InjectionConfig `json:"injection,omitzero" yaml:"injection,omitzero"`
	// RefreshPayloads rewrites the embedded CSS/JS in place when the guard
	// token is already present instead of reporting OutcomeAlreadyPatched.
	RefreshPayloads bool `json:"refresh_payloads,omitempty" yaml:"refresh_payloads,omitempty"`
	// BackupKeep controls how many backup generations PatchFile keeps.
	// Values below 1 are raised to 1: the file-based flow always preserves
	// the original bytes before overwriting.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
}

// ListOptions configures entry listing.
type ListOptions struct {
	// Rules select entries by path; nil means all entries.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MatcherOptions control rule matching behavior.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// Rules select entries by path; nil means all entries.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MatcherOptions control rule matching behavior.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// SkipUnpacked silently skips unpacked entries whose sibling-directory
	// content cannot be resolved instead of failing the extraction.
	SkipUnpacked bool `json:"skip_unpacked,omitempty" yaml:"skip_unpacked,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// applyDefaults fills zero-valued injection markers with defaults.
func (cfg *InjectionConfig) applyDefaults() {
	def := DefaultInjectionConfig()

	if cfg.Anchor == "" {
		cfg.Anchor = def.Anchor
	}

	if cfg.GuardToken == "" {
		cfg.GuardToken = def.GuardToken
	}

	if cfg.BeginSentinel == "" {
		cfg.BeginSentinel = def.BeginSentinel
	}

	if cfg.EndSentinel == "" {
		cfg.EndSentinel = def.EndSentinel
	}
}

// applyDefaults fills zero-valued patch options with defaults.
func (opts *PatchOptions) applyDefaults() {
	opts.Injection.applyDefaults()

	if opts.BackupKeep < DefaultBackupKeep {
		opts.BackupKeep = DefaultBackupKeep
	}
}

// alignHeader rounds a header JSON length up to the pickle alignment boundary.
func alignHeader(n int) int {
	return (n + pickleAlignment - 1) &^ (pickleAlignment - 1)
}
