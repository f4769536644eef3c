// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Bendi11
// Source: github.com/bendi11/asar

/*
Package asar provides read, extract, and patch operations for asar archives
(the Electron application bundle format). Archives are decoded fully into
memory; re-encoding an unmodified archive reproduces the input bytes exactly,
including attribute order and unknown attributes in the header JSON.

The patch flow injects a CSS/JS customization block into one JavaScript entry
inside the archive, anchored on a unique statement fragment, and shifts the
packed offsets of every subsequent entry by the length delta. Injection is
idempotent: a guard token marks an already-patched entry and repeat runs leave
the archive untouched.

# Reading

Open an archive and list or read entries:

	a, err := asar.Open("app.asar")
	if err != nil {
	    return err
	}
	for _, e := range a.Entries() {
	    data, _ := a.ReadEntry(e.Path)
	    // use data
	}

Select entries by path rules:

	entries, err := a.List(asar.ListOptions{
	    Rules: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "dist/**"},
	    },
	})

Entries marked "unpacked" live outside the archive in the sibling
"app.asar.unpacked" directory; archives constructed by Decode cannot resolve
them and reading one returns ErrUnpackedEntry.

# Extracting

Extract selected entries to a directory (parallel workers):

	if err := a.Extract(ctx, "out/", asar.ExtractOptions{MaxWorkers: 4}); err != nil {
	    return err
	}

# Patching

Patch an archive buffer in memory:

	res, err := asar.Patch(data, "dist/main/main.js", css, js, asar.PatchOptions{})
	if err != nil {
	    return err
	}
	switch res.Outcome {
	case asar.OutcomePatched:
	    // res.Data holds the re-encoded archive
	case asar.OutcomeAlreadyPatched:
	    // res.Data is the unmodified input
	}

Patch a file on disk with a durable backup written first:

	res, err := asar.PatchFile(ctx, "app.asar", "dist/main/main.js", css, js, asar.PatchOptions{
	    BackupKeep: 2,
	})

Rewrite the embedded payloads of an already-patched entry:

	res, err := asar.PatchFile(ctx, "app.asar", "dist/main/main.js", css, js, asar.PatchOptions{
	    RefreshPayloads: true,
	})

Undo the last patch from the backup:

	if err := asar.RestoreBackup("app.asar"); err != nil {
	    return err
	}

Payload strings are validated before splicing: CSS and JS are embedded inside
a JavaScript template literal, so unescaped backticks (and "${" in CSS) are
rejected with ErrPayloadEscape rather than emitted broken.
*/
package asar
