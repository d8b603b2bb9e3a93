// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifact writes job input artifacts (playbooks, inventories,
// env files) into a private data directory.
//
// Writes are idempotent by content: [Writer.Write] compares the SHA-1
// of the new content with the file already on disk and leaves a
// matching file untouched, so repeated preparation of the same job does
// not disturb modification times. When the content differs the file is
// rewritten under an exclusive lock on a per-directory lock file
// (".artifact_write_lock"), which is removed afterwards. Files are
// created owner-only (0600) and directories 0700.
//
// [MarshalJSON] renders values in the same textual form the automation
// engine produces for its own artifacts: ", " and ": " separators,
// struct fields in declaration order, and map keys sorted. Content
// written from structured values is therefore byte-stable across runs.
package artifact
