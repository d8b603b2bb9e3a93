// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [WriteFile], [ReadFile] and [RequireNotExist] cover the file fixtures
// that job and artifact tests build inside t.TempDir().
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) for tests that wait on background
// goroutines.
//
// [Ident] derives a job ident from the test name plus a process-wide
// sequence number, so parallel tests never share an artifact directory.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
