// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error handler for
// jobcontainer. It is the one place outside the CLI's own output that
// writes to stderr directly: errors returned from main's run() are
// reported here because the command logger may not exist yet.
package process
