// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

var identSequence atomic.Uint64

// Ident returns a job ident for t that no other call in the test binary
// returns. It is built from the test name, so artifact and auth
// directories left on disk name the test that made them:
//
//	testutil.Ident(t) // in TestDump/inline_playbook: "testdump-inline-playbook-7"
func Ident(t testing.TB) string {
	t.Helper()
	name := strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', '0' <= r && r <= '9':
			return r
		case 'A' <= r && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, t.Name())
	return name + "-" + strconv.FormatUint(identSequence.Add(1), 10)
}
