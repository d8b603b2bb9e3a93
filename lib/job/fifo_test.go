// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/jobcontainer/lib/testutil"
)

func TestServeKeyFifo(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ssh_key_data")
	done, err := ServeKeyFifo(context.Background(), path, "PRIVATE KEY")
	if err != nil {
		t.Fatalf("ServeKeyFifo: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat fifo: %v", err)
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		t.Errorf("mode = %v, want a named pipe", info.Mode())
	}

	if got := testutil.ReadFile(t, path); got != "PRIVATE KEY" {
		t.Errorf("read %q from fifo", got)
	}
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for fifo writer"); err != nil {
		t.Errorf("writer error: %v", err)
	}
}

func TestServeKeyFifoCancel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ssh_key_data")
	ctx, cancel := context.WithCancel(context.Background())
	done, err := ServeKeyFifo(ctx, path, "PRIVATE KEY")
	if err != nil {
		t.Fatalf("ServeKeyFifo: %v", err)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for cancelled writer"); !errors.Is(err, context.Canceled) {
		t.Errorf("writer error = %v, want context.Canceled", err)
	}
	testutil.RequireNotExist(t, path)
}
