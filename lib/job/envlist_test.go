// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/bureau-foundation/jobcontainer/lib/artifact"
	"github.com/bureau-foundation/jobcontainer/lib/testutil"
)

func TestWriteEnvList(t *testing.T) {
	t.Parallel()

	config := &Config{
		PrivateDataDir:   t.TempDir(),
		Ident:            "job",
		ProcessIsolation: true,
		ContainerImage:   "runner",
		EnvVars:          map[string]string{"ZED": "z", "ALPHA": "a"},
		Environ:          map[string]string{},
	}
	if err := config.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	path, err := config.WriteEnvList(artifact.NewWriter(nil))
	if err != nil {
		t.Fatalf("WriteEnvList: %v", err)
	}
	if path != filepath.Join(config.ArtifactDir, "env.list") {
		t.Errorf("path = %q", path)
	}

	want := "ALPHA\nANSIBLE_HOST_KEY_CHECKING\nANSIBLE_RETRY_FILES_ENABLED\nANSIBLE_UNSAFE_WRITES\nAWX_ISOLATED_DATA_DIR\nZED\n"
	if got := testutil.ReadFile(t, path); got != want {
		t.Errorf("env.list =\n%s\nwant\n%s", got, want)
	}

	environment := config.Environment()
	if !slices.IsSorted(environment) || !slices.Contains(environment, "ZED=z") {
		t.Errorf("Environment() = %q", environment)
	}
}
