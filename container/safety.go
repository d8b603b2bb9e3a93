// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrConfiguration is wrapped by every error caused by an unusable job
// configuration: unsafe mount roots, malformed volume specs, a missing
// image. Test with errors.Is.
var ErrConfiguration = errors.New("configuration error")

// forbiddenMountRoots are compared after a trailing separator is appended.
var forbiddenMountRoots = []string{"/", "/home/", "/usr/"}

// EnsureMountable returns an error wrapping ErrConfiguration when path
// (or its directory, if path names an existing file) is one of the
// forbidden mount roots.
func EnsureMountable(path string) error {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		path = filepath.Dir(path)
	}
	normalized := withTrailingSeparator(filepath.Clean(path))
	for _, root := range forbiddenMountRoots {
		if normalized == root {
			return fmt.Errorf("%w: cannot mount %q into a container (/, /home and /usr are never mounted)", ErrConfiguration, path)
		}
	}
	return nil
}

func withTrailingSeparator(path string) string {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return path
	}
	return path + string(filepath.Separator)
}
