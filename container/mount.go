// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// VolumeSpec is a parsed "source:dest[:label]" volume mount string.
type VolumeSpec struct {
	Source string
	Dest   string
	Label  string
}

// ParseVolumeSpec parses a volume mount in format "source:dest[:label]".
// Paths containing colons are not supported.
func ParseVolumeSpec(spec string) (VolumeSpec, error) {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 2:
		return VolumeSpec{Source: parts[0], Dest: parts[1]}, nil
	case 3:
		return VolumeSpec{Source: parts[0], Dest: parts[1], Label: parts[2]}, nil
	default:
		return VolumeSpec{}, fmt.Errorf("%w: invalid volume mount %q: must be source:dest[:label]", ErrConfiguration, spec)
	}
}

// Mount adds a "-v src:dst[:label]" pair for source. An empty
// destination mirrors the source; a relative destination is resolved
// against the container workdir when one is configured.
//
// A missing source is skipped and reported as (false, nil). Mounts are
// directory-granular: a file source mounts its parent directory. An
// identical formatted mount already in the invocation is also skipped.
// Either side resolving to a forbidden root is an error.
func (b *Builder) Mount(source, destination, label string) (bool, error) {
	if source == "" {
		b.logger.Debug("skipping mount with empty source")
		return false, nil
	}
	if _, err := os.Stat(source); err != nil {
		b.logger.Debug("source volume mount path does not exist", "source", source)
		return false, nil
	}

	sourcePath, err := b.resolvePath(source)
	if err != nil {
		return false, err
	}

	var destinationPath string
	switch {
	case destination == "":
		destinationPath = sourcePath
	case b.options.ContainerWorkdir != "" && !filepath.IsAbs(destination):
		destinationPath, err = b.resolvePath(filepath.Join(b.options.ContainerWorkdir, destination))
	default:
		destinationPath, err = b.resolvePath(destination)
	}
	if err != nil {
		return false, err
	}

	// The destination does not exist on the host, so the source decides
	// whether both sides are reduced to their directory.
	if info, err := os.Stat(sourcePath); err != nil || !info.IsDir() {
		sourcePath = filepath.Dir(sourcePath)
		destinationPath = filepath.Dir(destinationPath)
	}
	sourcePath = withTrailingSeparator(sourcePath)
	destinationPath = withTrailingSeparator(destinationPath)

	if err := EnsureMountable(sourcePath); err != nil {
		return false, err
	}
	if err := EnsureMountable(destinationPath); err != nil {
		return false, err
	}

	volume := sourcePath + ":" + destinationPath
	if label != "" {
		if !strings.HasPrefix(label, ":") {
			volume += ":"
		}
		volume += label
	}

	if _, exists := b.mounts[volume]; exists {
		b.logger.Debug("mount already configured", "volume", volume)
		return false, nil
	}
	b.mounts[volume] = struct{}{}
	b.args = append(b.args, "-v", volume)
	return true, nil
}

// resolvePath expands environment variables and a leading "~" using the
// builder's environment snapshot, then makes the path absolute.
func (b *Builder) resolvePath(path string) (string, error) {
	expanded := expandEnviron(path, b.environ)
	if home := b.environ["HOME"]; home != "" {
		if expanded == "~" {
			expanded = home
		} else if strings.HasPrefix(expanded, "~/") {
			expanded = filepath.Join(home, expanded[2:])
		}
	}
	absolute, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolving mount path %q: %w", path, err)
	}
	return absolute, nil
}

// expandEnviron replaces $NAME and ${NAME} with values from environ.
// Unknown names and an unterminated "${" are left exactly as written.
func expandEnviron(s string, environ map[string]string) string {
	var result strings.Builder
	for {
		index := strings.IndexByte(s, '$')
		if index < 0 {
			result.WriteString(s)
			return result.String()
		}
		result.WriteString(s[:index])
		s = s[index:]

		var name, reference string
		if strings.HasPrefix(s, "${") {
			end := strings.IndexByte(s, '}')
			if end < 0 {
				result.WriteString(s)
				return result.String()
			}
			name, reference = s[2:end], s[:end+1]
		} else {
			length := 1
			for length < len(s) && isNameByte(s[length]) {
				length++
			}
			name, reference = s[1:length], s[:length]
		}

		if value, ok := environ[name]; ok && name != "" {
			result.WriteString(value)
		} else {
			result.WriteString(reference)
		}
		s = s[len(reference):]
	}
}

func isNameByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
