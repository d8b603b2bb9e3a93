// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"
	"strings"
)

// Engine identifies the container runtime used to isolate a job.
type Engine int

const (
	// Podman is the default engine.
	Podman Engine = iota
	// Docker.
	Docker
)

// ParseEngine maps an engine name ("podman", "docker") to an Engine.
// Empty selects Podman.
func ParseEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "podman":
		return Podman, nil
	case "docker":
		return Docker, nil
	default:
		return 0, fmt.Errorf("%w: unsupported container engine %q (must be docker or podman)", ErrConfiguration, name)
	}
}

func (e Engine) String() string {
	switch e {
	case Docker:
		return "docker"
	case Podman:
		return "podman"
	default:
		return fmt.Sprintf("engine(%d)", int(e))
	}
}

// Binary is the executable name invoked for this engine.
func (e Engine) Binary() string {
	return e.String()
}

// NamespaceArguments are added when the job runs engine-aware commands.
func (e Engine) NamespaceArguments() []string {
	if e == Podman {
		return []string{"--group-add=root", "--ipc=host"}
	}
	return nil
}

// ExtraArguments are appended after the env file reference. Docker runs
// the container as the invoking user so files written to mounted
// directories stay owned by that user.
func (e Engine) ExtraArguments(uid int) []string {
	switch e {
	case Podman:
		return []string{"--quiet"}
	case Docker:
		return []string{fmt.Sprintf("--user=%d", uid)}
	default:
		return nil
	}
}

// AuthFilename is the name of the registry credential file.
func (e Engine) AuthFilename() string {
	if e == Docker {
		return "config.json"
	}
	return "auth.json"
}

// CredentialPath picks the path handed to the engine: docker takes the
// config directory, podman takes the authfile itself.
func (e Engine) CredentialPath(directory, file string) string {
	if e == Docker {
		return directory
	}
	return file
}

// AuthArgument is the flag pointing the engine at its credentials.
func (e Engine) AuthArgument(credentialPath string) string {
	if e == Docker {
		return "--config=" + credentialPath
	}
	return "--authfile=" + credentialPath
}

// AuthArgumentIsGlobal reports whether AuthArgument must precede the
// "run" subcommand.
func (e Engine) AuthArgumentIsGlobal() bool {
	return e == Docker
}
