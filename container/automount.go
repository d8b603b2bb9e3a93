// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"os"
	"path"
	"strings"
)

// containerHome is the home directory of the user inside job images.
const containerHome = "/home/runner"

// automountEnv lists host environment variables naming paths the job
// needs (the ssh-agent socket). Each is mounted when it exists and is
// always re-exported into the container pointing at the mounted path.
var automountEnv = []string{"SSH_AUTH_SOCK"}

type automountPath struct {
	source string
	dest   string
}

// automountPaths are host paths mounted whenever they exist.
func automountPaths(home string) []automountPath {
	var paths []automountPath
	if home != "" {
		sshDir := path.Join(home, ".ssh") + "/"
		paths = append(paths,
			automountPath{source: sshDir, dest: containerHome + "/.ssh/"},
			automountPath{source: sshDir, dest: "/root/.ssh/"},
		)
	}
	return append(paths, automountPath{source: "/etc/ssh/ssh_known_hosts", dest: "/etc/ssh/ssh_known_hosts"})
}

// addAutomounts mounts the ssh configuration of the invoking user.
func (b *Builder) addAutomounts() error {
	home := b.environ["HOME"]

	for _, name := range automountEnv {
		value, ok := b.environ[name]
		if !ok {
			continue
		}

		destination := value
		if _, err := os.Stat(value); err == nil {
			switch {
			case home != "" && strings.HasPrefix(value, home):
				destination = path.Join(containerHome, strings.TrimPrefix(value, home))
			case strings.HasPrefix(value, "~"):
				destination = path.Join(containerHome, strings.TrimPrefix(strings.TrimPrefix(value, "~"), "/"))
			}
			if _, err := b.Mount(value, destination, ""); err != nil {
				return err
			}
		}

		b.args = append(b.args, "-e", name+"="+destination)
	}

	for _, mount := range automountPaths(home) {
		if _, err := os.Stat(mount.source); err != nil {
			continue
		}
		if _, err := b.Mount(mount.source, mount.dest, ""); err != nil {
			return err
		}
	}

	return nil
}
