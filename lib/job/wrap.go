// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/jobcontainer/container"
)

// WrapCommand rewrites Command for launch. With an ssh key the command
// runs under ssh-agent, which loads the key from a fifo. When the job
// is containerized the result is wrapped in a container engine
// invocation; registry auth directories are registered with cleanup.
//
// cmdlineArgs are the user-supplied arguments scanned for file paths in
// container.ModeAnsibleCommands. Prepare must have been called.
func (c *Config) WrapCommand(mode container.ExecutionMode, cmdlineArgs []string, cleanup *container.CleanupRegistry) error {
	if !c.resolved || c.Env == nil {
		return errors.New("job must be prepared before wrapping its command")
	}
	if len(c.Command) == 0 {
		return errors.New("job has no command")
	}
	logger := c.logger()

	if c.SSHKey != "" {
		keyPath := c.SSHKeyPath
		if c.Containerized() {
			keyPath = filepath.Join(container.ContainerArtifacts, c.Ident, "ssh_key_data")
		}
		c.Command = sshAgentCommand(c.Command, keyPath)
		logger.Debug("ssh key data added")
	}

	if !c.Containerized() {
		logger.Debug("containerization disabled", "command", strings.Join(c.Command, " "))
		return nil
	}

	builder := container.NewBuilder(container.Options{
		Engine:           c.Engine,
		Image:            c.ContainerImage,
		Ident:            c.Ident,
		ContainerName:    c.ContainerName,
		PrivateDataDir:   c.PrivateDataDir,
		ArtifactDir:      c.ArtifactDir,
		HostCwd:          c.HostCwd,
		ContainerWorkdir: c.ContainerWorkdir,
		Mode:             mode,
		Command:          c.Command,
		CmdlineArgs:      cmdlineArgs,
		Interactive:      c.RunnerMode == RunnerModePexpect,
		InputStream:      c.InputStream,
		Auth:             c.ContainerAuthData,
		VolumeMounts:     c.ContainerVolumeMounts,
		ContainerOptions: c.ContainerOptions,
		Environ:          c.environ(),
		Cleanup:          cleanup,
		Logger:           c.Logger,
	})
	invocation, err := builder.Build(c.Command)
	if err != nil {
		return err
	}

	c.Command = invocation.Args
	c.RegistryAuthPath = invocation.RegistryAuthPath
	for key, value := range invocation.Env {
		c.Env[key] = value
	}
	logger.Debug("containerization enabled", "command", strings.Join(c.Command, " "))
	return nil
}

// sshAgentCommand runs args under a fresh ssh-agent after loading the
// key at keyPath. The trap removes the key fifo even when ssh-add fails,
// so a later reader never blocks on a stale fifo.
func sshAgentCommand(args []string, keyPath string) []string {
	cleanup := "rm -f " + keyPath
	script := strings.Join([]string{
		shellJoin("trap", cleanup, "EXIT"),
		shellJoin("ssh-add", keyPath),
		cleanup,
		shellJoin(args...),
	}, " && ")
	return []string{"ssh-agent", "sh", "-c", script}
}

func shellJoin(args ...string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// shellQuote quotes a string for safe inclusion in a shell command.
func shellQuote(s string) string {
	safe := true
	for _, char := range s {
		if !isShellSafe(char) {
			safe = false
			break
		}
	}
	if safe && s != "" {
		return s
	}

	// Single-quote the string, escaping any internal single quotes.
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// isShellSafe returns true if the character doesn't need shell quoting.
func isShellSafe(char rune) bool {
	switch {
	case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z', char >= '0' && char <= '9':
		return true
	}
	switch char {
	case '-', '_', '.', '/', ':', '=', '+', ',', '@', '%':
		return true
	}
	return false
}
