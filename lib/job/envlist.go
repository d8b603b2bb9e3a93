// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"errors"
	"slices"
	"strings"

	"github.com/bureau-foundation/jobcontainer/lib/artifact"
)

// envListName is the file referenced by the engine's --env-file flag.
const envListName = "env.list"

// WriteEnvList writes the names of Env, one per line, to
// <ArtifactDir>/env.list. Values are not written: the engine copies
// each named variable from the environment of the launching process.
func (c *Config) WriteEnvList(writer *artifact.Writer) (string, error) {
	if !c.resolved {
		return "", errors.New("job must be prepared before writing its env list")
	}
	names := make([]string, 0, len(c.Env))
	for name := range c.Env {
		names = append(names, name)
	}
	slices.Sort(names)

	content := strings.Join(names, "\n")
	if content != "" {
		content += "\n"
	}
	return writer.Write(content, c.ArtifactDir, envListName)
}

// Environment returns Env in os/exec KEY=VALUE form, sorted by name.
func (c *Config) Environment() []string {
	environment := make([]string, 0, len(c.Env))
	for name, value := range c.Env {
		environment = append(environment, name+"="+value)
	}
	slices.Sort(environment)
	return environment
}
