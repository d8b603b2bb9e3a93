// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the jobcontainer command tree.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/jobcontainer/cmd/jobcontainer/cli"
	"github.com/bureau-foundation/jobcontainer/lib/version"
)

// Root builds the command tree. Command output (paths, argument
// vectors, validation results) goes to stdout and logs go to stderr.
func Root(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "jobcontainer",
		Description: `jobcontainer: prepare automation jobs and run them in containers.

A job description (YAML, or JSON with comments) names a private data
directory, the playbook and inventory to run, and optionally a container
image. jobcontainer lays out the private data directory, then wraps the
job's command in a podman or docker invocation that mounts everything the
command needs.

Tool-wide defaults come from the file named by --config or
$JOBCONTAINER_CONFIG.`,
		Subcommands: []*cli.Command{
			prepareCommand(stdout),
			commandCommand(stdout),
			runCommand(stdout),
			validateCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string) error {
					fmt.Fprintf(stdout, "jobcontainer %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Lay out the private data directory for a job",
				Command:     "jobcontainer prepare --job job.yaml",
			},
			{
				Description: "Run a playbook inside the job's container image",
				Command:     "jobcontainer run --job job.yaml -- ansible-playbook -i inventory/hosts site.yml",
			},
		},
	}
}
