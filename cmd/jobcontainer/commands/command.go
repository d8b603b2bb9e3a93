// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/jobcontainer/cmd/jobcontainer/cli"
	"github.com/bureau-foundation/jobcontainer/container"
)

func commandCommand(stdout io.Writer) *cli.Command {
	var params wrapParams

	return &cli.Command{
		Name:    "command",
		Summary: "Print the wrapped command line for a job",
		Description: `Prepare the job and print the command line that would run it, one
argument per line.

For containerized jobs this is the full podman or docker invocation:
mounts for the private data directory, the working directory, paths
named in the arguments (in ansible mode) and well-known host
configuration, plus the env-file, name and engine options.

The registry auth directory, if any, is removed on exit unless
--keep-auth is given. The ssh key fifo is only served by "run".`,
		Passthrough: true,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("command", &params)
		},
		Run: func(_ context.Context, args []string) error {
			logger := cli.NewCommandLogger().With("command", "command")

			cleanup := container.NewCleanupRegistry()
			if !params.KeepAuth {
				defer func() {
					if err := cleanup.Cleanup(); err != nil {
						logger.Warn("cleanup failed", "error", err)
					}
				}()
			}

			description, _, err := wrapJob(params, args, cleanup, logger)
			if err != nil {
				return err
			}
			for _, arg := range description.Command {
				fmt.Fprintln(stdout, arg)
			}
			return nil
		},
	}
}
