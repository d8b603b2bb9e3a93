// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/jobcontainer/cmd/jobcontainer/cli"
)

func prepareCommand(stdout io.Writer) *cli.Command {
	var params jobParams

	return &cli.Command{
		Name:    "prepare",
		Summary: "Lay out a job's private data directory",
		Description: `Write the job's artifacts into its private data directory.

Inline playbooks and inventories become project/main.json and
inventory/hosts(.json); envvars, extravars, passwords, settings, ssh_key
and cmdline land under env/. Files whose content is unchanged are left
alone, and env files that already exist are never overwritten.

Prints the private data directory on stdout.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("prepare", &params)
		},
		Run: func(_ context.Context, _ []string) error {
			logger := cli.NewCommandLogger().With("command", "prepare")

			description, _, err := loadJob(params, logger)
			if err != nil {
				return err
			}
			if _, err := prepareJob(description, logger); err != nil {
				return err
			}

			logger.Info("job prepared",
				"ident", description.Ident,
				"artifact_dir", description.ArtifactDir,
				"containerized", description.Containerized(),
			)
			fmt.Fprintln(stdout, description.PrivateDataDir)
			return nil
		},
	}
}
