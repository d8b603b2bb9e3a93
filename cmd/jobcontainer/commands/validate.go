// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/jobcontainer/cmd/jobcontainer/cli"
	"github.com/bureau-foundation/jobcontainer/container"
)

func validateCommand(stdout io.Writer) *cli.Command {
	var params jobParams

	return &cli.Command{
		Name:    "validate",
		Summary: "Check that a job can run",
		Description: `Run pre-flight checks for a job without changing anything on disk:
the engine binary is on PATH, an image is set, and the private data
directory, working directory and volume mount sources are mountable.
An ssh key, when the job has one, must parse as a private key.

Exits 1 when any check fails. Warnings do not fail validation.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("validate", &params)
		},
		Run: func(_ context.Context, _ []string) error {
			logger := cli.NewCommandLogger().With("command", "validate")

			description, _, err := loadJob(params, logger)
			if err != nil {
				return err
			}

			validator := container.NewValidator()
			if description.Containerized() {
				engine, err := container.ParseEngine(description.ProcessIsolationExecutable)
				if err != nil {
					return err
				}
				validator.ValidateAll(container.Options{
					Engine:           engine,
					Image:            description.ContainerImage,
					PrivateDataDir:   description.PrivateDataDir,
					HostCwd:          description.HostCwd,
					ContainerWorkdir: description.ContainerWorkdir,
					VolumeMounts:     description.ContainerVolumeMounts,
				})
			} else {
				validator.ValidatePrivateDataDir(description.PrivateDataDir)
			}

			key, err := description.SSHKeyData()
			if err != nil {
				return err
			}
			validator.ValidateSSHKey(key)

			validator.PrintResults(stdout)
			if validator.HasErrors() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
