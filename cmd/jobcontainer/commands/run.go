// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/jobcontainer/cmd/jobcontainer/cli"
	"github.com/bureau-foundation/jobcontainer/container"
	"github.com/bureau-foundation/jobcontainer/lib/job"
)

// stopGrace is how long a job gets after SIGTERM before it is killed.
const stopGrace = 10 * time.Second

func runCommand(stdout io.Writer) *cli.Command {
	var params wrapParams

	return &cli.Command{
		Name:    "run",
		Summary: "Prepare a job and run its command",
		Description: `Prepare the job, wrap its command and run it.

The job's environment is passed through the process environment; for
containerized jobs the engine reads the variable names from
<artifact_dir>/env.list. An ssh key is served once through a fifo at
<artifact_dir>/ssh_key_data and loaded by ssh-agent.

Exits with the command's own status. On SIGINT or SIGTERM the command is
sent SIGTERM, then killed after a grace period. Registry auth is removed
on exit unless --keep-auth is given.`,
		Passthrough: true,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("run", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			logger := cli.NewCommandLogger().With("command", "run")

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
			logger = logger.With("ident", description.Ident)
			return runJob(ctx, description, stdout, logger)
		},
	}
}

func runJob(ctx context.Context, description *job.Config, stdout io.Writer, logger *slog.Logger) error {
	if description.SSHKey != "" {
		keyContext, cancelKey := context.WithCancel(ctx)
		done, err := job.ServeKeyFifo(keyContext, description.SSHKeyPath, description.SSHKey)
		if err != nil {
			cancelKey()
			return err
		}
		defer func() {
			cancelKey()
			if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("serving ssh key failed", "error", err)
			}
		}()
	}

	command := exec.CommandContext(ctx, description.Command[0], description.Command[1:]...)
	command.Dir = description.Cwd
	command.Env = description.Environment()
	command.Stdin = os.Stdin
	command.Stdout = stdout
	command.Stderr = os.Stderr
	command.Cancel = func() error {
		return command.Process.Signal(syscall.SIGTERM)
	}
	command.WaitDelay = stopGrace

	logger.Info("starting job", "command", description.Command[0], "containerized", description.Containerized())
	err := cli.FromProcess(command.Run())
	if code, ok := cli.ExitStatus(err); ok {
		logger.Info("job finished", "exit_code", code)
		return err
	}
	if err != nil {
		return fmt.Errorf("running %s: %w", description.Command[0], err)
	}
	logger.Info("job finished", "exit_code", 0)
	return nil
}
