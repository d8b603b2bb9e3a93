// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/jobcontainer/cmd/jobcontainer/cli"
	"github.com/bureau-foundation/jobcontainer/cmd/jobcontainer/commands"
	"github.com/bureau-foundation/jobcontainer/lib/process"
)

func main() {
	if err := run(); err != nil {
		// validate and run have already reported their outcome.
		if code, ok := cli.ExitStatus(err); ok {
			os.Exit(code)
		}
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return commands.Root(os.Stdout).Execute(ctx, os.Args[1:])
}
