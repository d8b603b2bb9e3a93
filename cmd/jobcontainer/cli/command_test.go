// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// leaf returns a command with a --job flag that records what Run saw.
func leaf(name string, passthrough bool, job *string, received *[]string) *Command {
	return &Command{
		Name:        name,
		Passthrough: passthrough,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
			flagSet.StringVar(job, "job", "", "job description")
			flagSet.Bool("keep-auth", false, "keep registry auth")
			return flagSet
		},
		Run: func(ctx context.Context, passthrough []string) error {
			*received = passthrough
			return nil
		},
	}
}

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	t.Parallel()

	var called string
	root := &Command{
		Name: "jobcontainer",
		Subcommands: []*Command{
			{Name: "version", Run: func(context.Context, []string) error { called = "version"; return nil }},
			{Name: "prepare", Run: func(context.Context, []string) error { called = "prepare"; return nil }},
		},
	}

	if err := root.Execute(context.Background(), []string{"prepare"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "prepare" {
		t.Errorf("dispatched to %q, want prepare", called)
	}
}

func TestExecutePassesContext(t *testing.T) {
	t.Parallel()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")
	var seen any
	root := &Command{
		Name: "jobcontainer",
		Subcommands: []*Command{{
			Name: "run",
			Run: func(ctx context.Context, _ []string) error {
				seen = ctx.Value(key{})
				return nil
			},
		}},
	}

	if err := root.Execute(ctx, []string{"run"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if seen != "marker" {
		t.Errorf("Run saw context value %v", seen)
	}
}

func TestExecuteSplitsPassthrough(t *testing.T) {
	t.Parallel()

	var job string
	var received []string
	command := leaf("command", true, &job, &received)

	err := command.Execute(context.Background(),
		[]string{"--job", "job.yaml", "--", "ansible-playbook", "--check", "-i", "inventory", "--", "site.yml"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if job != "job.yaml" {
		t.Errorf("job = %q, want job.yaml", job)
	}
	want := []string{"ansible-playbook", "--check", "-i", "inventory", "--", "site.yml"}
	if !slices.Equal(received, want) {
		t.Errorf("passthrough = %q, want %q", received, want)
	}
}

func TestExecuteWithoutSeparator(t *testing.T) {
	t.Parallel()

	var job string
	received := []string{"sentinel"}
	command := leaf("command", true, &job, &received)

	if err := command.Execute(context.Background(), []string{"--job", "job.yaml"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if received != nil {
		t.Errorf("passthrough = %q, want nil without --", received)
	}

	if err := command.Execute(context.Background(), []string{"--job", "job.yaml", "--"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if received == nil || len(received) != 0 {
		t.Errorf("passthrough = %#v, want empty after a trailing --", received)
	}
}

func TestExecuteRejectsPositionalArguments(t *testing.T) {
	t.Parallel()

	var job string
	var received []string

	passthrough := leaf("run", true, &job, &received)
	err := passthrough.Execute(context.Background(), []string{"--job", "job.yaml", "site.yml"})
	if err == nil || !strings.Contains(err.Error(), `unexpected arguments: ["site.yml"]`) {
		t.Fatalf("Execute = %v, want unexpected arguments", err)
	}
	if !strings.Contains(err.Error(), "after --") {
		t.Errorf("error = %q, want a pointer to --", err)
	}

	plain := leaf("prepare", false, &job, &received)
	err = plain.Execute(context.Background(), []string{"--job", "job.yaml", "--", "true"})
	if err == nil || !strings.Contains(err.Error(), "does not take a command after --") {
		t.Errorf("Execute = %v, want -- rejected", err)
	}
}

func TestExecuteUnknownFlagSuggestion(t *testing.T) {
	t.Parallel()

	var job string
	var received []string
	command := leaf("prepare", false, &job, &received)

	err := command.Execute(context.Background(), []string{"--job", "job.yaml", "--keep-atuh"})
	if err == nil {
		t.Fatal("Execute = nil, want error for unknown flag")
	}
	message := err.Error()
	if !strings.Contains(message, "did you mean --keep-auth?") {
		t.Errorf("error = %q, want suggestion for --keep-auth", message)
	}
	if !strings.Contains(message, "Run 'prepare --help'") {
		t.Errorf("error = %q, should point to --help", message)
	}
}

func TestExecuteUnknownSubcommandSuggestion(t *testing.T) {
	t.Parallel()

	root := &Command{
		Name: "jobcontainer",
		Subcommands: []*Command{
			{Name: "prepare", Run: func(context.Context, []string) error { return nil }},
			{Name: "validate", Run: func(context.Context, []string) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"valdate"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "validate"`) {
		t.Errorf("Execute = %v, want suggestion", err)
	}

	err = root.Execute(context.Background(), []string{"--job", "x"})
	if err == nil || !strings.Contains(err.Error(), "expects a subcommand") {
		t.Errorf("Execute = %v, want subcommand error for a leading flag", err)
	}
}

func TestExecuteRequiresSubcommand(t *testing.T) {
	t.Parallel()

	root := &Command{
		Name:        "jobcontainer",
		Subcommands: []*Command{{Name: "prepare"}},
	}

	if err := root.Execute(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("Execute = %v, want 'subcommand required'", err)
	}
}

func TestExecuteHelpAnywhereInFlags(t *testing.T) {
	t.Parallel()

	var job string
	received := []string{"untouched"}
	command := leaf("run", true, &job, &received)

	for _, args := range [][]string{{"--help"}, {"--job", "job.yaml", "-h"}} {
		if err := command.Execute(context.Background(), args); err != nil {
			t.Fatalf("Execute(%q): %v", args, err)
		}
	}
	if len(received) != 1 || received[0] != "untouched" {
		t.Error("Run should not be called for help")
	}
}

func TestPrintHelp(t *testing.T) {
	t.Parallel()

	var job string
	var received []string
	run := leaf("run", true, &job, &received)
	root := &Command{
		Name:        "jobcontainer",
		Description: "Prepare and run jobs in containers.",
		Subcommands: []*Command{
			{Name: "prepare", Summary: "Lay out a private data directory"},
			run,
		},
		Examples: []Example{{
			Description: "Print the podman invocation for a playbook",
			Command:     "jobcontainer command --job job.yaml -- ansible-playbook site.yml",
		}},
	}

	var buffer bytes.Buffer
	root.PrintHelp(&buffer)
	output := buffer.String()
	for _, want := range []string{
		"Usage: jobcontainer <command>\n",
		"Prepare and run jobs in containers.",
		"Commands:",
		"Lay out a private data directory",
		"Examples:",
		"# Print the podman invocation for a playbook",
		"$ jobcontainer command --job job.yaml",
		"See 'jobcontainer <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("root help missing %q\n\nFull output:\n%s", want, output)
		}
	}

	run.parent = root
	buffer.Reset()
	run.PrintHelp(&buffer)
	output = buffer.String()
	for _, want := range []string{
		"Usage: jobcontainer run [flags] [-- COMMAND ARGS...]",
		"Flags:",
		"--job",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("run help missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommandPath(t *testing.T) {
	t.Parallel()

	root := &Command{Name: "jobcontainer"}
	group := &Command{Name: "debug", parent: root}
	env := &Command{Name: "env", parent: group}

	if got := root.path(); got != "jobcontainer" {
		t.Errorf("root.path() = %q", got)
	}
	if got := env.path(); got != "jobcontainer debug env" {
		t.Errorf("env.path() = %q", got)
	}
}
