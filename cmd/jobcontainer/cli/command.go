// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is a node in the jobcontainer command tree. A command either
// groups Subcommands or has a Run function, never both.
type Command struct {
	Name string

	// Summary is the one-line description listed in the parent's help.
	Summary string

	// Description is the long help text. Summary is used when empty.
	Description string

	Examples []Example

	// Flags builds the command's flag set. It is called once per
	// Execute and once per help request; nil means no flags.
	Flags func() *pflag.FlagSet

	// Passthrough lets the command take a job command line after a
	// literal "--". Everything after the separator reaches Run verbatim.
	// Without it, "--" is rejected.
	Passthrough bool

	Subcommands []*Command

	// Run executes a leaf command. passthrough holds the arguments after
	// "--" and is nil when there was no separator. Bare positional
	// arguments before "--" are rejected before Run is called.
	Run func(ctx context.Context, passthrough []string) error

	parent *Command
}

// Example is a command line shown in help output.
type Example struct {
	Description string
	Command     string
}

// Execute routes args through the tree and runs the selected command.
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(c.Subcommands) > 0 {
		return c.dispatch(ctx, args)
	}
	if c.Run == nil {
		return fmt.Errorf("%s has nothing to run", c.path())
	}

	flagArgs, passthrough := splitPassthrough(args)
	if passthrough != nil && !c.Passthrough {
		return c.usageError(fmt.Sprintf("%s does not take a command after --", c.path()))
	}

	var positional []string
	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)
		err := flagSet.Parse(flagArgs)
		if errors.Is(err, pflag.ErrHelp) {
			c.PrintHelp(os.Stderr)
			return nil
		}
		if err != nil {
			return c.flagError(err, flagSet)
		}
		positional = flagSet.Args()
	} else {
		for _, arg := range flagArgs {
			if isHelpFlag(arg) {
				c.PrintHelp(os.Stderr)
				return nil
			}
		}
		positional = flagArgs
	}

	if len(positional) > 0 {
		message := fmt.Sprintf("unexpected arguments: %q", positional)
		if c.Passthrough {
			message += " (put the job command after --)"
		}
		return c.usageError(message)
	}
	return c.Run(ctx, passthrough)
}

func (c *Command) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.PrintHelp(os.Stderr)
		return errors.New("subcommand required")
	}

	name := args[0]
	if isHelpFlag(name) {
		c.PrintHelp(os.Stderr)
		return nil
	}
	if index := slices.IndexFunc(c.Subcommands, func(sub *Command) bool { return sub.Name == name }); index >= 0 {
		sub := c.Subcommands[index]
		sub.parent = c
		return sub.Execute(ctx, args[1:])
	}

	if strings.HasPrefix(name, "-") {
		return c.usageError(fmt.Sprintf("%s expects a subcommand before flags, got %q", c.path(), name))
	}
	message := fmt.Sprintf("unknown command %q", name)
	if suggestion := closest(name, commandNames(c.Subcommands)); suggestion != "" {
		message += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return c.usageError(message)
}

func (c *Command) flagError(err error, flagSet *pflag.FlagSet) error {
	message := err.Error()
	if name := unknownFlagName(err); name != "" {
		if suggestion := closest(name, flagNames(flagSet)); suggestion != "" {
			message += fmt.Sprintf(" (did you mean --%s?)", suggestion)
		}
	}
	return c.usageError(message)
}

func (c *Command) usageError(message string) error {
	return fmt.Errorf("%s\n\nRun '%s --help' for usage.", message, c.path())
}

// splitPassthrough separates the arguments before the first "--" from
// those after it. after is nil when there is no separator and empty
// when the separator ends args.
func splitPassthrough(args []string) (before, after []string) {
	index := slices.Index(args, "--")
	if index < 0 {
		return args, nil
	}
	return args[:index], append([]string{}, args[index+1:]...)
}

// usage returns the synopsis line for the command.
func (c *Command) usage() string {
	var synopsis strings.Builder
	synopsis.WriteString(c.path())
	if len(c.Subcommands) > 0 {
		synopsis.WriteString(" <command>")
	}
	if c.Flags != nil {
		synopsis.WriteString(" [flags]")
	}
	if c.Passthrough {
		synopsis.WriteString(" [-- COMMAND ARGS...]")
	}
	return synopsis.String()
}

// PrintHelp writes the command's help text to w.
func (c *Command) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s\n\n", c.usage())

	text := c.Description
	if text == "" {
		text = c.Summary
	}
	if text != "" {
		fmt.Fprintf(w, "%s\n", strings.TrimRight(text, "\n"))
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		table := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(table, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		table.Flush()
	}

	if c.Flags != nil {
		if usages := c.Flags().FlagUsages(); usages != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", usages)
		}
	}

	for index, example := range c.Examples {
		if index == 0 {
			fmt.Fprintf(w, "\nExamples:\n")
		}
		if example.Description != "" {
			fmt.Fprintf(w, "  # %s\n", example.Description)
		}
		fmt.Fprintf(w, "  $ %s\n", example.Command)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nSee '%s <command> --help' for a command's flags.\n", c.path())
	}
}

// path is the command's full invocation, for example
// "jobcontainer run".
func (c *Command) path() string {
	names := []string{c.Name}
	for parent := c.parent; parent != nil; parent = parent.parent {
		names = append(names, parent.Name)
	}
	slices.Reverse(names)
	return strings.Join(names, " ")
}

func isHelpFlag(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}
