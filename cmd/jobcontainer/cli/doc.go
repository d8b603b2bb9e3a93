// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the jobcontainer
// CLI.
//
// A [Command] either groups subcommands or runs. [Command.Execute]
// routes the first argument to a subcommand, cuts the arguments at the
// first "--", parses flags from the part before it and hands the part
// after it to Run untouched. Only commands marked [Command.Passthrough]
// accept a job command line after "--"; stray positional arguments are
// rejected for every command.
//
// Flags are declared as tagged struct fields and bound with
// [FlagsFromParams]. A mistyped subcommand or long flag gets a "did you
// mean" suggestion when it is within edit distance 3 of a real one.
//
// [ExitError] carries a status for main to exit with after the command
// has reported its own outcome. [FromProcess] builds one from a
// finished job process.
package cli
