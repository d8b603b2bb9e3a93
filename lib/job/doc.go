// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package job describes one automation job and turns it into the files
// and command line needed to launch it.
//
// A job goes through three steps:
//
//   - [DumpArtifacts] persists the inline inputs of the job (playbook,
//     inventory, env files) into its private data directory through an
//     [artifact.Writer].
//   - [Config.Prepare] resolves directories and the job ident, loads
//     env files from the private data directory and assembles the
//     process environment.
//   - [Config.WrapCommand] wraps the command with ssh-agent when a key
//     is configured and with a container engine invocation when process
//     isolation is enabled.
//
// [LoadFile] reads a job description from YAML, or from JSON with
// comments when the file extension is .json or .jsonc.
package job
