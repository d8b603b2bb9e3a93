// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// jobcontainer prepares automation jobs and runs them, optionally inside
// a podman or docker container.
//
// Usage:
//
//	jobcontainer prepare  --job FILE           lay out the private data directory
//	jobcontainer command  --job FILE [-- ARGS] print the wrapped command line
//	jobcontainer run      --job FILE [-- ARGS] prepare, wrap and run the command
//	jobcontainer validate --job FILE           pre-flight checks
//	jobcontainer version
//
// Tool-wide defaults (private data root, engine, image, options, volume
// mounts) are read from the YAML file named by --config or
// $JOBCONTAINER_CONFIG. Set JOBCONTAINER_DEBUG for debug logging.
package main
