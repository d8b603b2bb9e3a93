// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for jobcontainer.
//
// Configuration is loaded from a single file specified by either the
// JOBCONTAINER_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no automatic file search. Without a
// file the CLI uses [Default].
//
// The file supplies defaults for jobs: a private data root and the
// container engine, image, options, volume mounts, workdir and
// execution mode. [Config.ApplyTo] fills the fields a job description
// leaves unset; a job's own values always win.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
package config
