// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package container turns a job description into a docker or podman
// "run --rm" argument vector.
//
// The central type is [Builder], which owns the ordered argument
// sequence for one invocation together with the set of volume mounts
// already emitted. Every volume flag goes through [Builder.Mount], so
// the two mount invariants hold invocation-wide: no mount root is ever
// "/", "/home" or "/usr" ([EnsureMountable]), and the same formatted
// mount never appears twice.
//
// [InferPaths] scans the wrapped command line for file-valued arguments
// (playbook, inventory, vault password file, private key) that must be
// visible inside the container. Inference is best effort: a malformed
// command line stops it silently so the wrapped tool reports its own
// error.
//
// [Engine] is a closed variant over docker and podman carrying the
// flags where the two engines differ. [NewAuthDir] materializes a
// registry credential directory for the engine, registered with a
// [CleanupRegistry] that the caller drains at shutdown.
//
// [Validator] performs pre-flight checks (engine binary, image, mount
// roots) before a job is wrapped.
//
// The package never executes the command it builds.
package container
