// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import "strings"

// PathKind classifies a file path found on a wrapped command line.
type PathKind int

const (
	PathPlaybook PathKind = iota
	PathInventory
	PathVaultPasswordFile
	PathPrivateKeyFile
)

func (k PathKind) String() string {
	switch k {
	case PathPlaybook:
		return "playbook"
	case PathInventory:
		return "inventory"
	case PathVaultPasswordFile:
		return "vault-password-file"
	case PathPrivateKeyFile:
		return "private-key-file"
	default:
		return "unknown"
	}
}

// InferredPath is a command-line argument that names a host file the
// container needs to see.
type InferredPath struct {
	Kind PathKind
	Path string
}

// playbookCommand marks a wrapped command whose positional argument is a
// playbook file.
const playbookCommand = "ansible-playbook"

var pathFlags = map[string]PathKind{
	"-i":                    PathInventory,
	"--inventory":           PathInventory,
	"--inventory-file":      PathInventory,
	"--vault-password-file": PathVaultPasswordFile,
	"--vault-pass-file":     PathVaultPasswordFile,
	"--private-key":         PathPrivateKeyFile,
	"--key-file":            PathPrivateKeyFile,
}

// InferPaths returns the file paths in cmdlineArgs that must be mounted
// for the wrapped command to work inside a container. command is the
// full command being wrapped and is only consulted to decide whether a
// playbook argument is expected.
//
// Nothing is inferred when cmdlineArgs asks for help. A path flag
// without a value ends inference; paths found before it are kept and
// the malformed command line is left for the wrapped tool to reject.
// Inventory values ending in "," are inline host lists, not files.
func InferPaths(command, cmdlineArgs []string) []InferredPath {
	if len(cmdlineArgs) == 0 {
		return nil
	}
	for _, arg := range cmdlineArgs {
		if arg == "-h" || arg == "--help" {
			return nil
		}
	}

	var paths []InferredPath

	if wrapsPlaybook(command) {
		if playbook := playbookPath(cmdlineArgs); playbook != "" {
			paths = append(paths, InferredPath{Kind: PathPlaybook, Path: playbook})
		}
	}

	for index := 0; index < len(cmdlineArgs); index++ {
		kind, ok := pathFlags[cmdlineArgs[index]]
		if !ok {
			continue
		}
		if index+1 >= len(cmdlineArgs) {
			return paths
		}
		index++
		value := cmdlineArgs[index]
		if kind == PathInventory && strings.HasSuffix(value, ",") {
			continue
		}
		paths = append(paths, InferredPath{Kind: kind, Path: value})
	}

	return paths
}

func wrapsPlaybook(command []string) bool {
	for _, value := range command {
		if strings.Contains(value, playbookCommand) {
			return true
		}
	}
	return false
}

// positionalArgs strips recognized path flags and their values. ok is
// false when a path flag has no value.
func positionalArgs(cmdlineArgs []string) (remaining []string, ok bool) {
	for index := 0; index < len(cmdlineArgs); index++ {
		if _, isPathFlag := pathFlags[cmdlineArgs[index]]; !isPathFlag {
			remaining = append(remaining, cmdlineArgs[index])
			continue
		}
		if index+1 >= len(cmdlineArgs) {
			return nil, false
		}
		index++
	}
	return remaining, true
}

func isFlag(arg string) bool {
	return strings.HasPrefix(arg, "-")
}

// playbookPath guesses which argument is the playbook. A lone remaining
// argument is the playbook, as is a leading non-flag argument.
// Otherwise the first non-flag argument whose predecessor is also a
// non-flag wins, so in "-e x site.yml" the playbook is site.yml while
// "-v site.yml" yields nothing (site.yml reads as the value of -v).
// This is best effort; unknown flags taking values can fool it.
func playbookPath(cmdlineArgs []string) string {
	remaining, ok := positionalArgs(cmdlineArgs)
	if !ok || len(remaining) == 0 {
		return ""
	}
	if len(remaining) == 1 {
		return remaining[0]
	}
	if !isFlag(remaining[0]) {
		return remaining[0]
	}
	for index := 1; index < len(remaining); index++ {
		if isFlag(remaining[index]) {
			continue
		}
		if !isFlag(remaining[index-1]) {
			return remaining[index]
		}
	}
	return ""
}
