// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// Fixed paths inside the job image.
const (
	DefaultWorkdir      = "/runner/project"
	ContainerRoot       = "/runner"
	ContainerArtifacts  = "/runner/artifacts"
	privateDataLabel    = "Z"
	envFileName         = "env.list"
	containerNamePrefix = "jobcontainer_"
)

// ExecutionMode says what kind of command is being wrapped, which
// decides how much mounting the builder does on its own.
type ExecutionMode int

const (
	// ModeNone: the caller manages mounts itself; only the private data
	// directory is mounted.
	ModeNone ExecutionMode = iota
	// ModeAnsibleCommands: automation commands whose file arguments are
	// inferred and mounted.
	ModeAnsibleCommands
	// ModeGenericCommands: arbitrary commands; automounts apply but no
	// argument inference.
	ModeGenericCommands
)

// ParseExecutionMode maps "none", "ansible" and "generic" to a mode.
func ParseExecutionMode(name string) (ExecutionMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "":
		return ModeNone, nil
	case "ansible", "ansible-commands":
		return ModeAnsibleCommands, nil
	case "generic", "generic-commands":
		return ModeGenericCommands, nil
	default:
		return 0, fmt.Errorf("unknown execution mode %q (must be none, ansible or generic)", name)
	}
}

func (m ExecutionMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeAnsibleCommands:
		return "ansible"
	case ModeGenericCommands:
		return "generic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Options holds everything needed to build one container invocation.
type Options struct {
	// Engine selects docker or podman.
	Engine Engine

	// Image is the container image reference (required).
	Image string

	// Ident is the job identifier; it names the auth directory and,
	// when ContainerName is empty, the container.
	Ident string

	// ContainerName defaults to "jobcontainer_" plus the sanitized ident.
	ContainerName string

	// PrivateDataDir is mounted at /runner (required).
	PrivateDataDir string

	// ArtifactDir holds env.list. Defaults to
	// <PrivateDataDir>/artifacts/<Ident>.
	ArtifactDir string

	// HostCwd is mounted and used as workdir when it exists and no
	// ContainerWorkdir is set.
	HostCwd string

	// ContainerWorkdir overrides the working directory inside the
	// container. Relative mount destinations resolve against it.
	ContainerWorkdir string

	// Mode controls argument inference and automounts.
	Mode ExecutionMode

	// Command is the command being wrapped, before containerization.
	Command []string

	// CmdlineArgs are the user-supplied arguments of Command, scanned for
	// file paths in ModeAnsibleCommands.
	CmdlineArgs []string

	// Interactive is set when the command is driven through a pseudo
	// terminal. Together with InputStream it decides --tty.
	Interactive bool
	InputStream bool

	// Auth, when set with a Host, produces a registry credential directory.
	Auth *RegistryAuth

	// VolumeMounts are explicit "source:dest[:label]" mounts.
	VolumeMounts []string

	// ContainerOptions are passed to the engine verbatim before the image.
	ContainerOptions []string

	// Environ is the host environment snapshot used for automounts and
	// path expansion. Nil reads os.Environ.
	Environ map[string]string

	// UID is the user docker runs the container as. Nil uses os.Getuid.
	UID *int

	// Cleanup receives the auth directory. Required when Auth is set.
	Cleanup *CleanupRegistry

	// Logger for builder operations. Nil uses slog.Default.
	Logger *slog.Logger
}

// Invocation is a built container command line and its side outputs.
type Invocation struct {
	// Args is the full argument vector, engine binary first.
	Args []string

	// Workdir is the working directory inside the container.
	Workdir string

	// RegistryAuthPath is the credential path given to the engine, or
	// empty without registry auth.
	RegistryAuthPath string

	// Env holds variables the wrapped process environment must carry:
	// the insecure-registries configuration path under both names used
	// by older and newer container tooling.
	Env map[string]string
}

// Builder builds container engine command lines. A Builder may be
// reused; each Build starts from an empty argument list.
type Builder struct {
	options Options
	logger  *slog.Logger
	environ map[string]string

	args   []string
	mounts map[string]struct{}
}

// NewBuilder creates a builder for options.
func NewBuilder(options Options) *Builder {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	environ := options.Environ
	if environ == nil {
		environ = EnvironMap(os.Environ())
	}
	return &Builder{
		options: options,
		logger:  logger.With("component", "container", "engine", options.Engine.String()),
		environ: environ,
		mounts:  make(map[string]struct{}),
	}
}

// Build returns the engine invocation running command inside the
// configured image. Any configuration error aborts the whole build; no
// partial invocation is returned.
func (b *Builder) Build(command []string) (*Invocation, error) {
	opts := b.options
	if opts.Image == "" {
		return nil, fmt.Errorf("%w: container image is required for containerized execution", ErrConfiguration)
	}
	if opts.PrivateDataDir == "" {
		return nil, fmt.Errorf("%w: private data directory is required", ErrConfiguration)
	}

	b.args = []string{opts.Engine.Binary(), "run", "--rm"}
	b.mounts = make(map[string]struct{})

	if opts.Interactive || opts.InputStream {
		b.args = append(b.args, "--tty")
	}
	b.args = append(b.args, "--interactive")

	workdir, err := b.resolveWorkdir()
	if err != nil {
		return nil, err
	}
	b.args = append(b.args, "--workdir", workdir)

	artifactsDir := filepath.Join(opts.PrivateDataDir, "artifacts")
	if opts.Mode != ModeNone {
		if opts.Mode == ModeAnsibleCommands {
			for _, inferred := range InferPaths(opts.Command, opts.CmdlineArgs) {
				b.logger.Debug("mounting inferred path", "kind", inferred.Kind.String(), "path", inferred.Path)
				if _, err := b.Mount(inferred.Path, "", ""); err != nil {
					return nil, err
				}
			}
		}

		if err := b.addAutomounts(); err != nil {
			return nil, err
		}

		b.args = append(b.args, opts.Engine.NamespaceArguments()...)

		if err := EnsureMountable(opts.PrivateDataDir); err != nil {
			return nil, err
		}
		for _, subdirectory := range []string{"project", "artifacts"} {
			if err := ensureDirectory(filepath.Join(opts.PrivateDataDir, subdirectory)); err != nil {
				return nil, err
			}
		}
		if _, err := b.Mount(artifactsDir, ContainerArtifacts, privateDataLabel); err != nil {
			return nil, err
		}
	} else if err := ensureDirectory(artifactsDir); err != nil {
		return nil, err
	}

	if _, err := b.Mount(opts.PrivateDataDir, ContainerRoot, privateDataLabel); err != nil {
		return nil, err
	}

	invocation := &Invocation{Workdir: workdir, Env: make(map[string]string)}

	// Auth without a host is treated as absent.
	if opts.Auth != nil && opts.Auth.Host != "" {
		if opts.Cleanup == nil {
			return nil, errors.New("registry auth requires a cleanup registry")
		}
		authDir, err := NewAuthDir(opts.Engine, opts.Ident, *opts.Auth, opts.Cleanup)
		if err != nil {
			return nil, err
		}
		invocation.RegistryAuthPath = authDir.CredentialPath
		authArgument := opts.Engine.AuthArgument(authDir.CredentialPath)
		if opts.Engine.AuthArgumentIsGlobal() {
			b.args = slices.Insert(b.args, 1, authArgument)
		} else {
			b.args = append(b.args, authArgument)
		}
		if authDir.RegistriesConf != "" {
			invocation.Env["CONTAINERS_REGISTRIES_CONF"] = authDir.RegistriesConf
			invocation.Env["REGISTRIES_CONFIG_PATH"] = authDir.RegistriesConf
		}
	}

	for _, spec := range opts.VolumeMounts {
		volume, err := ParseVolumeSpec(spec)
		if err != nil {
			return nil, err
		}
		if err := EnsureMountable(volume.Source); err != nil {
			return nil, err
		}
		if _, err := b.Mount(volume.Source, volume.Dest, volume.Label); err != nil {
			return nil, err
		}
	}

	artifactDir := opts.ArtifactDir
	if artifactDir == "" {
		artifactDir = filepath.Join(artifactsDir, opts.Ident)
	}
	b.args = append(b.args, "--env-file", filepath.Join(artifactDir, envFileName))

	uid := os.Getuid()
	if opts.UID != nil {
		uid = *opts.UID
	}
	b.args = append(b.args, opts.Engine.ExtraArguments(uid)...)

	name := opts.ContainerName
	if name == "" {
		name = ContainerName(opts.Ident)
	}
	b.args = append(b.args, "--name", name)

	b.args = append(b.args, opts.ContainerOptions...)
	b.args = append(b.args, opts.Image)
	b.args = append(b.args, command...)

	b.logger.Debug("container engine invocation", "command", strings.Join(b.args, " "))

	invocation.Args = append([]string(nil), b.args...)
	return invocation, nil
}

// resolveWorkdir picks the working directory inside the container: the
// explicit override, else the host cwd (mounted at the same path), else
// DefaultWorkdir.
func (b *Builder) resolveWorkdir() (string, error) {
	if b.options.ContainerWorkdir != "" {
		return b.options.ContainerWorkdir, nil
	}
	if cwd := b.options.HostCwd; cwd != "" {
		if _, err := os.Stat(cwd); err == nil {
			if err := EnsureMountable(cwd); err != nil {
				return "", err
			}
			if _, err := b.Mount(cwd, "", ""); err != nil {
				return "", err
			}
			return cwd, nil
		}
	}
	return DefaultWorkdir, nil
}

func ensureDirectory(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.Mkdir(path, 0o700); err != nil && !os.IsExist(err) {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}

var unsafeNameCharacters = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeName replaces characters container engines reject in names.
func SanitizeName(name string) string {
	return unsafeNameCharacters.ReplaceAllString(name, "_")
}

// ContainerName is the container name used for a job ident.
func ContainerName(ident string) string {
	return containerNamePrefix + SanitizeName(ident)
}

// EnvironMap converts KEY=VALUE pairs (os.Environ format) to a map.
func EnvironMap(environ []string) map[string]string {
	result := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		result[key] = value
	}
	return result
}
