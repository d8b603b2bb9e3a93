// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/jobcontainer/container"
)

// Runner modes select how the command is driven.
const (
	RunnerModePexpect    = "pexpect"
	RunnerModeSubprocess = "subprocess"
)

// privateDataPrefix names auto-created private data directories.
const privateDataPrefix = "jobcontainer_"

// Config is one job. Fields with yaml tags come from the job
// description; the remaining exported fields are produced by
// DumpArtifacts, Prepare and WrapCommand.
type Config struct {
	PrivateDataDir string `yaml:"private_data_dir"`
	HostCwd        string `yaml:"host_cwd"`

	// ArtifactDir is the artifact root on input. Prepare replaces it
	// with the per-job directory <root>/<ident>.
	ArtifactDir string `yaml:"artifact_dir"`
	Ident       string `yaml:"ident"`

	ProcessIsolation           bool                    `yaml:"process_isolation"`
	ProcessIsolationExecutable string                  `yaml:"process_isolation_executable"`
	ContainerImage             string                  `yaml:"container_image"`
	ContainerVolumeMounts      []string                `yaml:"container_volume_mounts"`
	ContainerWorkdir           string                  `yaml:"container_workdir"`
	ContainerAuthData          *container.RegistryAuth `yaml:"container_auth_data"`
	ContainerOptions           []string                `yaml:"container_options"`

	// Command is the argument vector to launch.
	Command []string `yaml:"command"`

	// RunnerMode is "pexpect" (the default) or "subprocess".
	RunnerMode  string `yaml:"runner_mode"`
	InputStream bool   `yaml:"input_stream"`

	// Playbook is a play list, a single play mapping, or a path.
	Playbook any `yaml:"playbook"`
	// Inventory is a mapping, inline inventory text, or a path.
	Inventory any `yaml:"inventory"`

	Role          string         `yaml:"role"`
	RoleVars      map[string]any `yaml:"role_vars"`
	RolesPath     string         `yaml:"roles_path"`
	HostPattern   string         `yaml:"host_pattern"`
	RoleSkipFacts bool           `yaml:"role_skip_facts"`

	EnvVars          map[string]string `yaml:"envvars"`
	ExtraVars        map[string]any    `yaml:"extravars"`
	Passwords        map[string]string `yaml:"passwords"`
	Settings         map[string]any    `yaml:"settings"`
	SSHKey           string            `yaml:"ssh_key"`
	Cmdline          string            `yaml:"cmdline"`
	SuppressEnvFiles bool              `yaml:"suppress_env_files"`

	// Engine is parsed from ProcessIsolationExecutable by Prepare.
	Engine container.Engine `yaml:"-"`
	// ContainerName is set by Prepare for containerized jobs.
	ContainerName string `yaml:"-"`
	// RegistryAuthPath is set by WrapCommand when registry auth is used.
	RegistryAuthPath string `yaml:"-"`
	// Env is the environment of the launched process.
	Env map[string]string `yaml:"-"`
	// Cwd is the host directory the command is launched from.
	Cwd string `yaml:"-"`
	// SSHKeyPath is the host fifo path the ssh key is served on.
	SSHKeyPath string `yaml:"-"`
	// PlaybookPath and InventoryPath are the files DumpArtifacts wrote.
	PlaybookPath  string `yaml:"-"`
	InventoryPath string `yaml:"-"`

	// Environ is the host environment snapshot. Nil reads os.Environ.
	Environ map[string]string `yaml:"-"`
	// Logger for job operations. Nil uses slog.Default.
	Logger *slog.Logger `yaml:"-"`

	artifactRoot string
	resolved     bool
}

// Containerized reports whether the job runs inside a container engine.
func (c *Config) Containerized() bool {
	return c.ProcessIsolation
}

func (c *Config) logger() *slog.Logger {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", "job", "ident", c.Ident)
}

func (c *Config) environ() map[string]string {
	if c.Environ == nil {
		c.Environ = container.EnvironMap(os.Environ())
	}
	return c.Environ
}

// resolveDirectories makes the private data directory absolute and
// creates it, assigns an ident, and creates the per-job artifact
// directory. Later calls are no-ops.
func (c *Config) resolveDirectories() error {
	if c.resolved {
		return nil
	}

	if c.PrivateDataDir != "" {
		absolute, err := filepath.Abs(c.PrivateDataDir)
		if err != nil {
			return fmt.Errorf("resolving private data directory: %w", err)
		}
		if err := os.MkdirAll(absolute, 0o700); err != nil {
			return fmt.Errorf("creating private data directory: %w", err)
		}
		c.PrivateDataDir = absolute
	} else {
		directory, err := os.MkdirTemp("", privateDataPrefix)
		if err != nil {
			return fmt.Errorf("creating private data directory: %w", err)
		}
		c.PrivateDataDir = directory
	}

	if c.ArtifactDir == "" {
		c.artifactRoot = filepath.Join(c.PrivateDataDir, "artifacts")
	} else {
		absolute, err := filepath.Abs(c.ArtifactDir)
		if err != nil {
			return fmt.Errorf("resolving artifact directory: %w", err)
		}
		c.artifactRoot = absolute
	}

	if c.Ident == "" {
		c.Ident = uuid.NewString()
	}
	c.ArtifactDir = filepath.Join(c.artifactRoot, c.Ident)
	if err := os.MkdirAll(c.ArtifactDir, 0o700); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	if c.HostCwd != "" {
		absolute, err := filepath.Abs(c.HostCwd)
		if err != nil {
			return fmt.Errorf("resolving host cwd: %w", err)
		}
		c.HostCwd = absolute
		c.Cwd = absolute
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("reading working directory: %w", err)
		}
		c.Cwd = cwd
	}

	c.resolved = true
	return nil
}

// Prepare resolves directories, merges env files from the private data
// directory and builds Env. A containerized job without an image is a
// configuration error.
func (c *Config) Prepare() error {
	if err := c.resolveDirectories(); err != nil {
		return err
	}
	logger := c.logger()

	switch c.RunnerMode {
	case "":
		c.RunnerMode = RunnerModePexpect
	case RunnerModePexpect, RunnerModeSubprocess:
	default:
		return fmt.Errorf("%w: unknown runner mode %q (must be %s or %s)",
			container.ErrConfiguration, c.RunnerMode, RunnerModePexpect, RunnerModeSubprocess)
	}

	if err := c.loadSettingsFile(); err != nil {
		return err
	}

	engine, err := container.ParseEngine(c.ProcessIsolationExecutable)
	if err != nil {
		return err
	}
	c.Engine = engine

	if c.Containerized() {
		if c.ContainerImage == "" {
			return fmt.Errorf("%w: container_image required when process_isolation_executable=%s",
				container.ErrConfiguration, engine)
		}
		c.ContainerName = container.ContainerName(c.Ident)
		c.Env = make(map[string]string)
		if engine == container.Podman {
			// Overlay storage under podman cannot always set extended
			// attributes; this lets modules fall back to unsafe writes.
			c.Env["ANSIBLE_UNSAFE_WRITES"] = "1"
		}
		c.Env["AWX_ISOLATED_DATA_DIR"] = filepath.Join(container.ContainerArtifacts, c.Ident)
	} else {
		c.Env = make(map[string]string, len(c.environ()))
		for key, value := range c.environ() {
			c.Env[key] = value
		}
	}

	for key, value := range c.EnvVars {
		c.Env[key] = value
	}
	fileEnv, err := c.loadEnvVarsFile()
	if err != nil {
		return err
	}
	for key, value := range fileEnv {
		c.Env[key] = value
	}

	if c.SSHKey == "" {
		key, err := c.SSHKeyData()
		if err != nil {
			return err
		}
		c.SSHKey = key
	}
	if c.SSHKey != "" {
		c.SSHKeyPath = filepath.Join(c.ArtifactDir, "ssh_key_data")
	}

	c.Env["ANSIBLE_RETRY_FILES_ENABLED"] = "False"
	if _, ok := c.Env["ANSIBLE_HOST_KEY_CHECKING"]; !ok {
		c.Env["ANSIBLE_HOST_KEY_CHECKING"] = "False"
	}
	if !c.Containerized() {
		c.Env["AWX_ISOLATED_DATA_DIR"] = c.ArtifactDir
	}

	logger.Debug("job prepared",
		"private_data_dir", c.PrivateDataDir,
		"artifact_dir", c.ArtifactDir,
		"containerized", c.Containerized(),
		"engine", c.Engine.String(),
	)
	return nil
}

// readEnvFile returns the contents of <private>/env/<name>, or "" when
// the file does not exist.
// SSHKeyData returns the private key the job will serve: the ssh_key
// field, or env/ssh_key when the field is empty. Empty means no key.
func (c *Config) SSHKeyData() (string, error) {
	if c.SSHKey != "" {
		return c.SSHKey, nil
	}
	return c.readEnvFile("ssh_key")
}

func (c *Config) readEnvFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(c.PrivateDataDir, "env", name))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading env/%s: %w", name, err)
	}
	return string(data), nil
}

// settingsFile holds the keys of env/settings that override job fields.
type settingsFile struct {
	ProcessIsolation           *bool                   `yaml:"process_isolation"`
	ProcessIsolationExecutable string                  `yaml:"process_isolation_executable"`
	ContainerImage             string                  `yaml:"container_image"`
	ContainerVolumeMounts      []string                `yaml:"container_volume_mounts"`
	ContainerOptions           []string                `yaml:"container_options"`
	ContainerAuthData          *container.RegistryAuth `yaml:"container_auth_data"`
}

// loadSettingsFile merges env/settings (JSON or YAML) into Settings and
// applies its container keys to the job.
func (c *Config) loadSettingsFile() error {
	content, err := c.readEnvFile("settings")
	if err != nil || strings.TrimSpace(content) == "" {
		return err
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return fmt.Errorf("%w: parsing env/settings: %v", container.ErrConfiguration, err)
	}
	if c.Settings == nil {
		c.Settings = make(map[string]any, len(raw))
	}
	for key, value := range raw {
		c.Settings[key] = value
	}

	var settings settingsFile
	if err := yaml.Unmarshal([]byte(content), &settings); err != nil {
		return fmt.Errorf("%w: parsing env/settings: %v", container.ErrConfiguration, err)
	}
	if settings.ProcessIsolation != nil {
		c.ProcessIsolation = *settings.ProcessIsolation
	}
	if settings.ProcessIsolationExecutable != "" {
		c.ProcessIsolationExecutable = settings.ProcessIsolationExecutable
	}
	if settings.ContainerImage != "" {
		c.ContainerImage = settings.ContainerImage
	}
	if settings.ContainerVolumeMounts != nil {
		c.ContainerVolumeMounts = settings.ContainerVolumeMounts
	}
	if settings.ContainerOptions != nil {
		c.ContainerOptions = settings.ContainerOptions
	}
	if settings.ContainerAuthData != nil {
		c.ContainerAuthData = settings.ContainerAuthData
	}
	return nil
}

// loadEnvVarsFile parses env/envvars (JSON or YAML) as a string map.
func (c *Config) loadEnvVarsFile() (map[string]string, error) {
	content, err := c.readEnvFile("envvars")
	if err != nil || strings.TrimSpace(content) == "" {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing env/envvars: %v", container.ErrConfiguration, err)
	}
	env := make(map[string]string, len(raw))
	for key, value := range raw {
		env[key] = fmt.Sprint(value)
	}
	return env, nil
}
