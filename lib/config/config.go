// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/jobcontainer/container"
	"github.com/bureau-foundation/jobcontainer/lib/job"
)

// EnvironmentVariable names the config file when --config is not given.
const EnvironmentVariable = "JOBCONTAINER_CONFIG"

// Config holds tool-wide defaults applied to every job.
type Config struct {
	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Container configures containerized execution.
	Container ContainerConfig `yaml:"container"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// PrivateDataRoot is the private data directory used by jobs that
	// do not name one. Empty means each job gets a fresh temp directory.
	PrivateDataRoot string `yaml:"private_data_root"`
}

// ContainerConfig configures containerized execution.
type ContainerConfig struct {
	// Isolate runs jobs in a container unless the job says otherwise.
	// Default: false
	Isolate bool `yaml:"isolate"`

	// Engine is "podman" or "docker".
	// Default: podman
	Engine string `yaml:"engine"`

	// Image is the default job image.
	Image string `yaml:"image"`

	// Options are passed to the engine before any job options.
	Options []string `yaml:"options"`

	// VolumeMounts ("src:dst[:label]") are added to every job.
	VolumeMounts []string `yaml:"volume_mounts"`

	// Workdir overrides the container working directory.
	Workdir string `yaml:"workdir"`

	// Mode is the execution mode: none, ansible or generic.
	// Default: ansible
	Mode string `yaml:"mode"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Container: ContainerConfig{
			Engine: "podman",
			Mode:   "ansible",
		},
	}
}

// Load loads configuration from the JOBCONTAINER_CONFIG environment
// variable. It fails when the variable is unset; callers that accept
// running without a config file check the variable first.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your jobcontainer.yaml config file, or use --config flag", EnvironmentVariable)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Values not in
// the file keep their defaults. ${VAR} and ${VAR:-default} are expanded
// in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.PrivateDataRoot = expandVars(c.Paths.PrivateDataRoot, vars)
	c.Container.Workdir = expandVars(c.Container.Workdir, vars)
	for i, mount := range c.Container.VolumeMounts {
		c.Container.VolumeMounts[i] = expandVars(mount, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, err := container.ParseEngine(c.Container.Engine); err != nil {
		errs = append(errs, fmt.Errorf("container.engine: %w", err))
	}

	if _, err := container.ParseExecutionMode(c.Container.Mode); err != nil {
		errs = append(errs, fmt.Errorf("container.mode: %w", err))
	}

	if c.Container.Isolate && c.Container.Image == "" {
		errs = append(errs, errors.New("container.image is required when container.isolate is set"))
	}

	for _, mount := range c.Container.VolumeMounts {
		if _, err := container.ParseVolumeSpec(mount); err != nil {
			errs = append(errs, fmt.Errorf("container.volume_mounts: %w", err))
		}
	}

	if root := c.Paths.PrivateDataRoot; root != "" && !filepath.IsAbs(root) {
		errs = append(errs, fmt.Errorf("paths.private_data_root must be absolute: %s", root))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the private data root if one is configured.
func (c *Config) EnsurePaths() error {
	if c.Paths.PrivateDataRoot == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.PrivateDataRoot, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Paths.PrivateDataRoot, err)
	}
	return nil
}

// ExecutionMode returns the parsed default execution mode.
func (c *Config) ExecutionMode() (container.ExecutionMode, error) {
	return container.ParseExecutionMode(c.Container.Mode)
}

// ApplyTo fills the fields the job leaves unset. Configured container
// options and volume mounts come before the job's own.
func (c *Config) ApplyTo(j *job.Config) {
	if j.PrivateDataDir == "" {
		j.PrivateDataDir = c.Paths.PrivateDataRoot
	}
	if !j.ProcessIsolation {
		j.ProcessIsolation = c.Container.Isolate
	}
	if j.ProcessIsolationExecutable == "" {
		j.ProcessIsolationExecutable = c.Container.Engine
	}
	if j.ContainerImage == "" {
		j.ContainerImage = c.Container.Image
	}
	if j.ContainerWorkdir == "" {
		j.ContainerWorkdir = c.Container.Workdir
	}
	if len(c.Container.Options) > 0 {
		j.ContainerOptions = append(append([]string(nil), c.Container.Options...), j.ContainerOptions...)
	}
	if len(c.Container.VolumeMounts) > 0 {
		j.ContainerVolumeMounts = append(append([]string(nil), c.Container.VolumeMounts...), j.ContainerVolumeMounts...)
	}
}
