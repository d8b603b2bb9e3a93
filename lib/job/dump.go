// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/jobcontainer/lib/artifact"
)

// play is a synthesized single-role play. Field order is the order
// keys appear in main.json.
type play struct {
	Hosts       string `json:"hosts"`
	Roles       []role `json:"roles"`
	GatherFacts *bool  `json:"gather_facts,omitempty"`
}

type role struct {
	Name string         `json:"name"`
	Vars map[string]any `json:"vars,omitempty"`
}

// jsonEnvFiles are written JSON-encoded under env/; rawEnvFiles verbatim.
var (
	jsonEnvFiles = []string{"envvars", "extravars", "passwords", "settings"}
	rawEnvFiles  = []string{"ssh_key", "cmdline"}
)

// DumpArtifacts writes the inline inputs of config into its private
// data directory:
//
//   - a role job becomes a one-play playbook and sets ANSIBLE_ROLES_PATH;
//   - a playbook given as plays is written to project/main.json;
//   - an inventory mapping is written to inventory/hosts.json, and
//     inline inventory text to inventory/hosts;
//   - envvars, extravars, passwords, settings, ssh_key and cmdline are
//     written to env/<name> unless that file already exists or
//     SuppressEnvFiles is set.
//
// PlaybookPath and InventoryPath record the files used.
func DumpArtifacts(config *Config, writer *artifact.Writer) error {
	if err := config.resolveDirectories(); err != nil {
		return err
	}
	logger := config.logger()
	privateDataDir := config.PrivateDataDir

	if config.Role != "" {
		config.Playbook = config.rolePlaybook()
		if config.EnvVars == nil {
			config.EnvVars = make(map[string]string)
		}
		rolesPath := filepath.Join(privateDataDir, "roles")
		if config.RolesPath != "" {
			rolesPath = config.RolesPath + ":" + rolesPath
		}
		config.EnvVars["ANSIBLE_ROLES_PATH"] = rolesPath
	}

	if plays, ok := playList(config.Playbook); ok {
		content, err := artifact.MarshalJSON(plays)
		if err != nil {
			return fmt.Errorf("encoding playbook: %w", err)
		}
		path, err := writer.Write(content, filepath.Join(privateDataDir, "project"), "main.json")
		if err != nil {
			return err
		}
		config.PlaybookPath = path
		config.Playbook = path
	} else if path, ok := config.Playbook.(string); ok {
		config.PlaybookPath = path
	}

	if err := config.dumpInventory(writer); err != nil {
		return err
	}

	if config.SuppressEnvFiles {
		logger.Debug("env files suppressed")
		return nil
	}

	envDirectory := filepath.Join(privateDataDir, "env")
	for _, name := range jsonEnvFiles {
		value := config.envFileValue(name)
		if value == nil {
			continue
		}
		exists, err := fileExists(filepath.Join(envDirectory, name))
		if err != nil {
			return err
		}
		if exists {
			logger.Debug("env file exists, not overwriting", "name", name)
			continue
		}
		content, err := artifact.MarshalJSON(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if _, err := writer.Write(content, envDirectory, name); err != nil {
			return err
		}
	}

	for _, name := range rawEnvFiles {
		content := config.SSHKey
		if name == "cmdline" {
			content = config.Cmdline
		}
		if content == "" {
			continue
		}
		exists, err := fileExists(filepath.Join(envDirectory, name))
		if err != nil {
			return err
		}
		if exists {
			logger.Debug("env file exists, not overwriting", "name", name)
			continue
		}
		if _, err := writer.Write(content, envDirectory, name); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) rolePlaybook() []play {
	hosts := c.HostPattern
	if hosts == "" {
		hosts = "all"
	}
	entry := play{
		Hosts: hosts,
		Roles: []role{{Name: c.Role, Vars: c.RoleVars}},
	}
	if c.RoleSkipFacts {
		gatherFacts := false
		entry.GatherFacts = &gatherFacts
	}
	return []play{entry}
}

// playList normalizes a playbook value to a list of plays. A single
// play mapping is wrapped in a list; strings are paths, not plays.
func playList(playbook any) (any, bool) {
	switch value := playbook.(type) {
	case []play:
		return value, len(value) > 0
	case []any:
		return value, len(value) > 0
	case []map[string]any:
		return value, len(value) > 0
	case map[string]any:
		if len(value) == 0 {
			return nil, false
		}
		return []any{value}, true
	default:
		return nil, false
	}
}

// dumpInventory writes inline inventory content and resolves string
// inventories to the path the job should use.
func (c *Config) dumpInventory(writer *artifact.Writer) error {
	directory := filepath.Join(c.PrivateDataDir, "inventory")

	switch value := c.Inventory.(type) {
	case map[string]any:
		if len(value) == 0 {
			return nil
		}
		content, err := artifact.MarshalJSON(value)
		if err != nil {
			return fmt.Errorf("encoding inventory: %w", err)
		}
		path, err := writer.Write(content, directory, "hosts.json")
		if err != nil {
			return err
		}
		c.Inventory = path
		c.InventoryPath = path

	case string:
		if value == "" {
			return nil
		}
		candidate := value
		if !filepath.IsAbs(value) {
			candidate = filepath.Join(directory, value)
		}
		exists, err := fileExists(candidate)
		if err != nil {
			return err
		}
		switch {
		case !exists:
			path, err := writer.Write(value, directory, "hosts")
			if err != nil {
				return err
			}
			c.InventoryPath = path
		case filepath.IsAbs(value):
			c.InventoryPath = value
		default:
			c.InventoryPath = candidate
		}
		c.Inventory = c.InventoryPath
	}
	return nil
}

func (c *Config) envFileValue(name string) any {
	switch name {
	case "envvars":
		if len(c.EnvVars) > 0 {
			return c.EnvVars
		}
	case "extravars":
		if len(c.ExtraVars) > 0 {
			return c.ExtraVars
		}
	case "passwords":
		if len(c.Passwords) > 0 {
			return c.Passwords
		}
	case "settings":
		if len(c.Settings) > 0 {
			return c.Settings
		}
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", path, err)
}
