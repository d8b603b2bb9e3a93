// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// ValidationResult holds the result of a validation check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not an error.
}

// Validator performs pre-flight validation before a job is wrapped for
// containerized execution.
type Validator struct {
	results []ValidationResult
	errors  int

	// lookPath resolves executables; replaced in tests.
	lookPath func(string) (string, error)
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		results:  make([]ValidationResult, 0),
		lookPath: exec.LookPath,
	}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message})
}

func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message, Warning: true})
}

func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: false, Message: message})
	v.errors++
}

// ValidateAll runs every check for options.
func (v *Validator) ValidateAll(options Options) {
	v.ValidateEngine(options.Engine)
	v.ValidateImage(options.Image)
	v.ValidatePrivateDataDir(options.PrivateDataDir)
	v.ValidateHostCwd(options.HostCwd, options.ContainerWorkdir)
	v.ValidateVolumeMounts(options.VolumeMounts)
}

// ValidateEngine checks that the engine binary is on PATH.
func (v *Validator) ValidateEngine(engine Engine) {
	path, err := v.lookPath(engine.Binary())
	if err != nil {
		v.fail("engine", fmt.Sprintf("%s not found in PATH", engine.Binary()))
		return
	}
	v.pass("engine", fmt.Sprintf("available: %s", path))
}

// ValidateImage checks that an image is configured.
func (v *Validator) ValidateImage(image string) {
	if image == "" {
		v.fail("image", "container image is required for containerized execution")
		return
	}
	v.pass("image", image)
}

// ValidatePrivateDataDir checks that the private data directory exists
// and may be mounted.
func (v *Validator) ValidatePrivateDataDir(path string) {
	if path == "" {
		v.fail("private_data_dir", "private data directory is required")
		return
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		v.fail("private_data_dir", fmt.Sprintf("cannot resolve path: %v", err))
		return
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			v.warn("private_data_dir", fmt.Sprintf("does not exist yet: %s (created on prepare)", absPath))
		} else {
			v.fail("private_data_dir", fmt.Sprintf("cannot access: %v", err))
		}
		return
	}
	if !info.IsDir() {
		v.fail("private_data_dir", fmt.Sprintf("not a directory: %s", absPath))
		return
	}
	if err := EnsureMountable(absPath); err != nil {
		v.fail("private_data_dir", err.Error())
		return
	}

	v.pass("private_data_dir", fmt.Sprintf("exists: %s", absPath))
}

// ValidateHostCwd checks the host working directory that would be
// mounted as the container workdir.
func (v *Validator) ValidateHostCwd(hostCwd, containerWorkdir string) {
	if containerWorkdir != "" {
		v.pass("workdir", fmt.Sprintf("container workdir override: %s", containerWorkdir))
		return
	}
	if hostCwd == "" {
		v.pass("workdir", fmt.Sprintf("default: %s", DefaultWorkdir))
		return
	}
	if _, err := os.Stat(hostCwd); err != nil {
		v.warn("workdir", fmt.Sprintf("host cwd not found: %s (using %s)", hostCwd, DefaultWorkdir))
		return
	}
	if err := EnsureMountable(hostCwd); err != nil {
		v.fail("workdir", err.Error())
		return
	}
	v.pass("workdir", fmt.Sprintf("host cwd mounted: %s", hostCwd))
}

// ValidateVolumeMounts checks each explicit volume mount string.
func (v *Validator) ValidateVolumeMounts(mounts []string) {
	for _, spec := range mounts {
		volume, err := ParseVolumeSpec(spec)
		if err != nil {
			v.fail("volume", err.Error())
			continue
		}
		if _, err := os.Stat(volume.Source); err != nil {
			v.warn("volume", fmt.Sprintf("source not found, mount will be skipped: %s", volume.Source))
			continue
		}
		if err := EnsureMountable(volume.Source); err != nil {
			v.fail("volume", err.Error())
			continue
		}
		v.pass("volume", spec)
	}
}

// ValidateSSHKey checks that key, when set, is a private key ssh-agent
// can load. A passphrase-protected key only warns: ssh-add prompts for
// the passphrase when the job starts.
func (v *Validator) ValidateSSHKey(key string) {
	if key == "" {
		return
	}
	signer, err := ssh.ParsePrivateKey([]byte(key))
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			v.warn("ssh_key", "key is passphrase protected; ssh-add will prompt for it")
			return
		}
		v.fail("ssh_key", fmt.Sprintf("cannot parse private key: %v", err))
		return
	}
	v.pass("ssh_key", signer.PublicKey().Type())
}

// PrintResults writes validation results to a writer.
func (v *Validator) PrintResults(w io.Writer) {
	for _, r := range v.results {
		var prefix string
		if r.Passed {
			if r.Warning {
				prefix = "⚠"
			} else {
				prefix = "✓"
			}
		} else {
			prefix = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Ready to run job container")
	}
}
