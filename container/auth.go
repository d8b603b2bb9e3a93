// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// authDirPrefix names registry auth temp directories. The job ident and
// a random suffix follow.
const authDirPrefix = "jobcontainer_registry_"

// RegistryAuth holds container registry credentials for pulling the
// job image.
type RegistryAuth struct {
	Host     string `yaml:"host" json:"host"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`

	// VerifySSL set to false marks the registry insecure. Unset means
	// verify.
	VerifySSL *bool `yaml:"verify_ssl,omitempty" json:"verify_ssl,omitempty"`
}

func (a RegistryAuth) insecure() bool {
	return a.VerifySSL != nil && !*a.VerifySSL
}

// AuthDir is a private temporary directory holding one registry
// credential file and, for insecure registries, a registries.conf.
type AuthDir struct {
	// Directory is the temp directory itself.
	Directory string

	// CredentialPath is what the engine is pointed at: the directory for
	// docker, the credential file for podman.
	CredentialPath string

	// RegistriesConf is the insecure-registry configuration path, or
	// empty when TLS verification is enabled.
	RegistriesConf string
}

type authEntry struct {
	Auth string `json:"auth"`
}

type authDocument struct {
	Auths map[string]authEntry `json:"auths"`
}

// NewAuthDir writes registry credentials for engine into a fresh
// temporary directory. The directory is registered with cleanup before
// anything is written into it, so a failure part way through still
// leaves nothing behind once the registry is drained.
func NewAuthDir(engine Engine, ident string, auth RegistryAuth, cleanup *CleanupRegistry) (*AuthDir, error) {
	if cleanup == nil {
		return nil, fmt.Errorf("cleanup registry is required")
	}

	token := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
	document, err := json.MarshalIndent(authDocument{
		Auths: map[string]authEntry{auth.Host: {Auth: token}},
	}, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding registry credentials: %w", err)
	}

	directory, err := os.MkdirTemp("", authDirPrefix+ident+"_")
	if err != nil {
		return nil, fmt.Errorf("creating registry auth directory: %w", err)
	}
	cleanup.Register(directory)

	credentialFile := filepath.Join(directory, engine.AuthFilename())
	if err := writePrivateFile(credentialFile, document); err != nil {
		return nil, err
	}

	result := &AuthDir{
		Directory:      directory,
		CredentialPath: engine.CredentialPath(directory, credentialFile),
	}

	if auth.insecure() {
		conf := strings.Join([]string{
			"[[registry]]",
			fmt.Sprintf("location = %q", auth.Host),
			"insecure = true",
		}, "\n")
		result.RegistriesConf = filepath.Join(directory, "registries.conf")
		if err := writePrivateFile(result.RegistriesConf, []byte(conf)); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// writePrivateFile creates path readable and writable by the owner only.
func writePrivateFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := file.Chmod(0o600); err != nil {
		file.Close()
		return fmt.Errorf("restricting %s: %w", path, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
