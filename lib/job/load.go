// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a job description. Files ending in .json or .jsonc are
// JSON with comments and trailing commas allowed; anything else is YAML.
// Unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Plain JSON is valid YAML, so one decoder serves both.
		data = jsonc.ToJSON(data)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing job file %s: %w", path, err)
	}
	return config, nil
}

// Parse decodes a YAML (or JSON) job description.
func Parse(data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	config := &Config{}
	if err := decoder.Decode(config); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("job description is empty")
		}
		return nil, err
	}
	return config, nil
}
