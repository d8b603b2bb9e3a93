// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/jobcontainer/container"
	"github.com/bureau-foundation/jobcontainer/lib/artifact"
	"github.com/bureau-foundation/jobcontainer/lib/config"
	"github.com/bureau-foundation/jobcontainer/lib/job"
)

// jobParams are the flags shared by every command that loads a job.
type jobParams struct {
	Config         string `flag:"config" desc:"tool config file (default: $JOBCONTAINER_CONFIG)"`
	Job            string `flag:"job,j" desc:"job description file (YAML, or JSON with comments)"`
	PrivateDataDir string `flag:"private-data-dir" desc:"override the job's private data directory"`
}

// wrapParams add the flags of commands that build a command line.
type wrapParams struct {
	jobParams
	Mode     string `flag:"mode" desc:"execution mode: none, ansible or generic (default from config)"`
	KeepAuth bool   `flag:"keep-auth" desc:"keep the registry auth directory after exit"`
}

// loadConfig returns the tool config from --config, then
// $JOBCONTAINER_CONFIG, then the defaults.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadJob reads the job description and applies the tool defaults.
func loadJob(params jobParams, logger *slog.Logger) (*job.Config, *config.Config, error) {
	if params.Job == "" {
		return nil, nil, errors.New("--job is required")
	}
	cfg, err := loadConfig(params.Config)
	if err != nil {
		return nil, nil, err
	}
	description, err := job.LoadFile(params.Job)
	if err != nil {
		return nil, nil, err
	}
	if params.PrivateDataDir != "" {
		description.PrivateDataDir = params.PrivateDataDir
	}
	cfg.ApplyTo(description)
	description.Logger = logger
	return description, cfg, nil
}

// prepareJob dumps the job's artifacts into the private data directory
// and then resolves the runtime fields. Artifacts come first so Prepare
// sees the env files they produce.
func prepareJob(description *job.Config, logger *slog.Logger) (*artifact.Writer, error) {
	writer := artifact.NewWriter(logger)
	if err := job.DumpArtifacts(description, writer); err != nil {
		return nil, fmt.Errorf("writing job artifacts: %w", err)
	}
	if err := description.Prepare(); err != nil {
		return nil, err
	}
	return writer, nil
}

// wrapJob prepares the job and replaces its command with the wrapped
// command line. args, when given, replace the job's own command.
func wrapJob(params wrapParams, args []string, cleanup *container.CleanupRegistry, logger *slog.Logger) (*job.Config, *artifact.Writer, error) {
	description, cfg, err := loadJob(params.jobParams, logger)
	if err != nil {
		return nil, nil, err
	}
	if len(args) > 0 {
		description.Command = args
	}
	if len(description.Command) == 0 {
		return nil, nil, errors.New("no command: pass one after -- or set command in the job description")
	}
	if description.RunnerMode == "" {
		description.RunnerMode = defaultRunnerMode()
	}

	mode, err := cfg.ExecutionMode()
	if params.Mode != "" {
		mode, err = container.ParseExecutionMode(params.Mode)
	}
	if err != nil {
		return nil, nil, err
	}

	writer, err := prepareJob(description, logger)
	if err != nil {
		return nil, nil, err
	}
	cmdlineArgs := description.Command[1:]
	if err := description.WrapCommand(mode, cmdlineArgs, cleanup); err != nil {
		return nil, nil, err
	}
	if description.Containerized() {
		if _, err := description.WriteEnvList(writer); err != nil {
			return nil, nil, fmt.Errorf("writing env list: %w", err)
		}
	}
	return description, writer, nil
}

// defaultRunnerMode drives the command through a terminal when stdin is
// one.
func defaultRunnerMode() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return job.RunnerModePexpect
	}
	return job.RunnerModeSubprocess
}
