// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func assertArgs(t *testing.T, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("args mismatch\n got: %q\nwant: %q", got, want)
	}
}

// hasPair reports whether flag is immediately followed by value.
func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func intPointer(value int) *int { return &value }

func TestBuildMinimalPodman(t *testing.T) {
	t.Parallel()

	privateDataDir := t.TempDir()
	builder := newTestBuilder(t, Options{
		Engine:         Podman,
		Image:          "quay.io/example/runner:latest",
		Ident:          "job1",
		PrivateDataDir: privateDataDir,
	})

	invocation, err := builder.Build([]string{"ansible-playbook", "site.yml"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	assertArgs(t, invocation.Args, []string{
		"podman", "run", "--rm", "--interactive",
		"--workdir", DefaultWorkdir,
		"-v", privateDataDir + "/:/runner/:Z",
		"--env-file", filepath.Join(privateDataDir, "artifacts", "job1", "env.list"),
		"--quiet",
		"--name", "jobcontainer_job1",
		"quay.io/example/runner:latest",
		"ansible-playbook", "site.yml",
	})
	if invocation.Workdir != DefaultWorkdir {
		t.Errorf("Workdir = %q, want %q", invocation.Workdir, DefaultWorkdir)
	}
	if invocation.RegistryAuthPath != "" {
		t.Errorf("RegistryAuthPath = %q, want empty", invocation.RegistryAuthPath)
	}
	if info, err := os.Stat(filepath.Join(privateDataDir, "artifacts")); err != nil || !info.IsDir() {
		t.Errorf("artifacts directory not created: %v", err)
	}
}

func TestBuildDockerUserAndTTY(t *testing.T) {
	t.Parallel()

	privateDataDir := t.TempDir()
	builder := newTestBuilder(t, Options{
		Engine:           Docker,
		Image:            "runner",
		Ident:            "weird ident/1",
		PrivateDataDir:   privateDataDir,
		ArtifactDir:      filepath.Join(privateDataDir, "custom"),
		InputStream:      true,
		UID:              intPointer(1234),
		ContainerOptions: []string{"--network=host"},
	})

	invocation, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	args := invocation.Args

	if args[0] != "docker" || args[1] != "run" {
		t.Fatalf("args start = %q, want docker run", args[:2])
	}
	if !slices.Contains(args, "--tty") {
		t.Error("--tty missing with an input stream")
	}
	if !slices.Contains(args, "--user=1234") {
		t.Errorf("--user=1234 missing: %q", args)
	}
	if slices.Contains(args, "--quiet") || slices.Contains(args, "--ipc=host") {
		t.Errorf("podman-only flags present for docker: %q", args)
	}
	if !hasPair(args, "--name", "jobcontainer_weird_ident_1") {
		t.Errorf("sanitized name missing: %q", args)
	}
	if !hasPair(args, "--env-file", filepath.Join(privateDataDir, "custom", "env.list")) {
		t.Errorf("custom artifact env file missing: %q", args)
	}
	tail := args[len(args)-3:]
	assertArgs(t, tail, []string{"--network=host", "runner", "true"})
}

func TestBuildRequiresImageAndPrivateDataDir(t *testing.T) {
	t.Parallel()

	if _, err := newTestBuilder(t, Options{PrivateDataDir: t.TempDir()}).Build([]string{"true"}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing image: error = %v, want ErrConfiguration", err)
	}
	if _, err := newTestBuilder(t, Options{Image: "runner"}).Build([]string{"true"}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("missing private data dir: error = %v, want ErrConfiguration", err)
	}
}

func TestBuildHostCwdBecomesWorkdir(t *testing.T) {
	t.Parallel()

	privateDataDir := t.TempDir()
	hostCwd := t.TempDir()
	builder := newTestBuilder(t, Options{
		Image:          "runner",
		Ident:          "job",
		PrivateDataDir: privateDataDir,
		HostCwd:        hostCwd,
	})

	invocation, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if invocation.Workdir != hostCwd {
		t.Errorf("Workdir = %q, want %q", invocation.Workdir, hostCwd)
	}
	if !hasPair(invocation.Args, "--workdir", hostCwd) {
		t.Errorf("--workdir %s missing: %q", hostCwd, invocation.Args)
	}
	if !hasPair(invocation.Args, "-v", hostCwd+"/:"+hostCwd+"/") {
		t.Errorf("host cwd mount missing: %q", invocation.Args)
	}
}

func TestBuildContainerWorkdirOverride(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t, Options{
		Image:            "runner",
		Ident:            "job",
		PrivateDataDir:   t.TempDir(),
		HostCwd:          t.TempDir(),
		ContainerWorkdir: "/work",
	})

	invocation, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !hasPair(invocation.Args, "--workdir", "/work") {
		t.Errorf("--workdir /work missing: %q", invocation.Args)
	}
	if count := countVolumeFlags(invocation.Args); count != 1 {
		t.Errorf("got %d mounts, want only the private data dir: %q", count, invocation.Args)
	}
}

func TestBuildAnsibleModeMountsInferredPaths(t *testing.T) {
	t.Parallel()

	privateDataDir := t.TempDir()
	playbookDir := t.TempDir()
	inventoryDir := t.TempDir()
	playbook := filepath.Join(playbookDir, "site.yml")
	inventory := filepath.Join(inventoryDir, "inv.yml")
	for _, path := range []string{playbook, inventory} {
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	command := []string{"ansible-playbook", "-i", inventory, "-i", "localhost,", playbook}
	builder := newTestBuilder(t, Options{
		Engine:         Podman,
		Image:          "runner",
		Ident:          "job",
		PrivateDataDir: privateDataDir,
		Mode:           ModeAnsibleCommands,
		Command:        command,
		CmdlineArgs:    command[1:],
	})

	invocation, err := builder.Build(command)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	args := invocation.Args

	for _, volume := range []string{
		playbookDir + "/:" + playbookDir + "/",
		inventoryDir + "/:" + inventoryDir + "/",
		privateDataDir + "/artifacts/:/runner/artifacts/:Z",
		privateDataDir + "/:/runner/:Z",
	} {
		if !hasPair(args, "-v", volume) {
			t.Errorf("mount %s missing: %q", volume, args)
		}
	}
	for _, arg := range args {
		if strings.Contains(arg, "localhost,") && arg != "localhost," {
			t.Errorf("inline inventory was mounted: %q", arg)
		}
	}
	if !slices.Contains(args, "--group-add=root") || !slices.Contains(args, "--ipc=host") {
		t.Errorf("podman namespace flags missing: %q", args)
	}
	if info, err := os.Stat(filepath.Join(privateDataDir, "project")); err != nil || !info.IsDir() {
		t.Errorf("project directory not created: %v", err)
	}
}

func TestBuildHelpSuppressesInference(t *testing.T) {
	t.Parallel()

	playbookDir := t.TempDir()
	playbook := filepath.Join(playbookDir, "site.yml")
	if err := os.WriteFile(playbook, nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	command := []string{"ansible-playbook", playbook, "--help"}
	builder := newTestBuilder(t, Options{
		Image:          "runner",
		Ident:          "job",
		PrivateDataDir: t.TempDir(),
		Mode:           ModeAnsibleCommands,
		Command:        command,
		CmdlineArgs:    command[1:],
	})

	invocation, err := builder.Build(command)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if hasPair(invocation.Args, "-v", playbookDir+"/:"+playbookDir+"/") {
		t.Errorf("playbook mounted despite --help: %q", invocation.Args)
	}
}

func TestBuildAutomountsSSHAgent(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	socket := filepath.Join(home, "agent.sock")
	if err := os.WriteFile(socket, nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Mkdir(filepath.Join(home, ".ssh"), 0o700); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	builder := NewBuilder(Options{
		Image:          "runner",
		Ident:          "job",
		PrivateDataDir: t.TempDir(),
		Mode:           ModeGenericCommands,
		Environ:        map[string]string{"HOME": home, "SSH_AUTH_SOCK": socket},
	})

	invocation, err := builder.Build([]string{"ssh", "host"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	args := invocation.Args

	if !hasPair(args, "-e", "SSH_AUTH_SOCK=/home/runner/agent.sock") {
		t.Errorf("agent socket not re-exported: %q", args)
	}
	for _, volume := range []string{
		home + "/:/home/runner/",
		home + "/.ssh/:/home/runner/.ssh/",
		home + "/.ssh/:/root/.ssh/",
	} {
		if !hasPair(args, "-v", volume) {
			t.Errorf("mount %s missing: %q", volume, args)
		}
	}
}

func TestBuildAutomountMissingSocketStillExported(t *testing.T) {
	t.Parallel()

	socket := filepath.Join(t.TempDir(), "gone.sock")
	builder := NewBuilder(Options{
		Image:          "runner",
		Ident:          "job",
		PrivateDataDir: t.TempDir(),
		Mode:           ModeGenericCommands,
		Environ:        map[string]string{"SSH_AUTH_SOCK": socket},
	})

	invocation, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !hasPair(invocation.Args, "-e", "SSH_AUTH_SOCK="+socket) {
		t.Errorf("missing socket should be exported unchanged: %q", invocation.Args)
	}
}

func TestBuildDockerRegistryAuth(t *testing.T) {
	t.Parallel()

	cleanup := NewCleanupRegistry()
	defer cleanup.Cleanup()

	builder := newTestBuilder(t, Options{
		Engine:         Docker,
		Image:          "registry.example.com/runner",
		Ident:          "job",
		PrivateDataDir: t.TempDir(),
		Auth:           &RegistryAuth{Host: "registry.example.com", Username: "u", Password: "p"},
		Cleanup:        cleanup,
		UID:            intPointer(0),
	})

	invocation, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "--config=" + invocation.RegistryAuthPath
	if invocation.Args[1] != want {
		t.Errorf("args[1] = %q, want %q", invocation.Args[1], want)
	}
	if invocation.Args[2] != "run" {
		t.Errorf("args[2] = %q, want run", invocation.Args[2])
	}
	if info, err := os.Stat(invocation.RegistryAuthPath); err != nil || !info.IsDir() {
		t.Errorf("docker auth path should be a directory: %v", err)
	}
	if len(invocation.Env) != 0 {
		t.Errorf("Env = %v, want empty for a verified registry", invocation.Env)
	}
}

func TestBuildPodmanInsecureRegistryAuth(t *testing.T) {
	t.Parallel()

	cleanup := NewCleanupRegistry()
	defer cleanup.Cleanup()

	verify := false
	builder := newTestBuilder(t, Options{
		Engine:         Podman,
		Image:          "localhost:5000/runner",
		Ident:          "job",
		PrivateDataDir: t.TempDir(),
		Auth:           &RegistryAuth{Host: "localhost:5000", Username: "u", Password: "p", VerifySSL: &verify},
		Cleanup:        cleanup,
	})

	invocation, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !slices.Contains(invocation.Args, "--authfile="+invocation.RegistryAuthPath) {
		t.Errorf("--authfile missing: %q", invocation.Args)
	}
	if filepath.Base(invocation.RegistryAuthPath) != "auth.json" {
		t.Errorf("podman auth path = %q, want the authfile", invocation.RegistryAuthPath)
	}
	conf := invocation.Env["CONTAINERS_REGISTRIES_CONF"]
	if conf == "" || invocation.Env["REGISTRIES_CONFIG_PATH"] != conf {
		t.Errorf("registries conf env = %v", invocation.Env)
	}
}

func TestBuildRegistryAuthRequiresCleanup(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t, Options{
		Image:          "runner",
		Ident:          "job",
		PrivateDataDir: t.TempDir(),
		Auth:           &RegistryAuth{Host: "quay.io"},
	})
	if _, err := builder.Build([]string{"true"}); err == nil {
		t.Fatal("expected error without a cleanup registry")
	}
}

func TestBuildEmptyRegistryAuthIsIgnored(t *testing.T) {
	t.Parallel()

	cleanup := NewCleanupRegistry()
	builder := newTestBuilder(t, Options{
		Image:          "runner",
		Ident:          "job",
		PrivateDataDir: t.TempDir(),
		Auth:           &RegistryAuth{},
		Cleanup:        cleanup,
	})
	invocation, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if invocation.RegistryAuthPath != "" {
		t.Errorf("RegistryAuthPath = %q, want empty for auth without a host", invocation.RegistryAuthPath)
	}
	for _, arg := range invocation.Args {
		if strings.HasPrefix(arg, "--authfile") || strings.HasPrefix(arg, "--config") {
			t.Errorf("auth argument %q present for empty auth", arg)
		}
	}
	if paths := cleanup.Paths(); len(paths) != 0 {
		t.Errorf("cleanup paths = %v, want none", paths)
	}
}

func TestBuildVolumeMounts(t *testing.T) {
	t.Parallel()

	source := t.TempDir()
	builder := newTestBuilder(t, Options{
		Image:          "runner",
		Ident:          "job",
		PrivateDataDir: t.TempDir(),
		VolumeMounts:   []string{source + ":/data:Z", source + ":/data:Z", filepath.Join(source, "absent") + ":/other"},
	})

	invocation, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !hasPair(invocation.Args, "-v", source+"/:/data/:Z") {
		t.Errorf("volume mount missing: %q", invocation.Args)
	}
	if count := countVolumeFlags(invocation.Args); count != 2 {
		t.Errorf("got %d mounts, want private data dir plus one volume: %q", count, invocation.Args)
	}
}

func TestBuildVolumeMountErrors(t *testing.T) {
	t.Parallel()

	for _, volume := range []string{"/usr:/data", "/a:/b:c:d"} {
		builder := newTestBuilder(t, Options{
			Image:          "runner",
			Ident:          "job",
			PrivateDataDir: t.TempDir(),
			VolumeMounts:   []string{volume},
		})
		invocation, err := builder.Build([]string{"true"})
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("volume %q: error = %v, want ErrConfiguration", volume, err)
		}
		if invocation != nil {
			t.Errorf("volume %q: partial invocation returned", volume)
		}
	}
}

func TestBuilderReuse(t *testing.T) {
	t.Parallel()

	builder := newTestBuilder(t, Options{Image: "runner", Ident: "job", PrivateDataDir: t.TempDir()})
	first, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	second, err := builder.Build([]string{"true"})
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	assertArgs(t, second.Args, first.Args)
}

func TestParseEngine(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Engine{"": Podman, "podman": Podman, "Docker": Docker, " docker ": Docker} {
		got, err := ParseEngine(name)
		if err != nil || got != want {
			t.Errorf("ParseEngine(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseEngine("lxc"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("ParseEngine(lxc) error = %v, want ErrConfiguration", err)
	}
}

func TestParseExecutionMode(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]ExecutionMode{
		"":                 ModeNone,
		"none":             ModeNone,
		"ansible":          ModeAnsibleCommands,
		"ansible-commands": ModeAnsibleCommands,
		"GENERIC":          ModeGenericCommands,
	} {
		got, err := ParseExecutionMode(name)
		if err != nil || got != want {
			t.Errorf("ParseExecutionMode(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseExecutionMode("shell"); err == nil {
		t.Error("ParseExecutionMode(shell) succeeded, want error")
	}
}

func TestContainerName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"abc-123_x": "jobcontainer_abc-123_x",
		"a b.c/d":   "jobcontainer_a_b_c_d",
		"ünïcode":   "jobcontainer__n_code",
		"":          "jobcontainer_",
	}
	for ident, want := range tests {
		if got := ContainerName(ident); got != want {
			t.Errorf("ContainerName(%q) = %q, want %q", ident, got, want)
		}
	}
}

func TestEnvironMap(t *testing.T) {
	t.Parallel()

	got := EnvironMap([]string{"A=1", "B=x=y", "EMPTY=", "broken"})
	if got["A"] != "1" || got["B"] != "x=y" {
		t.Errorf("EnvironMap = %v", got)
	}
	if value, ok := got["EMPTY"]; !ok || value != "" {
		t.Errorf("EMPTY = %q, %v; want present and empty", value, ok)
	}
	if _, ok := got["broken"]; ok {
		t.Error("entry without '=' should be dropped")
	}
}
