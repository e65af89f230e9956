// Package integration provides CLI integration tests for lattice.
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// latticeBin is the path to the built lattice binary.
	latticeBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv provides an isolated test environment with its own config
// directory, data directory, and registry.
type TestEnv struct {
	t         *testing.T
	TempDir   string
	ConfigDir string
	DataDir   string
	Registry  string
}

// NewTestEnv creates a new isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build lattice: %v", buildErr)
	}
	if latticeBin == "" {
		t.Fatal("lattice binary not built (latticeBin is empty)")
	}

	tempDir := t.TempDir()
	dataDir := filepath.Join(tempDir, "data")
	configDir := filepath.Join(tempDir, "config")
	registry := filepath.Join(tempDir, "registry.yaml")

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	configContent := "data_dir: " + dataDir + "\nregistry_path: " + registry + "\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return &TestEnv{
		t:         t,
		TempDir:   tempDir,
		ConfigDir: configDir,
		DataDir:   dataDir,
		Registry:  registry,
	}
}

// CmdResult holds the result of a lattice command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunLattice executes the lattice CLI against the env's default data
// directory. Returns stdout, stderr, and exit code.
func (e *TestEnv) RunLattice(args ...string) CmdResult {
	return e.RunLatticeIn(e.DataDir, args...)
}

// RunLatticeIn executes the lattice CLI against a specific data
// directory, for multi-project tests.
func (e *TestEnv) RunLatticeIn(dataDir string, args ...string) CmdResult {
	e.t.Helper()

	allArgs := append([]string{"--config-dir", e.ConfigDir, "--data-dir", dataDir}, args...)
	cmd := exec.Command(latticeBin, allArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run lattice: %v", err)
		}
	}

	return CmdResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}

// MustRunLattice executes the lattice CLI against the default data
// directory and fails the test on a non-zero exit.
func (e *TestEnv) MustRunLattice(args ...string) CmdResult {
	e.t.Helper()
	return e.MustRunLatticeIn(e.DataDir, args...)
}

// MustRunLatticeIn is RunLatticeIn that fails the test on a non-zero exit.
func (e *TestEnv) MustRunLatticeIn(dataDir string, args ...string) CmdResult {
	e.t.Helper()
	result := e.RunLatticeIn(dataDir, args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("lattice %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}

// ReadJSONFile reads and parses a JSON file from the data directory.
func ReadJSONFile[T any](t *testing.T, path string) T {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return ParseJSON[T](t, string(data))
}

// taskJSON mirrors the task fields the tests inspect.
type taskJSON struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Type        string   `json:"type"`
	ParentID    string   `json:"parentId"`
	Depends     []string `json:"depends"`
	CompletedAt *string  `json:"completedAt"`
}

// tasksDocJSON mirrors the active document layout on disk.
type tasksDocJSON struct {
	Meta struct {
		SchemaVersion int    `json:"schemaVersion"`
		Checksum      string `json:"checksum"`
	} `json:"_meta"`
	Tasks []taskJSON `json:"tasks"`
}

// archiveDocJSON mirrors the archive document layout on disk.
type archiveDocJSON struct {
	Meta struct {
		SchemaVersion int    `json:"schemaVersion"`
		Checksum      string `json:"checksum"`
	} `json:"_meta"`
	Archived []struct {
		Task    taskJSON `json:"task"`
		Archive struct {
			Source      string `json:"archiveSource"`
			OperationID string `json:"operationId"`
		} `json:"_archive"`
	} `json:"archived"`
}
