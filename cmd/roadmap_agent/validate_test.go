package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	clearEnv(t)

	stdout, _, err := runCLI(t, "validate", "--in", fixturePath())
	require.NoError(t, err)
	assert.Contains(t, stdout, "ROADMAP VALID")
}

func TestValidateCommand_BadEnum(t *testing.T) {
	clearEnv(t)
	raw, err := os.ReadFile(fixturePath())
	require.NoError(t, err)

	bad := strings.Replace(string(raw), `"level": "beginner"`, `"level": "expert"`, 1)
	require.NotEqual(t, string(raw), bad, "fixture must contain a beginner level")
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	stdout, _, err := runCLI(t, "validate", "--in", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roadmap is invalid")
	assert.Contains(t, stdout, "ROADMAP INVALID")
}

func TestValidateCommand_NotJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "notes.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, _, err := runCLI(t, "validate", "--in", path)
	assert.Error(t, err)
}

func TestValidateCommand_MissingFile(t *testing.T) {
	clearEnv(t)

	_, _, err := runCLI(t, "validate", "--in", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read roadmap file")
}

func TestValidateCommand_MissingInputFlag(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "validate")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required flag(s) \"in\" not set")
}
